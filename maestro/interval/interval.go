// Package interval implements closed integer ranges with optionally open ends,
// used for year searches and element-id ranges.
package interval

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Interval is a closed range [start, end]. Either end may be unbounded but
// never both. Values are immutable.
type Interval struct {
	start, end       int64
	hasStart, hasEnd bool
}

// New returns the closed interval [start, end]. It may be invalid; see IsValid.
func New(start, end int64) Interval {
	return Interval{start: start, end: end, hasStart: true, hasEnd: true}
}

func AtLeast(start int64) Interval { return Interval{start: start, hasStart: true} }

func AtMost(end int64) Interval { return Interval{end: end, hasEnd: true} }

func Single(v int64) Interval { return New(v, v) }

// Start returns the lower bound and whether it is set.
func (i Interval) Start() (int64, bool) { return i.start, i.hasStart }

// End returns the upper bound and whether it is set.
func (i Interval) End() (int64, bool) { return i.end, i.hasEnd }

func (i Interval) IsValid() bool {
	if !i.hasStart && !i.hasEnd {
		return false
	}
	return !(i.hasStart && i.hasEnd) || i.start <= i.end
}

// IsSingle reports whether the interval contains exactly one value.
func (i Interval) IsSingle() bool {
	return i.hasStart && i.hasEnd && i.start == i.end
}

func (i Interval) Contains(v int64) bool {
	if i.hasStart && v < i.start {
		return false
	}
	if i.hasEnd && v > i.end {
		return false
	}
	return i.IsValid()
}

func (i Interval) Equal(o Interval) bool { return i == o }

// Parse builds an interval from a comparison operator and a numeral. digits
// constrains the numeral to exactly that many decimal digits; 0 disables the
// check. Supported operators are "=", ">=", "<=", ">" and "<"; strict
// comparisons are normalized to the inclusive form.
func Parse(op, numeral string, digits int) (Interval, error) {
	n, err := parseNumeral(numeral, digits)
	if err != nil {
		return Interval{}, err
	}
	switch op {
	case "=", "":
		return Single(n), nil
	case ">=":
		return AtLeast(n), nil
	case "<=":
		return AtMost(n), nil
	case ">":
		return AtLeast(n + 1), nil
	case "<":
		return AtMost(n - 1), nil
	}
	return Interval{}, fmt.Errorf("unknown comparison operator %q", op)
}

var rangeRe = regexp.MustCompile(`^(\d+)-(\d+)$`)

// ParseString accepts "N", "N-M" or an operator followed by N. The result is
// returned even if it is invalid (e.g. "2000-1950"); callers decide.
func ParseString(s string, digits int) (Interval, error) {
	s = strings.TrimSpace(s)
	if m := rangeRe.FindStringSubmatch(s); m != nil {
		a, err := parseNumeral(m[1], digits)
		if err != nil {
			return Interval{}, err
		}
		b, err := parseNumeral(m[2], digits)
		if err != nil {
			return Interval{}, err
		}
		return New(a, b), nil
	}
	op, rest := SplitOperator(s)
	return Parse(op, rest, digits)
}

// SplitOperator splits a leading comparison operator off s.
func SplitOperator(s string) (op, rest string) {
	for _, candidate := range []string{">=", "<=", ">", "<", "="} {
		if strings.HasPrefix(s, candidate) {
			return candidate, s[len(candidate):]
		}
	}
	return "", s
}

func parseNumeral(s string, digits int) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("missing number")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a number: %q", s)
		}
	}
	if digits > 0 && len(s) != digits {
		return 0, fmt.Errorf("expected %d digits, got %q", digits, s)
	}
	return strconv.ParseInt(s, 10, 64)
}

// String renders the interval in search syntax: "1950", "1950-1960",
// ">=1950" or "<=1950".
func (i Interval) String() string {
	switch {
	case i.IsSingle():
		return strconv.FormatInt(i.start, 10)
	case i.hasStart && i.hasEnd:
		return strconv.FormatInt(i.start, 10) + "-" + strconv.FormatInt(i.end, 10)
	case i.hasStart:
		return ">=" + strconv.FormatInt(i.start, 10)
	case i.hasEnd:
		return "<=" + strconv.FormatInt(i.end, 10)
	}
	return ""
}

// Arg allocates a placeholder for a bound value.
type Arg func(v any) string

// SQL returns a range condition on column, e.g. "col >= ? AND col <= ?".
// low and high map interval bounds to column values; nil means identity.
func (i Interval) SQL(arg Arg, column string, low, high func(int64) int64) string {
	if low == nil {
		low = identity
	}
	if high == nil {
		high = identity
	}
	var parts []string
	if i.hasStart {
		parts = append(parts, column+" >= "+arg(low(i.start)))
	}
	if i.hasEnd {
		parts = append(parts, column+" <= "+arg(high(i.end)))
	}
	if len(parts) == 0 {
		return "1=1"
	}
	return strings.Join(parts, " AND ")
}

func identity(v int64) int64 { return v }
