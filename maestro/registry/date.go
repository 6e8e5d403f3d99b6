package registry

import (
	"fmt"
	"strconv"
	"strings"

	mserrors "github.com/maestro/maestro/maestro/errors"
)

// Date tag values are stored packed as YYYYMMDD with zero month or day when
// unknown, so "1975" is 19750000 and sorts before "1975-03".

// ParseDate accepts YYYY, YYYY-MM or YYYY-MM-DD.
func ParseDate(s string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) > 3 || len(parts[0]) != 4 {
		return 0, mserrors.Invalid(fmt.Sprintf("invalid date %q", s))
	}
	limits := []int64{9999, 12, 31}
	fields := [3]int64{}
	for i, part := range parts {
		if i > 0 && len(part) != 2 {
			return 0, mserrors.Invalid(fmt.Sprintf("invalid date %q", s))
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n < 0 || n > limits[i] || (i > 0 && n == 0) {
			return 0, mserrors.Invalid(fmt.Sprintf("invalid date %q", s))
		}
		fields[i] = n
	}
	packed := fields[0]*10000 + fields[1]*100 + fields[2]
	return packed, nil
}

// FormatDate is the inverse of ParseDate.
func FormatDate(packed int64) string {
	year, month, day := packed/10000, packed/100%100, packed%100
	switch {
	case month == 0:
		return fmt.Sprintf("%04d", year)
	case day == 0:
		return fmt.Sprintf("%04d-%02d", year, month)
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// YearStart and YearEnd bound the packed values of a year.
func YearStart(year int64) int64 { return year * 10000 }

func YearEnd(year int64) int64 { return year*10000 + 9999 }
