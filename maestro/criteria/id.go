package criteria

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/interval"
	"github.com/maestro/maestro/maestro/storage/sqlbuilder"
)

// IdCriterion matches element ids by interval ({id>=5}, {id=5-9}) or by
// explicit list ({id=1,2,3}). Exactly one of the two forms is set.
type IdCriterion struct {
	base
	interval *interval.Interval
	ids      []int64
}

func NewIdIntervalCriterion(iv interval.Interval) (*IdCriterion, error) {
	if !iv.IsValid() {
		return nil, mserrors.Invalid("invalid id interval " + iv.String())
	}
	return &IdCriterion{interval: &iv}, nil
}

func NewIdListCriterion(ids []int64) (*IdCriterion, error) {
	switch len(ids) {
	case 0:
		return nil, mserrors.Invalid("empty id list")
	case 1:
		iv := interval.Single(ids[0])
		return &IdCriterion{interval: &iv}, nil
	}
	return &IdCriterion{ids: append([]int64(nil), ids...)}, nil
}

// Interval returns the id interval, if this is the interval form.
func (c *IdCriterion) Interval() (interval.Interval, bool) {
	if c.interval == nil {
		return interval.Interval{}, false
	}
	return *c.interval, true
}

func (c *IdCriterion) IDs() []int64 { return append([]int64(nil), c.ids...) }

func (c *IdCriterion) Negated() Criterion {
	return &IdCriterion{base: c.base.flipped(), interval: c.interval, ids: c.ids}
}

func (c *IdCriterion) Process(ctx context.Context, s *Session, scope Scope) error {
	defer s.observe("id", time.Now())
	ids, err := s.filter(ctx, scope, c.negate, func(b *sqlbuilder.Builder) string {
		if c.interval != nil {
			return c.interval.SQL(b.Arg, "el.id", nil, nil)
		}
		return "el.id IN " + sqlbuilder.In(b, c.ids)
	})
	if err != nil {
		return err
	}
	c.result, c.matching = ids, nil
	return nil
}

func (c *IdCriterion) Equal(o Criterion) bool {
	x, ok := o.(*IdCriterion)
	if !ok || x.negate != c.negate || (x.interval == nil) != (c.interval == nil) {
		return false
	}
	if c.interval != nil {
		return c.interval.Equal(*x.interval)
	}
	return NewIDSet(c.ids...).Equal(NewIDSet(x.ids...))
}

func (c *IdCriterion) String() string {
	body := ""
	switch {
	case c.interval == nil:
		parts := make([]string, len(c.ids))
		for i, id := range c.ids {
			parts[i] = strconv.FormatInt(id, 10)
		}
		body = "=" + strings.Join(parts, ",")
	case isClosed(*c.interval):
		body = "=" + c.interval.String()
	default:
		body = c.interval.String()
	}
	return negatePrefix(c.negate) + "{id" + body + "}"
}

func isClosed(iv interval.Interval) bool {
	_, hasStart := iv.Start()
	_, hasEnd := iv.End()
	return hasStart && hasEnd
}

var idRangeRe = regexp.MustCompile(`^\d+-\d+$`)

func parseID(_ *Parser, word string) (Criterion, error) {
	inner, ok := braced(word)
	if !ok || !strings.HasPrefix(inner, "id") {
		return nil, nil
	}
	op, rest := interval.SplitOperator(inner[len("id"):])
	if op == "" {
		return nil, nil
	}

	if op == "=" && strings.Contains(rest, ",") {
		var ids []int64
		for _, part := range strings.Split(rest, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return nil, mserrors.Syntax("invalid element id", word)
			}
			ids = append(ids, id)
		}
		return NewIdListCriterion(ids)
	}

	var (
		iv  interval.Interval
		err error
	)
	if op == "=" && idRangeRe.MatchString(rest) {
		iv, err = interval.ParseString(rest, 0)
	} else {
		iv, err = interval.Parse(op, rest, 0)
	}
	if err != nil {
		return nil, mserrors.Syntax("invalid element id", word)
	}
	if !iv.IsValid() {
		return nil, mserrors.Syntax("empty id range", word)
	}
	return NewIdIntervalCriterion(iv)
}
