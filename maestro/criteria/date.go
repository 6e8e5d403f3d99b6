package criteria

import (
	"context"
	"regexp"
	"strconv"
	"time"

	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/interval"
	"github.com/maestro/maestro/maestro/registry"
)

const yearDigits = 4

// DateCriterion matches date tag values falling into a year interval:
// 1975, 1970-1979, >=1970, <1980, date=1975, {tag=date,recorded=1970-1979}.
// A single year without a tag list also matches varchar values containing
// the year, so "1975" finds "Live 1975" as well.
type DateCriterion struct {
	base
	Interval interval.Interval
	Tags     []registry.Tag
}

func NewDateCriterion(iv interval.Interval, tags []registry.Tag) (*DateCriterion, error) {
	if !iv.IsValid() {
		return nil, mserrors.Invalid("invalid year interval " + iv.String())
	}
	for _, t := range tags {
		if t.Type != registry.Date {
			return nil, mserrors.Invalid("tag " + t.Name + " is not a date tag")
		}
	}
	return &DateCriterion{Interval: iv, Tags: append([]registry.Tag(nil), tags...)}, nil
}

func (c *DateCriterion) Negated() Criterion {
	out := *c
	out.base = c.base.flipped()
	return &out
}

func (c *DateCriterion) search() tagSearch {
	iv := c.Interval
	ts := tagSearch{tags: c.Tags, interval: &iv}
	if len(c.Tags) == 0 && iv.IsSingle() {
		year, _ := iv.Start()
		ts.text = strconv.FormatInt(year, 10)
	}
	return ts
}

func (c *DateCriterion) Process(ctx context.Context, s *Session, scope Scope) error {
	defer s.observe("date", time.Now())
	ids, matching, err := c.search().run(ctx, s, scope, c.negate)
	if err != nil {
		return err
	}
	c.result, c.matching = ids, matching
	return nil
}

func (c *DateCriterion) IsUsingTag(t registry.Tag) bool { return c.search().isUsingTag(t) }

func (c *DateCriterion) Equal(o Criterion) bool {
	x, ok := o.(*DateCriterion)
	return ok && x.negate == c.negate && x.Interval.Equal(c.Interval) && sameTags(x.Tags, c.Tags)
}

func (c *DateCriterion) String() string {
	if len(c.Tags) == 0 {
		return negatePrefix(c.negate) + c.Interval.String()
	}
	return negatePrefix(c.negate) + tagNames(c.Tags) + "=" + c.Interval.String()
}

var (
	yearRe      = regexp.MustCompile(`^\d{4}$`)
	yearRangeRe = regexp.MustCompile(`^\d{4}-\d{4}$`)
)

// yearInterval recognizes "1975", "1970-1979" and a comparison operator
// followed by a year. Reversed ranges are rejected so that "2000-1950"
// stays a text search.
func yearInterval(s string) (interval.Interval, bool) {
	var (
		iv  interval.Interval
		err error
	)
	switch {
	case yearRe.MatchString(s), yearRangeRe.MatchString(s):
		iv, err = interval.ParseString(s, yearDigits)
	default:
		op, rest := interval.SplitOperator(s)
		if op == "" || !yearRe.MatchString(rest) {
			return interval.Interval{}, false
		}
		iv, err = interval.Parse(op, rest, yearDigits)
	}
	if err != nil || !iv.IsValid() {
		return interval.Interval{}, false
	}
	return iv, true
}

func parseDate(p *Parser, word string) (Criterion, error) {
	if inner, ok := braced(word); ok {
		names, value, ok := splitTagForm(inner)
		if !ok {
			return nil, nil
		}
		return p.dateCriterion(names, value)
	}
	if iv, ok := yearInterval(word); ok {
		return NewDateCriterion(iv, nil)
	}
	if head, value, found := cutUnquoted(word, '='); found && namesRe.MatchString(head) {
		return p.dateCriterion(head, value)
	}
	return nil, nil
}

// dateCriterion returns nil, without error, unless every name is a known
// date tag and value is a year interval; the tag parser then reports the
// problem.
func (p *Parser) dateCriterion(names, value string) (Criterion, error) {
	iv, ok := yearInterval(value)
	if !ok {
		return nil, nil
	}
	tags, err := p.lookupTags(names, "")
	if err != nil {
		return nil, nil
	}
	for _, t := range tags {
		if t.Type != registry.Date {
			return nil, nil
		}
	}
	return NewDateCriterion(iv, tags)
}
