package criteria

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/registry"
)

// TagIdCriterion matches elements carrying one of the given (tag, value id)
// pairs directly. It is built by code, e.g. from a tag browser selection;
// its syntax {tagid=T:V,...} exists so that it can be rendered and reparsed.
type TagIdCriterion struct {
	base
	Pairs []TagValue
}

func NewTagIdCriterion(pairs []TagValue) (*TagIdCriterion, error) {
	if len(pairs) == 0 {
		return nil, mserrors.Invalid("empty tag value list")
	}
	return &TagIdCriterion{Pairs: append([]TagValue(nil), pairs...)}, nil
}

func (c *TagIdCriterion) Negated() Criterion {
	return &TagIdCriterion{base: c.base.flipped(), Pairs: c.Pairs}
}

func (c *TagIdCriterion) Process(ctx context.Context, s *Session, scope Scope) error {
	defer s.observe("tag_id", time.Now())
	ids, matching, err := s.searchPairs(ctx, scope, c.negate, c.Pairs)
	if err != nil {
		return err
	}
	c.result, c.matching = ids, matching
	return nil
}

func (c *TagIdCriterion) IsUsingTag(t registry.Tag) bool {
	for _, p := range c.Pairs {
		if p.TagID == t.ID {
			return true
		}
	}
	return false
}

func (c *TagIdCriterion) sortedPairs() []TagValue {
	out := append([]TagValue(nil), c.Pairs...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].TagID != out[j].TagID {
			return out[i].TagID < out[j].TagID
		}
		return out[i].ValueID < out[j].ValueID
	})
	return out
}

func (c *TagIdCriterion) Equal(o Criterion) bool {
	x, ok := o.(*TagIdCriterion)
	if !ok || x.negate != c.negate || len(x.Pairs) != len(c.Pairs) {
		return false
	}
	a, b := c.sortedPairs(), x.sortedPairs()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c *TagIdCriterion) String() string {
	parts := make([]string, len(c.Pairs))
	for i, p := range c.Pairs {
		parts[i] = strconv.FormatInt(p.TagID, 10) + ":" + strconv.FormatInt(p.ValueID, 10)
	}
	return negatePrefix(c.negate) + "{tagid=" + strings.Join(parts, ",") + "}"
}

func parseTagID(p *Parser, word string) (Criterion, error) {
	inner, ok := braced(word)
	if !ok || !strings.HasPrefix(inner, "tagid=") {
		return nil, nil
	}
	var pairs []TagValue
	for _, part := range strings.Split(inner[len("tagid="):], ",") {
		tag, value, found := strings.Cut(strings.TrimSpace(part), ":")
		if !found {
			return nil, mserrors.Syntax("expected tag:value pair", word)
		}
		tagID, err1 := strconv.ParseInt(tag, 10, 64)
		valueID, err2 := strconv.ParseInt(value, 10, 64)
		if err1 != nil || err2 != nil {
			return nil, mserrors.Syntax("invalid tag:value pair", word)
		}
		if _, err := p.reg.TagByID(tagID); err != nil {
			return nil, err
		}
		pairs = append(pairs, TagValue{TagID: tagID, ValueID: valueID})
	}
	return NewTagIdCriterion(pairs)
}
