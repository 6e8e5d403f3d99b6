package criteria

import (
	"context"
	"strings"
	"time"

	"github.com/maestro/maestro/maestro/registry"
)

type Junction int

const (
	And Junction = iota
	Or
)

func (j Junction) String() string {
	if j == Or {
		return "OR"
	}
	return "AND"
}

// MultiCriterion combines at least two children with AND or OR.
type MultiCriterion struct {
	base
	Junction Junction
	Children []Criterion
}

// Combine joins list with junction. An empty list gives nil and a single
// criterion is returned as is.
func Combine(junction Junction, list []Criterion) Criterion {
	switch len(list) {
	case 0:
		return nil
	case 1:
		return list[0]
	}
	return &MultiCriterion{Junction: junction, Children: append([]Criterion(nil), list...)}
}

func (c *MultiCriterion) Negated() Criterion {
	return &MultiCriterion{base: c.base.flipped(), Junction: c.Junction, Children: c.Children}
}

// Process evaluates every child against the same scope and combines the
// results in memory. A negated node complements the combination within
// scope; children are not rewritten.
func (c *MultiCriterion) Process(ctx context.Context, s *Session, scope Scope) error {
	defer s.observe("multi", time.Now())
	var acc IDSet
	for i, child := range c.Children {
		if err := checkCancelled(ctx); err != nil {
			return err
		}
		if err := child.Process(ctx, s, scope); err != nil {
			return err
		}
		switch {
		case i == 0:
			acc = child.Result()
		case c.Junction == And:
			acc = acc.Intersect(child.Result())
		default:
			acc = acc.Union(child.Result())
		}
	}
	if c.negate {
		all, err := s.ScopeIDs(ctx, scope)
		if err != nil {
			return err
		}
		acc = all.Minus(acc)
	}
	c.result = acc
	c.matching = c.combineMatches()
	return nil
}

func (c *MultiCriterion) combineMatches() []TagValue {
	if c.negate {
		return nil
	}
	if c.Junction == Or {
		var out []TagValue
		seen := make(map[TagValue]struct{})
		for _, child := range c.Children {
			m := child.MatchingTags()
			if m == nil {
				return nil
			}
			for _, tv := range m {
				if _, dup := seen[tv]; !dup {
					seen[tv] = struct{}{}
					out = append(out, tv)
				}
			}
		}
		if len(out) > MatchingTagsLimit {
			return nil
		}
		if out == nil {
			out = []TagValue{}
		}
		return out
	}

	var acc []TagValue
	for _, child := range c.Children {
		m := child.MatchingTags()
		if m == nil {
			continue
		}
		if acc == nil {
			acc = append([]TagValue{}, m...)
			continue
		}
		keep := make(map[TagValue]struct{}, len(m))
		for _, tv := range m {
			keep[tv] = struct{}{}
		}
		filtered := acc[:0]
		for _, tv := range acc {
			if _, ok := keep[tv]; ok {
				filtered = append(filtered, tv)
			}
		}
		acc = filtered
		if len(acc) == 0 {
			break
		}
	}
	return acc
}

func (c *MultiCriterion) IsUsingTag(t registry.Tag) bool {
	for _, child := range c.Children {
		if child.IsUsingTag(t) {
			return true
		}
	}
	return false
}

func (c *MultiCriterion) IsUsingFlag(f registry.Flag) bool {
	for _, child := range c.Children {
		if child.IsUsingFlag(f) {
			return true
		}
	}
	return false
}

func (c *MultiCriterion) IsUsingSticker(stickerType string) bool {
	for _, child := range c.Children {
		if child.IsUsingSticker(stickerType) {
			return true
		}
	}
	return false
}

func (c *MultiCriterion) Equal(o Criterion) bool {
	x, ok := o.(*MultiCriterion)
	if !ok || x.negate != c.negate || x.Junction != c.Junction || len(x.Children) != len(c.Children) {
		return false
	}
	for i := range c.Children {
		if !c.Children[i].Equal(x.Children[i]) {
			return false
		}
	}
	return true
}

// String always parenthesizes so that nesting survives a round trip.
func (c *MultiCriterion) String() string {
	sep := " "
	if c.Junction == Or {
		sep = " | "
	}
	parts := make([]string, len(c.Children))
	for i, child := range c.Children {
		parts[i] = child.String()
	}
	return negatePrefix(c.negate) + "(" + strings.Join(parts, sep) + ")"
}

// Equal reports whether two possibly nil criteria are equal.
func Equal(a, b Criterion) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}
