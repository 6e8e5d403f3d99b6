package criteria

import (
	"context"
	"strings"
	"time"

	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/registry"
	"github.com/maestro/maestro/maestro/storage/sqlbuilder"
)

type AnyKind string

const (
	AnyKindTag     AnyKind = "tag"
	AnyKindFlag    AnyKind = "flag"
	AnyKindSticker AnyKind = "sticker"
)

var anyTables = map[AnyKind]string{
	AnyKindTag:     "tags",
	AnyKindFlag:    "flags",
	AnyKindSticker: "stickers",
}

// AnyCriterion matches elements with at least one tag, flag or sticker:
// {tag}, {flag}, {sticker}.
type AnyCriterion struct {
	base
	Kind AnyKind
}

func NewAnyCriterion(kind AnyKind) *AnyCriterion { return &AnyCriterion{Kind: kind} }

func (c *AnyCriterion) Negated() Criterion {
	return &AnyCriterion{base: c.base.flipped(), Kind: c.Kind}
}

func (c *AnyCriterion) Process(ctx context.Context, s *Session, scope Scope) error {
	defer s.observe("any", time.Now())
	table := anyTables[c.Kind]
	ids, err := s.filter(ctx, scope, c.negate, func(*sqlbuilder.Builder) string {
		return "EXISTS (SELECT 1 FROM " + table + " a WHERE a.element_id = el.id)"
	})
	if err != nil {
		return err
	}
	c.result, c.matching = ids, nil
	return nil
}

func (c *AnyCriterion) IsUsingTag(registry.Tag) bool   { return c.Kind == AnyKindTag }
func (c *AnyCriterion) IsUsingFlag(registry.Flag) bool { return c.Kind == AnyKindFlag }
func (c *AnyCriterion) IsUsingSticker(string) bool     { return c.Kind == AnyKindSticker }

func (c *AnyCriterion) Equal(o Criterion) bool {
	x, ok := o.(*AnyCriterion)
	return ok && x.negate == c.negate && x.Kind == c.Kind
}

func (c *AnyCriterion) String() string {
	return negatePrefix(c.negate) + "{" + string(c.Kind) + "}"
}

func parseAny(_ *Parser, word string) (Criterion, error) {
	switch word {
	case "{tag}":
		return NewAnyCriterion(AnyKindTag), nil
	case "{flag}":
		return NewAnyCriterion(AnyKindFlag), nil
	case "{sticker}":
		return NewAnyCriterion(AnyKindSticker), nil
	}
	return nil, nil
}

// AnyTagCriterion matches elements with any value in one of the given tags:
// {tag=artist,composer}.
type AnyTagCriterion struct {
	base
	Tags []registry.Tag
}

func NewAnyTagCriterion(tags []registry.Tag) (*AnyTagCriterion, error) {
	if len(tags) == 0 {
		return nil, mserrors.Invalid("empty tag list")
	}
	return &AnyTagCriterion{Tags: append([]registry.Tag(nil), tags...)}, nil
}

func (c *AnyTagCriterion) Negated() Criterion {
	return &AnyTagCriterion{base: c.base.flipped(), Tags: c.Tags}
}

func (c *AnyTagCriterion) Process(ctx context.Context, s *Session, scope Scope) error {
	defer s.observe("any_tag", time.Now())
	ids, err := s.filter(ctx, scope, c.negate, func(b *sqlbuilder.Builder) string {
		return "EXISTS (SELECT 1 FROM tags t WHERE t.element_id = el.id AND t.tag_id IN " + sqlbuilder.In(b, tagIDs(c.Tags)) + ")"
	})
	if err != nil {
		return err
	}
	c.result, c.matching = ids, nil
	return nil
}

func (c *AnyTagCriterion) IsUsingTag(t registry.Tag) bool { return containsTag(c.Tags, t) }

func (c *AnyTagCriterion) Equal(o Criterion) bool {
	x, ok := o.(*AnyTagCriterion)
	return ok && x.negate == c.negate && sameTags(x.Tags, c.Tags)
}

func (c *AnyTagCriterion) String() string {
	return negatePrefix(c.negate) + "{tag=" + tagNames(c.Tags) + "}"
}

func parseAnyTag(p *Parser, word string) (Criterion, error) {
	inner, ok := braced(word)
	if !ok || !strings.HasPrefix(inner, "tag=") {
		return nil, nil
	}
	names := inner[len("tag="):]
	if strings.Contains(names, "=") {
		return nil, nil
	}
	tags, err := p.lookupTags(names, word)
	if err != nil {
		return nil, err
	}
	return NewAnyTagCriterion(tags)
}
