package criteria

import (
	"context"
	"strings"
	"time"
	"unicode"

	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/registry"
)

// Modifiers written between the tag list and the value.
const (
	BinaryPrefix     = "_"
	SingleWordPrefix = "#"
)

// TagCriterion is a text search over tag values. By default the value is
// matched as a case- and diacritic-insensitive substring of any varchar tag.
//
//	harry                  substring in any varchar tag
//	artist,composer=harry  restricted to the named tags
//	#harry                 whole word
//	_Harry                 binary: exact case and accents
//	"harry potter"         quoted values may contain spaces
type TagCriterion struct {
	base
	Value      string
	Tags       []registry.Tag
	Binary     bool
	SingleWord bool
}

// NewTagCriterion builds a text criterion. A search value cannot carry a
// double quote, so quotes in value are dropped as the parser drops them.
func NewTagCriterion(value string, tags []registry.Tag, binary, singleWord bool) *TagCriterion {
	return &TagCriterion{
		Value:      strings.ReplaceAll(value, `"`, ""),
		Tags:       append([]registry.Tag(nil), tags...),
		Binary:     binary,
		SingleWord: singleWord,
	}
}

func (c *TagCriterion) Negated() Criterion {
	out := *c
	out.base = c.base.flipped()
	return &out
}

func (c *TagCriterion) search() tagSearch {
	return tagSearch{tags: c.Tags, text: c.Value, binary: c.Binary, singleWord: c.SingleWord}
}

func (c *TagCriterion) Process(ctx context.Context, s *Session, scope Scope) error {
	defer s.observe("tag", time.Now())
	ids, matching, err := c.search().run(ctx, s, scope, c.negate)
	if err != nil {
		return err
	}
	c.result, c.matching = ids, matching
	return nil
}

func (c *TagCriterion) IsUsingTag(t registry.Tag) bool { return c.search().isUsingTag(t) }

func (c *TagCriterion) Equal(o Criterion) bool {
	x, ok := o.(*TagCriterion)
	return ok && x.negate == c.negate && x.Value == c.Value && x.Binary == c.Binary &&
		x.SingleWord == c.SingleWord && sameTags(x.Tags, c.Tags)
}

func (c *TagCriterion) String() string {
	var sb strings.Builder
	sb.WriteString(negatePrefix(c.negate))
	if len(c.Tags) > 0 {
		sb.WriteString(tagNames(c.Tags))
		sb.WriteByte('=')
	}
	if c.Binary {
		sb.WriteString(BinaryPrefix)
	}
	if c.SingleWord {
		sb.WriteString(SingleWordPrefix)
	}
	sb.WriteString(quoteValue(c.Value))
	return sb.String()
}

func tagNames(tags []registry.Tag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return strings.Join(names, ",")
}

// quoteValue quotes v when it would not read back as the same plain value.
func quoteValue(v string) string {
	if !needsQuotes(v) {
		return v
	}
	return `"` + v + `"`
}

func needsQuotes(v string) bool {
	if v == "" || strings.HasPrefix(v, "!") || strings.HasPrefix(v, BinaryPrefix) || strings.HasPrefix(v, SingleWordPrefix) {
		return true
	}
	if strings.ContainsAny(v, `(){}|=`) || strings.IndexFunc(v, unicode.IsSpace) >= 0 {
		return true
	}
	_, isYear := yearInterval(v)
	return isYear
}

// parseTag is the catch-all and must stay last in the dispatch table.
func parseTag(p *Parser, word string) (Criterion, error) {
	if inner, ok := braced(word); ok {
		names, value, ok := splitTagForm(inner)
		if !ok {
			return nil, nil
		}
		return p.tagCriterion(names, value, word)
	}
	if head, value, found := cutUnquoted(word, '='); found && namesRe.MatchString(head) {
		return p.tagCriterion(head, value, word)
	}
	return p.tagCriterion("", word, word)
}

func (p *Parser) tagCriterion(names, value, word string) (Criterion, error) {
	var tags []registry.Tag
	if names != "" {
		var err error
		if tags, err = p.lookupTags(names, word); err != nil {
			return nil, err
		}
		for _, t := range tags {
			if t.Type == registry.Date {
				return nil, mserrors.Syntax("date tag "+t.Name+" needs a year, a range or a comparison", word)
			}
		}
	}

	var binary, singleWord bool
	for {
		switch {
		case !binary && strings.HasPrefix(value, BinaryPrefix):
			binary = true
			value = value[len(BinaryPrefix):]
			continue
		case !singleWord && strings.HasPrefix(value, SingleWordPrefix):
			singleWord = true
			value = value[len(SingleWordPrefix):]
			continue
		}
		break
	}
	value = strings.ReplaceAll(value, `"`, "")
	if strings.TrimSpace(value) == "" {
		return nil, mserrors.Syntax("empty search value", word)
	}
	return NewTagCriterion(value, tags, binary, singleWord), nil
}
