package criteria

import (
	"context"
	"strings"
	"time"

	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/storage/sqlbuilder"
)

// StickerCriterion matches elements having a sticker of any of Types.
type StickerCriterion struct {
	base
	Types []string
}

func NewStickerCriterion(types []string) (*StickerCriterion, error) {
	if len(types) == 0 {
		return nil, mserrors.Invalid("empty sticker type list")
	}
	return &StickerCriterion{Types: append([]string(nil), types...)}, nil
}

func (c *StickerCriterion) Negated() Criterion {
	return &StickerCriterion{base: c.base.flipped(), Types: c.Types}
}

func (c *StickerCriterion) Process(ctx context.Context, s *Session, scope Scope) error {
	defer s.observe("sticker", time.Now())
	ids, err := s.filter(ctx, scope, c.negate, func(b *sqlbuilder.Builder) string {
		return "EXISTS (SELECT 1 FROM stickers st WHERE st.element_id = el.id AND st.type IN " + sqlbuilder.In(b, c.Types) + ")"
	})
	if err != nil {
		return err
	}
	c.result, c.matching = ids, nil
	return nil
}

func (c *StickerCriterion) IsUsingSticker(stickerType string) bool {
	for _, t := range c.Types {
		if t == stickerType {
			return true
		}
	}
	return false
}

func (c *StickerCriterion) Equal(o Criterion) bool {
	x, ok := o.(*StickerCriterion)
	return ok && x.negate == c.negate && sameStrings(x.Types, c.Types)
}

func (c *StickerCriterion) String() string {
	return negatePrefix(c.negate) + "{sticker=" + strings.Join(c.Types, ",") + "}"
}

func parseSticker(_ *Parser, word string) (Criterion, error) {
	inner, ok := braced(word)
	if !ok || !strings.HasPrefix(inner, "sticker=") {
		return nil, nil
	}
	var types []string
	for _, t := range strings.Split(inner[len("sticker="):], ",") {
		t = strings.TrimSpace(t)
		if t == "" || !nameRe.MatchString(t) {
			return nil, mserrors.Syntax("invalid sticker type", word)
		}
		types = append(types, t)
	}
	return NewStickerCriterion(types)
}
