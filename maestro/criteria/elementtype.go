package criteria

import (
	"context"
	"time"

	"github.com/maestro/maestro/maestro/storage/sqlbuilder"
)

type ElementKind string

const (
	KindFile      ElementKind = "file"
	KindContainer ElementKind = "container"
)

// ElementTypeCriterion matches files or containers: {file}, {container}.
type ElementTypeCriterion struct {
	base
	Kind ElementKind
}

func NewElementTypeCriterion(kind ElementKind) *ElementTypeCriterion {
	return &ElementTypeCriterion{Kind: kind}
}

func (c *ElementTypeCriterion) Negated() Criterion {
	return &ElementTypeCriterion{base: c.base.flipped(), Kind: c.Kind}
}

func (c *ElementTypeCriterion) Process(ctx context.Context, s *Session, scope Scope) error {
	defer s.observe("element_type", time.Now())
	file := 0
	if c.Kind == KindFile {
		file = 1
	}
	ids, err := s.filter(ctx, scope, c.negate, func(b *sqlbuilder.Builder) string {
		return "el.file = " + b.Arg(file)
	})
	if err != nil {
		return err
	}
	c.result, c.matching = ids, nil
	return nil
}

func (c *ElementTypeCriterion) Equal(o Criterion) bool {
	x, ok := o.(*ElementTypeCriterion)
	return ok && x.negate == c.negate && x.Kind == c.Kind
}

func (c *ElementTypeCriterion) String() string {
	return negatePrefix(c.negate) + "{" + string(c.Kind) + "}"
}

func parseElementType(_ *Parser, word string) (Criterion, error) {
	switch word {
	case "{file}":
		return NewElementTypeCriterion(KindFile), nil
	case "{container}":
		return NewElementTypeCriterion(KindContainer), nil
	}
	return nil, nil
}
