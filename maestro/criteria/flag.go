package criteria

import (
	"context"
	"strconv"
	"strings"
	"time"

	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/registry"
	"github.com/maestro/maestro/maestro/storage/sqlbuilder"
)

// Flag lists inside {flag=...} use FlagSeparator for "any of" and
// FlagConjunction for "all of".
const (
	FlagSeparator   = "|"
	FlagConjunction = ","
)

// FlagCriterion matches elements carrying any (UseOr) or all of Flags.
type FlagCriterion struct {
	base
	Flags []registry.Flag
	UseOr bool
}

// NewFlagCriterion builds a flag criterion. With a single flag both modes
// coincide and the result is normalized to UseOr.
func NewFlagCriterion(flags []registry.Flag, useOr bool) (*FlagCriterion, error) {
	if len(flags) == 0 {
		return nil, mserrors.Invalid("empty flag list")
	}
	return &FlagCriterion{Flags: append([]registry.Flag(nil), flags...), UseOr: useOr || len(flags) == 1}, nil
}

func (c *FlagCriterion) Negated() Criterion {
	return &FlagCriterion{base: c.base.flipped(), Flags: c.Flags, UseOr: c.UseOr}
}

func (c *FlagCriterion) flagIDs() []int64 {
	ids := make([]int64, len(c.Flags))
	for i, f := range c.Flags {
		ids[i] = f.ID
	}
	return ids
}

func (c *FlagCriterion) Process(ctx context.Context, s *Session, scope Scope) error {
	defer s.observe("flag", time.Now())
	ids, err := s.filter(ctx, scope, c.negate, func(b *sqlbuilder.Builder) string {
		in := sqlbuilder.In(b, c.flagIDs())
		if c.UseOr {
			return "EXISTS (SELECT 1 FROM flags f WHERE f.element_id = el.id AND f.flag_id IN " + in + ")"
		}
		return "(SELECT COUNT(*) FROM flags f WHERE f.element_id = el.id AND f.flag_id IN " + in + ") = " +
			strconv.Itoa(len(NewIDSet(c.flagIDs()...)))
	})
	if err != nil {
		return err
	}
	c.result, c.matching = ids, nil
	return nil
}

func (c *FlagCriterion) IsUsingFlag(f registry.Flag) bool {
	for _, x := range c.Flags {
		if x.ID == f.ID {
			return true
		}
	}
	return false
}

func (c *FlagCriterion) Equal(o Criterion) bool {
	x, ok := o.(*FlagCriterion)
	return ok && x.negate == c.negate && x.UseOr == c.UseOr &&
		NewIDSet(x.flagIDs()...).Equal(NewIDSet(c.flagIDs()...))
}

func (c *FlagCriterion) String() string {
	sep := FlagSeparator
	if !c.UseOr {
		sep = FlagConjunction
	}
	names := make([]string, len(c.Flags))
	for i, f := range c.Flags {
		names[i] = f.Name
	}
	return negatePrefix(c.negate) + "{flag=" + strings.Join(names, sep) + "}"
}

func parseFlag(p *Parser, word string) (Criterion, error) {
	inner, ok := braced(word)
	if !ok || !strings.HasPrefix(inner, "flag=") {
		return nil, nil
	}
	list := inner[len("flag="):]
	hasOr := strings.Contains(list, FlagSeparator)
	hasAnd := strings.Contains(list, FlagConjunction)
	if hasOr && hasAnd {
		return nil, mserrors.Syntax("cannot mix '"+FlagSeparator+"' and '"+FlagConjunction+"' in a flag list", word)
	}
	sep := FlagSeparator
	if hasAnd {
		sep = FlagConjunction
	}
	var flags []registry.Flag
	for _, name := range strings.Split(list, sep) {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, mserrors.Syntax("empty flag name", word)
		}
		f, err := p.reg.FlagByName(name)
		if err != nil {
			return nil, err
		}
		flags = append(flags, f)
	}
	return NewFlagCriterion(flags, !hasAnd)
}
