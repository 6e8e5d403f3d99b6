// Package criteria turns parsed search words into a tree of criteria and
// evaluates that tree against the element store.
package criteria

import (
	"context"
	"sort"

	"github.com/maestro/maestro/maestro/registry"
)

// MatchingTagsLimit caps the number of distinct (tag, value) pairs a tag
// criterion reports. Above it MatchingTags returns nil.
const MatchingTagsLimit = 20

// TagValue identifies one value of one tag.
type TagValue struct {
	TagID   int64
	ValueID int64
}

// Criterion is a node of a search tree. The set of implementations is closed;
// the parser and Combine are the only producers besides the New* functions.
//
// A tree is immutable once built except for the evaluation output written by
// Process (Result and MatchingTags), which does not take part in Equal.
type Criterion interface {
	Negate() bool
	// Negated returns a copy with the negation flipped.
	Negated() Criterion
	// Process evaluates the criterion within scope and stores the result.
	Process(ctx context.Context, s *Session, scope Scope) error
	Result() IDSet
	// MatchingTags returns the pairs that made the criterion match, or nil
	// when that information is not available.
	MatchingTags() []TagValue

	IsUsingTag(t registry.Tag) bool
	IsUsingFlag(f registry.Flag) bool
	IsUsingSticker(stickerType string) bool

	Equal(o Criterion) bool
	// String renders the criterion in search syntax. Parsing the output
	// yields an equal tree.
	String() string

	sealed()
}

type base struct {
	negate   bool
	result   IDSet
	matching []TagValue
}

func (b *base) Negate() bool             { return b.negate }
func (b *base) Result() IDSet            { return b.result }
func (b *base) MatchingTags() []TagValue { return b.matching }
func (b *base) sealed()                  {}

// flipped returns a base for a negated copy: evaluation output is dropped.
func (b base) flipped() base { return base{negate: !b.negate} }

func (b *base) IsUsingTag(registry.Tag) bool   { return false }
func (b *base) IsUsingFlag(registry.Flag) bool { return false }
func (b *base) IsUsingSticker(string) bool     { return false }

func negatePrefix(negate bool) string {
	if negate {
		return "!"
	}
	return ""
}

func sameTags(a, b []registry.Tag) bool {
	if len(a) != len(b) {
		return false
	}
	a, b = registry.SortTags(a), registry.SortTags(b)
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

func containsTag(tags []registry.Tag, t registry.Tag) bool {
	for _, x := range tags {
		if x.ID == t.ID {
			return true
		}
	}
	return false
}

func tagIDs(tags []registry.Tag) []int64 {
	ids := make([]int64, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
	}
	return ids
}

func sortedStrings(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	a, b = sortedStrings(a), sortedStrings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
