package criteria

import (
	"context"
	"strings"

	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/interval"
	"github.com/maestro/maestro/maestro/registry"
	"github.com/maestro/maestro/maestro/storage/sqlbuilder"
	"github.com/maestro/maestro/maestro/textnorm"
)

// tagSearch is the value search shared by TagCriterion and DateCriterion.
// It runs in phases with a cancellation check after each:
//
//  1. collect candidate (tag, value) pairs from the value tables
//  2. stage them in the session's scratch rows
//  3. collect the matching pairs within scope (skipped when negated)
//  4. select the elements in scope carrying a staged pair
type tagSearch struct {
	// tags restricts the search; empty means all varchar tags for the text
	// part and all date tags for the interval part.
	tags       []registry.Tag
	text       string
	binary     bool
	singleWord bool
	interval   *interval.Interval
}

func (ts tagSearch) run(ctx context.Context, s *Session, scope Scope, negate bool) (IDSet, []TagValue, error) {
	pairs, err := ts.candidates(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, nil, err
	}
	return s.searchPairs(ctx, scope, negate, pairs)
}

func (ts tagSearch) candidates(ctx context.Context, s *Session) ([]TagValue, error) {
	var pairs []TagValue
	seen := make(map[TagValue]struct{})
	add := func(found []TagValue) {
		for _, p := range found {
			if _, dup := seen[p]; !dup {
				seen[p] = struct{}{}
				pairs = append(pairs, p)
			}
		}
	}

	if ts.text != "" {
		tables := map[string][]int64{}
		for _, t := range ts.textTags(s.reg) {
			switch t.Type {
			case registry.Varchar:
				tables["values_varchar"] = append(tables["values_varchar"], t.ID)
			case registry.Text:
				tables["values_text"] = append(tables["values_text"], t.ID)
			}
		}
		for _, table := range []string{"values_varchar", "values_text"} {
			if len(tables[table]) == 0 {
				continue
			}
			found, err := ts.textCandidates(ctx, s, table, tables[table])
			if err != nil {
				return nil, err
			}
			add(found)
		}
	}

	if ts.interval != nil {
		if ids := tagIDs(ts.dateTags(s.reg)); len(ids) > 0 {
			found, err := ts.dateCandidates(ctx, s, ids)
			if err != nil {
				return nil, err
			}
			add(found)
		}
	}
	return pairs, nil
}

func (ts tagSearch) textTags(reg *registry.Registry) []registry.Tag {
	if len(ts.tags) == 0 {
		return reg.TagsOfType(registry.Varchar)
	}
	var out []registry.Tag
	for _, t := range ts.tags {
		if t.Type != registry.Date {
			out = append(out, t)
		}
	}
	return out
}

func (ts tagSearch) dateTags(reg *registry.Registry) []registry.Tag {
	if len(ts.tags) == 0 {
		return reg.TagsOfType(registry.Date)
	}
	var out []registry.Tag
	for _, t := range ts.tags {
		if t.Type == registry.Date {
			out = append(out, t)
		}
	}
	return out
}

// textCandidates matches the needle against folded values, or raw values in
// binary mode. A needle that folds to nothing is matched raw. Whole-word
// mode and the arabic alternative are checked on the fetched rows.
func (ts tagSearch) textCandidates(ctx context.Context, s *Session, table string, ids []int64) ([]TagValue, error) {
	needle, column, alt := ts.text, "v.value", ""
	if !ts.binary {
		if folded := textnorm.Fold(ts.text); folded != "" {
			needle, column = folded, "v.search_value"
			alt, _ = textnorm.ArabicAlternative(folded)
		}
	}

	b := sqlbuilder.New(s.style)
	in := sqlbuilder.In(b, ids)
	cond := s.sqlt.Contains + "(" + column + ", " + b.Arg(needle) + ") > 0"
	if alt != "" {
		cond = "(" + cond + " OR " + s.sqlt.Contains + "(" + column + ", " + b.Arg(alt) + ") > 0)"
	}
	q := "SELECT v.tag_id, v.id, " + column + " FROM " + table + " v WHERE v.tag_id IN " + in + " AND " + cond

	rows, err := s.conn.QueryContext(ctx, q, b.Args()...)
	if err != nil {
		return nil, mserrors.Backend("search values", err)
	}
	defer rows.Close()
	var out []TagValue
	for rows.Next() {
		var (
			tv  TagValue
			hay string
		)
		if err := rows.Scan(&tv.TagID, &tv.ValueID, &hay); err != nil {
			return nil, mserrors.Backend("search values", err)
		}
		if !ts.accepts(hay, needle, alt) {
			continue
		}
		out = append(out, tv)
	}
	if err := rows.Err(); err != nil {
		return nil, mserrors.Backend("search values", err)
	}
	return out, nil
}

// accepts reports whether a fetched value matches. The needle matches as a
// substring, or as a whole word in whole-word mode. The arabic alternative of
// a roman numeral only ever matches as a whole word.
func (ts tagSearch) accepts(hay, needle, alt string) bool {
	if ts.singleWord {
		if textnorm.ContainsWord(hay, needle) {
			return true
		}
	} else if strings.Contains(hay, needle) {
		return true
	}
	return alt != "" && textnorm.ContainsWord(hay, alt)
}

func (ts tagSearch) dateCandidates(ctx context.Context, s *Session, ids []int64) ([]TagValue, error) {
	b := sqlbuilder.New(s.style)
	in := sqlbuilder.In(b, ids)
	cond := ts.interval.SQL(b.Arg, "v.value", registry.YearStart, registry.YearEnd)
	q := "SELECT v.tag_id, v.id FROM values_date v WHERE v.tag_id IN " + in + " AND " + cond

	rows, err := s.conn.QueryContext(ctx, q, b.Args()...)
	if err != nil {
		return nil, mserrors.Backend("search dates", err)
	}
	defer rows.Close()
	var out []TagValue
	for rows.Next() {
		var tv TagValue
		if err := rows.Scan(&tv.TagID, &tv.ValueID); err != nil {
			return nil, mserrors.Backend("search dates", err)
		}
		out = append(out, tv)
	}
	if err := rows.Err(); err != nil {
		return nil, mserrors.Backend("search dates", err)
	}
	return out, nil
}

func (ts tagSearch) isUsingTag(t registry.Tag) bool {
	if len(ts.tags) > 0 {
		return containsTag(ts.tags, t)
	}
	switch t.Type {
	case registry.Varchar:
		return ts.text != ""
	case registry.Date:
		return ts.interval != nil
	}
	return false
}
