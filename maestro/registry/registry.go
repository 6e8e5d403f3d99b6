// Package registry holds the tag and flag definitions of a library. A
// Registry is created once per opened library and handed to the parser and
// the search session; there is no package-level state.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	mserrors "github.com/maestro/maestro/maestro/errors"
)

type ValueType string

const (
	Varchar ValueType = "varchar"
	Text    ValueType = "text"
	Date    ValueType = "date"
)

func ParseValueType(s string) (ValueType, error) {
	switch ValueType(strings.ToLower(s)) {
	case Varchar:
		return Varchar, nil
	case Text:
		return Text, nil
	case Date:
		return Date, nil
	}
	return "", mserrors.Invalid(fmt.Sprintf("unknown value type %q", s))
}

// Tag identity is its ID; two Tag values with the same ID are the same tag.
type Tag struct {
	ID      int64
	Name    string
	Type    ValueType
	Title   string
	Private bool
}

func (t Tag) String() string { return t.Name }

type Flag struct {
	ID   int64
	Name string
	Icon string
}

func (f Flag) String() string { return f.Name }

var nameRe = regexp.MustCompile(`^[\p{L}\p{N}_-]+$`)

// ValidName reports whether s can be used as a tag or flag name in search
// strings.
func ValidName(s string) bool { return nameRe.MatchString(s) }

// Registry is safe for concurrent use. Tags and flags keep insertion order.
type Registry struct {
	mu         sync.RWMutex
	tags       []Tag
	tagByID    map[int64]int
	tagByName  map[string]int
	flags      []Flag
	flagByID   map[int64]int
	flagByName map[string]int
}

func New(tags []Tag, flags []Flag) *Registry {
	r := &Registry{
		tagByID:    make(map[int64]int),
		tagByName:  make(map[string]int),
		flagByID:   make(map[int64]int),
		flagByName: make(map[string]int),
	}
	for _, t := range tags {
		r.putTag(t)
	}
	for _, f := range flags {
		r.putFlag(f)
	}
	return r
}

func (r *Registry) putTag(t Tag) {
	if i, ok := r.tagByID[t.ID]; ok {
		delete(r.tagByName, strings.ToLower(r.tags[i].Name))
		r.tags[i] = t
	} else {
		r.tagByID[t.ID] = len(r.tags)
		r.tags = append(r.tags, t)
	}
	r.tagByName[strings.ToLower(t.Name)] = r.tagByID[t.ID]
}

func (r *Registry) putFlag(f Flag) {
	if i, ok := r.flagByID[f.ID]; ok {
		delete(r.flagByName, strings.ToLower(r.flags[i].Name))
		r.flags[i] = f
	} else {
		r.flagByID[f.ID] = len(r.flags)
		r.flags = append(r.flags, f)
	}
	r.flagByName[strings.ToLower(f.Name)] = r.flagByID[f.ID]
}

// AddTag registers or replaces (by ID) a tag definition.
func (r *Registry) AddTag(t Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putTag(t)
}

// AddFlag registers or replaces (by ID) a flag definition.
func (r *Registry) AddFlag(f Flag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putFlag(f)
}

// TagByName looks a tag up case-insensitively.
func (r *Registry) TagByName(name string) (Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.tagByName[strings.ToLower(name)]
	if !ok {
		return Tag{}, mserrors.UnknownName("tag", name)
	}
	return r.tags[i], nil
}

func (r *Registry) TagByID(id int64) (Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.tagByID[id]
	if !ok {
		return Tag{}, mserrors.UnknownName("tag", fmt.Sprintf("#%d", id))
	}
	return r.tags[i], nil
}

func (r *Registry) HasTag(name string) bool {
	_, err := r.TagByName(name)
	return err == nil
}

func (r *Registry) Tags() []Tag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Tag(nil), r.tags...)
}

func (r *Registry) TagsOfType(vt ValueType) []Tag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Tag
	for _, t := range r.tags {
		if t.Type == vt {
			out = append(out, t)
		}
	}
	return out
}

func (r *Registry) FlagByName(name string) (Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.flagByName[strings.ToLower(name)]
	if !ok {
		return Flag{}, mserrors.UnknownName("flag", name)
	}
	return r.flags[i], nil
}

func (r *Registry) FlagByID(id int64) (Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.flagByID[id]
	if !ok {
		return Flag{}, mserrors.UnknownName("flag", fmt.Sprintf("#%d", id))
	}
	return r.flags[i], nil
}

func (r *Registry) Flags() []Flag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Flag(nil), r.flags...)
}

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Load reads the tag and flag tables of a library.
func Load(ctx context.Context, q Querier) (*Registry, error) {
	tags, err := loadTags(ctx, q)
	if err != nil {
		return nil, err
	}
	flags, err := loadFlags(ctx, q)
	if err != nil {
		return nil, err
	}
	return New(tags, flags), nil
}

func loadTags(ctx context.Context, q Querier) ([]Tag, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, tagname, tagtype, title, private FROM tagids ORDER BY sort, id")
	if err != nil {
		return nil, mserrors.Backend("load tags", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var (
			t       Tag
			vt      string
			title   sql.NullString
			private int
		)
		if err := rows.Scan(&t.ID, &t.Name, &vt, &title, &private); err != nil {
			return nil, mserrors.Backend("load tags", err)
		}
		if t.Type, err = ParseValueType(vt); err != nil {
			return nil, err
		}
		t.Title = title.String
		t.Private = private != 0
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mserrors.Backend("load tags", err)
	}
	return tags, nil
}

func loadFlags(ctx context.Context, q Querier) ([]Flag, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, name, icon FROM flag_names ORDER BY id")
	if err != nil {
		return nil, mserrors.Backend("load flags", err)
	}
	defer rows.Close()

	var flags []Flag
	for rows.Next() {
		var (
			f    Flag
			icon sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.Name, &icon); err != nil {
			return nil, mserrors.Backend("load flags", err)
		}
		f.Icon = icon.String
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, mserrors.Backend("load flags", err)
	}
	return flags, nil
}

// SortTags orders tags by ID, giving a canonical order for comparisons.
func SortTags(tags []Tag) []Tag {
	out := append([]Tag(nil), tags...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SortFlags orders flags by ID.
func SortFlags(flags []Flag) []Flag {
	out := append([]Flag(nil), flags...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
