package criteria

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/registry"
	"github.com/maestro/maestro/maestro/storage"
	"github.com/maestro/maestro/maestro/storage/sqlbuilder"
)

// scratchBatch bounds the rows per multi-row insert into the temp tables.
const scratchBatch = 250

// Scope is the candidate element set a criterion is evaluated against: the
// elements of one domain (0 = all domains), optionally narrowed to an
// explicit id set staged with Session.Restrict.
type Scope struct {
	Domain     int64
	restricted bool
}

// AllElements scopes evaluation to every element of domain.
func AllElements(domain int64) Scope { return Scope{Domain: domain} }

// Restricted reports whether the scope is narrowed to a staged id set.
func (s Scope) Restricted() bool { return s.restricted }

// Session carries everything one search needs: a dedicated connection, the
// registry and a request id that keys this search's rows in the
// connection-local temp tables. A Session must not be shared between
// concurrent searches.
type Session struct {
	conn      storage.Querier
	sqlt      storage.SQL
	style     sqlbuilder.PlaceholderStyle
	reg       *registry.Registry
	requestID string
	log       zerolog.Logger

	// Observe, if set, is called after each criterion is processed.
	Observe func(variant string, elapsed time.Duration)
}

// NewSession binds a search to conn, which must have been prepared with
// Adapter.PrepareConn.
func NewSession(conn storage.Querier, adapter storage.Adapter, reg *registry.Registry, log zerolog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		conn:      conn,
		sqlt:      adapter.SQL(),
		style:     adapter.PlaceholderStyle(),
		reg:       reg,
		requestID: id,
		log:       log.With().Str("request_id", id).Logger(),
	}
}

func (s *Session) RequestID() string            { return s.requestID }
func (s *Session) Registry() *registry.Registry { return s.reg }

// Close removes this session's rows from the temp tables. The tables stay
// since they belong to the connection.
func (s *Session) Close(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, s.sqlt.ClearScratch, s.requestID); err != nil {
		return mserrors.Backend("clear scratch", err)
	}
	if _, err := s.conn.ExecContext(ctx, s.sqlt.ClearScope, s.requestID); err != nil {
		return mserrors.Backend("clear scope", err)
	}
	return nil
}

// Restrict stages ids and returns a scope limited to them within domain.
// Staging replaces any previously restricted set of this session.
func (s *Session) Restrict(ctx context.Context, domain int64, ids IDSet) (Scope, error) {
	if _, err := s.conn.ExecContext(ctx, s.sqlt.ClearScope, s.requestID); err != nil {
		return Scope{}, mserrors.Backend("clear scope", err)
	}
	sorted := ids.Sorted()
	for len(sorted) > 0 {
		n := min(len(sorted), scratchBatch)
		b := sqlbuilder.New(s.style)
		rows := make([]string, n)
		for i, id := range sorted[:n] {
			rows[i] = "(" + b.Arg(s.requestID) + ", " + b.Arg(id) + ")"
		}
		q := "INSERT INTO search_scope(request_id, element_id) VALUES " + strings.Join(rows, ", ")
		if _, err := s.conn.ExecContext(ctx, q, b.Args()...); err != nil {
			return Scope{}, mserrors.Backend("stage scope", err)
		}
		sorted = sorted[n:]
	}
	return Scope{Domain: domain, restricted: true}, nil
}

// from returns the FROM clause selecting the scope's elements as "el".
// Placeholders are allocated in text order, so callers emit from before
// any later fragment and scopeConds where the WHERE clause starts.
func (s *Session) from(b *sqlbuilder.Builder, scope Scope) string {
	from := "elements el"
	if scope.restricted {
		from += " JOIN search_scope sc ON sc.element_id = el.id AND sc.request_id = " + b.Arg(s.requestID)
	}
	return from
}

func (s *Session) scopeConds(b *sqlbuilder.Builder, scope Scope) []string {
	if scope.Domain == 0 {
		return nil
	}
	return []string{"el.domain = " + b.Arg(scope.Domain)}
}

// filter returns the ids in scope for which cond holds, or for which it does
// not hold when negate is set. cond may reference "el" and must allocate its
// placeholders from the given builder.
func (s *Session) filter(ctx context.Context, scope Scope, negate bool, cond func(b *sqlbuilder.Builder) string) (IDSet, error) {
	b := sqlbuilder.New(s.style)
	from := s.from(b, scope)
	conds := s.scopeConds(b, scope)
	if cond != nil {
		c := cond(b)
		if negate {
			c = "NOT (" + c + ")"
		}
		conds = append(conds, c)
	}
	q := "SELECT el.id FROM " + from
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	return s.queryIDs(ctx, q, b.Args())
}

// ScopeIDs returns every element id in scope.
func (s *Session) ScopeIDs(ctx context.Context, scope Scope) (IDSet, error) {
	return s.filter(ctx, scope, false, nil)
}

func (s *Session) queryIDs(ctx context.Context, q string, args []any) (IDSet, error) {
	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mserrors.Backend("search", err)
	}
	defer rows.Close()
	out := make(IDSet)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mserrors.Backend("search", err)
		}
		out.Add(id)
	}
	if err := rows.Err(); err != nil {
		return nil, mserrors.Backend("search", err)
	}
	return out, nil
}

// stage replaces this session's scratch rows with pairs.
func (s *Session) stage(ctx context.Context, pairs []TagValue) error {
	if _, err := s.conn.ExecContext(ctx, s.sqlt.ClearScratch, s.requestID); err != nil {
		return mserrors.Backend("clear scratch", err)
	}
	for len(pairs) > 0 {
		n := min(len(pairs), scratchBatch)
		b := sqlbuilder.New(s.style)
		rows := make([]string, n)
		for i, p := range pairs[:n] {
			rows[i] = "(" + b.Arg(s.requestID) + ", " + b.Arg(p.TagID) + ", " + b.Arg(p.ValueID) + ")"
		}
		q := "INSERT INTO search_scratch(request_id, tag_id, value_id) VALUES " + strings.Join(rows, ", ")
		if _, err := s.conn.ExecContext(ctx, q, b.Args()...); err != nil {
			return mserrors.Backend("stage values", err)
		}
		pairs = pairs[n:]
	}
	return nil
}

// stagedMatches returns the distinct staged pairs assigned to an element in
// scope, or nil if there are more than MatchingTagsLimit.
func (s *Session) stagedMatches(ctx context.Context, scope Scope) ([]TagValue, error) {
	b := sqlbuilder.New(s.style)
	q := "SELECT DISTINCT t.tag_id, t.value_id FROM " + s.from(b, scope) +
		" JOIN tags t ON t.element_id = el.id" +
		" JOIN search_scratch x ON x.tag_id = t.tag_id AND x.value_id = t.value_id AND x.request_id = " + b.Arg(s.requestID)
	if conds := s.scopeConds(b, scope); len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " LIMIT " + b.Arg(MatchingTagsLimit+1)

	rows, err := s.conn.QueryContext(ctx, q, b.Args()...)
	if err != nil {
		return nil, mserrors.Backend("matching tags", err)
	}
	defer rows.Close()
	out := []TagValue{}
	for rows.Next() {
		var tv TagValue
		if err := rows.Scan(&tv.TagID, &tv.ValueID); err != nil {
			return nil, mserrors.Backend("matching tags", err)
		}
		out = append(out, tv)
	}
	if err := rows.Err(); err != nil {
		return nil, mserrors.Backend("matching tags", err)
	}
	if len(out) > MatchingTagsLimit {
		return nil, nil
	}
	return out, nil
}

// stagedCondition matches elements carrying any staged pair.
func (s *Session) stagedCondition(b *sqlbuilder.Builder) string {
	return "EXISTS (SELECT 1 FROM tags t JOIN search_scratch x ON x.tag_id = t.tag_id AND x.value_id = t.value_id" +
		" WHERE x.request_id = " + b.Arg(s.requestID) + " AND t.element_id = el.id)"
}

// searchPairs runs the staged part of a tag search: stage pairs, collect
// matching tags unless negated, then select elements. ctx is checked between
// phases.
func (s *Session) searchPairs(ctx context.Context, scope Scope, negate bool, pairs []TagValue) (IDSet, []TagValue, error) {
	if len(pairs) == 0 {
		if !negate {
			return IDSet{}, []TagValue{}, nil
		}
		ids, err := s.ScopeIDs(ctx, scope)
		return ids, nil, err
	}
	if err := s.stage(ctx, pairs); err != nil {
		return nil, nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, nil, err
	}
	var matching []TagValue
	if !negate {
		var err error
		if matching, err = s.stagedMatches(ctx, scope); err != nil {
			return nil, nil, err
		}
		if err := checkCancelled(ctx); err != nil {
			return nil, nil, err
		}
	}
	ids, err := s.filter(ctx, scope, negate, s.stagedCondition)
	if err != nil {
		return nil, nil, err
	}
	return ids, matching, nil
}

func (s *Session) observe(variant string, start time.Time) {
	elapsed := time.Since(start)
	s.log.Debug().Str("criterion", variant).Dur("elapsed", elapsed).Msg("processed")
	if s.Observe != nil {
		s.Observe(variant, elapsed)
	}
}

func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return mserrors.Backend("search aborted", err)
	}
	return nil
}
