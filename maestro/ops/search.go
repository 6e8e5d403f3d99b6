package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/maestro/maestro/maestro/criteria"
	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/registry"
	"github.com/maestro/maestro/maestro/storage"
)

// SearchOptions configures a search operation
type SearchOptions struct {
	// Domain limits the search to one domain; 0 searches all of them.
	Domain int64
	// Restrict, if non-nil, limits the search to these element ids.
	Restrict []int64
	Logger   zerolog.Logger
	// Observe is called after each criterion has been processed.
	Observe func(variant string, elapsed time.Duration)
}

// SearchResult is the result of a search operation
type SearchResult struct {
	IDs          []int64
	MatchingTags []criteria.TagValue
	RequestID    string
	Elapsed      time.Duration
}

// Search evaluates crit on a dedicated connection. A nil criterion matches
// every element in scope. crit receives the evaluation output and must not
// be searched concurrently.
func Search(
	ctx context.Context,
	db *sql.DB,
	adapter storage.Adapter,
	reg *registry.Registry,
	crit criteria.Criterion,
	opts SearchOptions,
) (*SearchResult, error) {
	start := time.Now()
	ids, matching, requestID, err := withSession(ctx, db, adapter, reg, opts, func(_ *sql.Conn, s *criteria.Session, scope criteria.Scope) (criteria.IDSet, []criteria.TagValue, error) {
		if crit == nil {
			ids, err := s.ScopeIDs(ctx, scope)
			return ids, nil, err
		}
		if err := crit.Process(ctx, s, scope); err != nil {
			return nil, nil, err
		}
		return crit.Result(), crit.MatchingTags(), nil
	})
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		IDs:          ids.Sorted(),
		MatchingTags: matching,
		RequestID:    requestID,
		Elapsed:      time.Since(start),
	}, nil
}

type sessionFunc func(conn *sql.Conn, s *criteria.Session, scope criteria.Scope) (criteria.IDSet, []criteria.TagValue, error)

// withSession pins a connection, prepares its temp tables and runs fn with
// a fresh session. The session's rows are cleared even if ctx is done.
func withSession(ctx context.Context, db *sql.DB, adapter storage.Adapter, reg *registry.Registry, opts SearchOptions, fn sessionFunc) (criteria.IDSet, []criteria.TagValue, string, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, nil, "", mserrors.Backend("acquire connection", err)
	}
	defer conn.Close()

	if err := adapter.PrepareConn(ctx, conn); err != nil {
		return nil, nil, "", mserrors.Backend("prepare connection", err)
	}

	s := criteria.NewSession(conn, adapter, reg, opts.Logger)
	s.Observe = opts.Observe
	defer func() {
		if err := s.Close(context.WithoutCancel(ctx)); err != nil {
			opts.Logger.Warn().Err(err).Str("request_id", s.RequestID()).Msg("session cleanup failed")
		}
	}()

	scope := criteria.AllElements(opts.Domain)
	if opts.Restrict != nil {
		if scope, err = s.Restrict(ctx, opts.Domain, criteria.NewIDSet(opts.Restrict...)); err != nil {
			return nil, nil, "", err
		}
	}

	ids, matching, err := fn(conn, s, scope)
	if err != nil {
		return nil, nil, "", err
	}
	return ids, matching, s.RequestID(), nil
}
