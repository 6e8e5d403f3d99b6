package maestro

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/maestro/maestro/internal/logger"
	"github.com/maestro/maestro/internal/metrics"
	"github.com/maestro/maestro/maestro/criteria"
	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/ops"
	"github.com/maestro/maestro/maestro/registry"
	"github.com/maestro/maestro/maestro/storage"
)

// Library represents an open maestro library
type Library struct {
	adapter storage.Adapter
	db      *sql.DB
	reg     *registry.Registry
	parser  *criteria.Parser
	opts    LibraryOptions
	log     zerolog.Logger
	metrics *metrics.Metrics

	// cacheMu orders result stores against write invalidation; gen counts
	// committed writes.
	cacheMu sync.Mutex
	gen     uint64
	cache   *resultCache
}

// Create initializes a library in the adapter's database, or upgrades and
// opens the one already there.
func Create(ctx context.Context, adapter storage.Adapter, opts LibraryOptions) (*Library, error) {
	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, mserrors.Backend("connect to database", err)
	}
	if err := storage.ApplyMigrations(ctx, db, adapter.PlaceholderStyle(), adapter.Migrations()); err != nil {
		db.Close()
		return nil, mserrors.Backend("apply migrations", err)
	}
	if _, err := db.ExecContext(ctx, adapter.SQL().SetMeta, storage.MetaMagicKey, storage.MetaMagicValue); err != nil {
		db.Close()
		return nil, mserrors.Backend("write library meta", err)
	}
	return newLibrary(ctx, adapter, db, opts)
}

// Open opens an existing library
func Open(ctx context.Context, adapter storage.Adapter, opts LibraryOptions) (*Library, error) {
	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, mserrors.Backend("connect to database", err)
	}

	var magic string
	if err := db.QueryRowContext(ctx, adapter.SQL().GetMeta, storage.MetaMagicKey).Scan(&magic); err != nil || magic != storage.MetaMagicValue {
		db.Close()
		return nil, mserrors.NotFound("maestro library at " + adapter.LibraryID())
	}

	if err := storage.ApplyMigrations(ctx, db, adapter.PlaceholderStyle(), adapter.Migrations()); err != nil {
		db.Close()
		return nil, mserrors.Backend("apply migrations", err)
	}
	return newLibrary(ctx, adapter, db, opts)
}

func newLibrary(ctx context.Context, adapter storage.Adapter, db *sql.DB, opts LibraryOptions) (*Library, error) {
	opts = opts.withDefaults()
	reg, err := registry.Load(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	cache, err := newResultCache(opts.CacheSize)
	if err != nil {
		db.Close()
		return nil, mserrors.Wrap(mserrors.ErrInvalid, "result cache", err)
	}
	lib := &Library{
		adapter: adapter,
		db:      db,
		reg:     reg,
		parser:  criteria.NewParser(reg),
		opts:    opts,
		log:     logger.Component(opts.Logger, "library"),
		metrics: metrics.New(opts.Metrics),
		cache:   cache,
	}
	lib.log.Debug().
		Str("backend", string(adapter.Backend())).
		Str("library", adapter.LibraryID()).
		Int("tags", len(reg.Tags())).
		Int("flags", len(reg.Flags())).
		Msg("library opened")
	return lib, nil
}

// Close closes the library
func (lib *Library) Close() error {
	if lib.db != nil {
		if err := lib.db.Close(); err != nil {
			return mserrors.Backend("close database", err)
		}
	}
	return lib.adapter.Close()
}

// Registry returns the tag and flag definitions of the library.
func (lib *Library) Registry() *registry.Registry { return lib.reg }

// Adapter returns the underlying storage adapter
func (lib *Library) Adapter() storage.Adapter { return lib.adapter }

// DB returns the underlying database connection (for advanced use)
func (lib *Library) DB() *sql.DB { return lib.db }

// Parse turns a search string into a criterion. An empty string gives nil.
func (lib *Library) Parse(query string) (criteria.Criterion, error) {
	return lib.parser.Parse(query)
}

// Search parses query and evaluates it. Results of repeated searches are
// served from the cache until a write touches what the query uses.
func (lib *Library) Search(ctx context.Context, query string, sopts SearchOptions) (*SearchResult, error) {
	crit, err := lib.Parse(query)
	if err != nil {
		lib.metrics.RecordSearch(metrics.StatusError, 0, 0)
		return nil, err
	}
	return lib.SearchCriterion(ctx, crit, sopts)
}

// SearchCriterion evaluates an already parsed criterion; nil matches every
// element in scope. crit receives the evaluation output only when it is
// evaluated. A cache hit leaves crit untouched, so callers read the ids from
// the returned SearchResult.
func (lib *Library) SearchCriterion(ctx context.Context, crit criteria.Criterion, sopts SearchOptions) (*SearchResult, error) {
	start := time.Now()
	canonical := ""
	if crit != nil {
		canonical = crit.String()
	}

	domainID, err := lib.domainID(ctx, sopts.Domain)
	if err != nil {
		lib.metrics.RecordSearch(metrics.StatusError, time.Since(start), 0)
		return nil, err
	}

	key := computeCacheKey(canonical, domainID, sopts.Restrict)
	if e, ok := lib.cache.get(key); ok {
		lib.metrics.CacheHits.Inc()
		ids, matching := copyResult(e)
		elapsed := time.Since(start)
		lib.metrics.RecordSearch(metrics.StatusCached, elapsed, len(ids))
		return &SearchResult{Query: canonical, IDs: ids, MatchingTags: matching, Cached: true, Elapsed: elapsed}, nil
	}
	if lib.cache != nil {
		lib.metrics.CacheMisses.Inc()
	}

	lib.cacheMu.Lock()
	gen := lib.gen
	lib.cacheMu.Unlock()

	res, err := ops.Search(ctx, lib.db, lib.adapter, lib.reg, crit, ops.SearchOptions{
		Domain:   domainID,
		Restrict: sopts.Restrict,
		Logger:   lib.log,
		Observe:  lib.metrics.RecordCriterion,
	})
	elapsed := time.Since(start)
	if err != nil {
		status := metrics.StatusError
		if mserrors.Is(err, mserrors.ErrCancelled) {
			status = metrics.StatusCancelled
		}
		lib.metrics.RecordSearch(status, elapsed, 0)
		lib.log.Debug().Err(err).Str("query", canonical).Msg("search failed")
		return nil, err
	}
	lib.metrics.RecordSearch(metrics.StatusOK, elapsed, len(res.IDs))
	lib.log.Debug().
		Str("query", canonical).
		Str("request_id", res.RequestID).
		Int("results", len(res.IDs)).
		Dur("elapsed", elapsed).
		Msg("search completed")

	lib.cacheMu.Lock()
	if lib.gen == gen {
		lib.cache.add(key, &cacheEntry{crit: crit, ids: res.IDs, matching: res.MatchingTags})
	}
	lib.cacheMu.Unlock()

	ids, matching := copyResult(&cacheEntry{ids: res.IDs, matching: res.MatchingTags})
	return &SearchResult{Query: canonical, IDs: ids, MatchingTags: matching, Elapsed: elapsed}, nil
}

// SearchAll evaluates several search strings concurrently. Results are in
// the order of queries; the first failure cancels the rest.
func (lib *Library) SearchAll(ctx context.Context, queries []string, sopts SearchOptions) ([]*SearchResult, error) {
	results := make([]*SearchResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lib.opts.Parallelism)
	for i, q := range queries {
		g.Go(func() error {
			res, err := lib.Search(gctx, q, sopts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (lib *Library) domainID(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, nil
	}
	return ops.DomainByName(ctx, lib.db, lib.adapter.SQL(), name)
}

// changed records a committed write and drops the cached results it may
// have affected. A nil stale drops everything.
func (lib *Library) changed(operation string, stale func(criteria.Criterion) bool) {
	lib.metrics.RecordWrite(operation)
	lib.cacheMu.Lock()
	defer lib.cacheMu.Unlock()
	lib.gen++
	if stale == nil {
		lib.cache.purge()
		return
	}
	if n := lib.cache.invalidate(stale); n > 0 {
		lib.log.Debug().Str("operation", operation).Int("entries", n).Msg("cache invalidated")
	}
}

// AddDomain returns the id of the named domain, creating it if needed.
func (lib *Library) AddDomain(ctx context.Context, name string) (int64, error) {
	return ops.EnsureDomain(ctx, lib.db, lib.adapter.SQL(), name)
}

// Domains lists the domains of the library.
func (lib *Library) Domains(ctx context.Context) ([]Domain, error) {
	return ops.ListDomains(ctx, lib.db, lib.adapter.SQL())
}

// AddTag defines a new tag.
func (lib *Library) AddTag(ctx context.Context, name string, vt registry.ValueType, title string, private bool) (registry.Tag, error) {
	t, err := ops.AddTag(ctx, lib.db, lib.adapter.SQL(), lib.reg, name, vt, title, private)
	if err != nil {
		return registry.Tag{}, err
	}
	// Untagged text searches expand to every varchar tag at parse time.
	lib.changed("add_tag", nil)
	return t, nil
}

// AddFlag defines a new flag.
func (lib *Library) AddFlag(ctx context.Context, name, icon string) (registry.Flag, error) {
	f, err := ops.AddFlag(ctx, lib.db, lib.adapter.SQL(), lib.reg, name, icon)
	if err != nil {
		return registry.Flag{}, err
	}
	lib.changed("add_flag", func(c criteria.Criterion) bool { return c.IsUsingFlag(f) })
	return f, nil
}

// PutElement inserts a new element from a JSON document and returns its id.
// See ops.PreparePut for the document shape.
func (lib *Library) PutElement(ctx context.Context, docJSON []byte) (int64, error) {
	start := time.Now()
	prep, err := ops.PreparePut(lib.reg, docJSON, lib.opts.DefaultDomain)
	if err != nil {
		return 0, err
	}

	var id int64
	err = lib.inTx(ctx, func(tx *sql.Tx) error {
		domainID, err := ops.EnsureDomain(ctx, tx, lib.adapter.SQL(), prep.Domain)
		if err != nil {
			return err
		}
		id, err = ops.ExecutePut(ctx, tx, lib.adapter.SQL(), domainID, prep)
		return err
	})
	logger.LogDbOperation(lib.log, "put", time.Since(start), 1, err)
	if err != nil {
		return 0, err
	}
	lib.changed("put", nil)
	return id, nil
}

// Element returns the element with the given id.
func (lib *Library) Element(ctx context.Context, id int64) (Element, error) {
	var (
		e    Element
		file int
		url  sql.NullString
	)
	err := lib.db.QueryRowContext(ctx, lib.adapter.SQL().GetElement, id).Scan(&e.ID, &e.Domain, &file, &url)
	if errors.Is(err, sql.ErrNoRows) {
		return Element{}, mserrors.NotFound("element")
	}
	if err != nil {
		return Element{}, mserrors.Backend("get element", err)
	}
	e.File = file != 0
	e.URL = url.String
	return e, nil
}

// SetTagValues replaces the values of one tag of an element.
func (lib *Library) SetTagValues(ctx context.Context, id int64, tagName string, values []string) error {
	tag, err := lib.reg.TagByName(tagName)
	if err != nil {
		return err
	}
	if tag.Type == registry.Date {
		for _, v := range values {
			if _, err := registry.ParseDate(v); err != nil {
				return err
			}
		}
	}
	err = lib.inTx(ctx, func(tx *sql.Tx) error {
		if err := lib.requireElement(ctx, tx, id); err != nil {
			return err
		}
		return ops.SetTagValues(ctx, tx, lib.adapter.SQL(), id, tag, values)
	})
	if err != nil {
		return err
	}
	lib.changed("set_tag", func(c criteria.Criterion) bool { return c.IsUsingTag(tag) })
	return nil
}

// SetFlags replaces the flags of an element.
func (lib *Library) SetFlags(ctx context.Context, id int64, flagNames []string) error {
	flags := make([]registry.Flag, 0, len(flagNames))
	for _, name := range flagNames {
		f, err := lib.reg.FlagByName(name)
		if err != nil {
			return err
		}
		flags = append(flags, f)
	}
	err := lib.inTx(ctx, func(tx *sql.Tx) error {
		if err := lib.requireElement(ctx, tx, id); err != nil {
			return err
		}
		return ops.SetFlags(ctx, tx, lib.adapter.SQL(), id, flags)
	})
	if err != nil {
		return err
	}
	// The element's previous flags are not known here, so every flag counts.
	all := lib.reg.Flags()
	lib.changed("set_flags", func(c criteria.Criterion) bool {
		for _, f := range all {
			if c.IsUsingFlag(f) {
				return true
			}
		}
		return false
	})
	return nil
}

// SetSticker stores a sticker of an element. Empty data removes every
// sticker of that type.
func (lib *Library) SetSticker(ctx context.Context, id int64, stickerType, data string) error {
	if !registry.ValidName(stickerType) {
		return mserrors.Invalid("invalid sticker type " + stickerType)
	}
	err := lib.inTx(ctx, func(tx *sql.Tx) error {
		if err := lib.requireElement(ctx, tx, id); err != nil {
			return err
		}
		if data == "" {
			return ops.RemoveSticker(ctx, tx, lib.adapter.SQL(), id, stickerType)
		}
		return ops.SetSticker(ctx, tx, lib.adapter.SQL(), id, ops.StickerInput{Type: stickerType, Data: data})
	})
	if err != nil {
		return err
	}
	lib.changed("set_sticker", func(c criteria.Criterion) bool { return c.IsUsingSticker(stickerType) })
	return nil
}

// DeleteElement removes elements and returns how many existed.
func (lib *Library) DeleteElement(ctx context.Context, ids ...int64) (int, error) {
	start := time.Now()
	n, err := ops.DeleteElements(ctx, lib.db, lib.adapter.SQL(), ids)
	logger.LogDbOperation(lib.log, "delete", time.Since(start), n, err)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		lib.changed("delete", nil)
	}
	return n, nil
}

// Batch executes a batch of operations in one transaction
func (lib *Library) Batch(ctx context.Context, b Batch) (int, error) {
	if b.Empty() {
		return 0, nil
	}
	start := time.Now()
	sqlt := lib.adapter.SQL()

	count := 0
	err := lib.inTx(ctx, func(tx *sql.Tx) error {
		for _, op := range b.ops {
			switch op.Kind {
			case batchPut:
				prep, err := ops.PreparePut(lib.reg, op.Doc, lib.opts.DefaultDomain)
				if err != nil {
					return err
				}
				domainID, err := ops.EnsureDomain(ctx, tx, sqlt, prep.Domain)
				if err != nil {
					return err
				}
				if _, err := ops.ExecutePut(ctx, tx, sqlt, domainID, prep); err != nil {
					return mserrors.Backend("execute put", err)
				}
			case batchDelete:
				found, err := ops.DeleteByElementID(ctx, tx, sqlt, op.ID)
				if err != nil {
					return mserrors.Backend("delete element", err)
				}
				if !found {
					continue
				}
			}
			count++
		}
		return nil
	})
	logger.LogDbOperation(lib.log, "batch", time.Since(start), count, err)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		lib.changed("batch", nil)
	}
	return count, nil
}

// PurgeValues removes tag values no element uses any more.
func (lib *Library) PurgeValues(ctx context.Context) (int64, error) {
	return ops.PurgeOrphanValues(ctx, lib.db, lib.adapter.SQL())
}

// DiscoverValues lists the most used values of a tag, counting only
// elements matching where when it is not empty.
func (lib *Library) DiscoverValues(ctx context.Context, tagName, where string, sopts SearchOptions, top int) ([]ValueCount, error) {
	tag, err := lib.reg.TagByName(tagName)
	if err != nil {
		return nil, err
	}
	crit, err := lib.Parse(where)
	if err != nil {
		return nil, err
	}
	domainID, err := lib.domainID(ctx, sopts.Domain)
	if err != nil {
		return nil, err
	}
	return ops.DiscoverValues(ctx, lib.db, lib.adapter, lib.reg, tag, crit, ops.SearchOptions{
		Domain:   domainID,
		Restrict: sopts.Restrict,
		Logger:   lib.log,
		Observe:  lib.metrics.RecordCriterion,
	}, top)
}

// Stats computes library-wide counts.
func (lib *Library) Stats(ctx context.Context) (*Stats, error) {
	return ops.Stats(ctx, lib.db)
}

// TagStats computes usage statistics for one tag.
func (lib *Library) TagStats(ctx context.Context, tagName string) (*TagStats, error) {
	tag, err := lib.reg.TagByName(tagName)
	if err != nil {
		return nil, err
	}
	return ops.StatsForTag(ctx, lib.db, lib.adapter, tag)
}

// Optimize runs the backend's maintenance (analyze, vacuum).
func (lib *Library) Optimize(ctx context.Context) error {
	if err := lib.adapter.Optimize(ctx, lib.db); err != nil {
		return mserrors.Backend("optimize", err)
	}
	return nil
}

func (lib *Library) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := lib.db.BeginTx(ctx, nil)
	if err != nil {
		return mserrors.Backend("begin transaction", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		var me *mserrors.Error
		if errors.As(err, &me) {
			return err
		}
		return mserrors.Backend("write", err)
	}
	if err := tx.Commit(); err != nil {
		return mserrors.Backend("commit transaction", err)
	}
	return nil
}

func (lib *Library) requireElement(ctx context.Context, tx *sql.Tx, id int64) error {
	var (
		eid, domain int64
		file        int
		url         sql.NullString
	)
	err := tx.QueryRowContext(ctx, lib.adapter.SQL().GetElement, id).Scan(&eid, &domain, &file, &url)
	if errors.Is(err, sql.ErrNoRows) {
		return mserrors.NotFound("element")
	}
	if err != nil {
		return mserrors.Backend("get element", err)
	}
	return nil
}
