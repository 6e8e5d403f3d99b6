package maestro

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/maestro/maestro/maestro/criteria"
	"github.com/maestro/maestro/maestro/ops"
)

// LibraryOptions configures library behavior
type LibraryOptions struct {
	Logger zerolog.Logger
	// Metrics receives the library's collectors; nil leaves them unregistered.
	Metrics prometheus.Registerer
	// CacheSize is the number of cached search results; negative disables
	// the cache.
	CacheSize int
	// Parallelism bounds SearchAll.
	Parallelism int
	// DefaultDomain is used by PutElement for documents without a domain.
	DefaultDomain string
}

// DefaultLibraryOptions returns sensible defaults
func DefaultLibraryOptions() LibraryOptions {
	return LibraryOptions{
		Logger:        zerolog.Nop(),
		CacheSize:     DefaultCacheSize,
		Parallelism:   DefaultParallelism,
		DefaultDomain: DefaultDomain,
	}
}

func (o LibraryOptions) withDefaults() LibraryOptions {
	if o.CacheSize == 0 {
		o.CacheSize = DefaultCacheSize
	}
	if o.Parallelism <= 0 {
		o.Parallelism = DefaultParallelism
	}
	if o.DefaultDomain == "" {
		o.DefaultDomain = DefaultDomain
	}
	return o
}

// SearchOptions configures a search operation
type SearchOptions struct {
	// Domain limits the search to the named domain; empty searches all.
	Domain string
	// Restrict, if non-nil, limits the search to these element ids.
	Restrict []int64
}

// SearchResult is the outcome of one search.
type SearchResult struct {
	// Query is the canonical form of the parsed search string.
	Query        string
	IDs          []int64
	MatchingTags []criteria.TagValue
	Cached       bool
	Elapsed      time.Duration
}

// Element is one file or container of the library.
type Element struct {
	ID     int64
	Domain int64
	File   bool
	URL    string
}

type (
	Domain     = ops.Domain
	ValueCount = ops.ValueCount
	Stats      = ops.LibraryStats
	TagStats   = ops.TagStats
)
