package maestro

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/maestro/maestro/maestro/criteria"
)

type cacheKey [32]byte

type cacheEntry struct {
	crit     criteria.Criterion
	ids      []int64
	matching []criteria.TagValue
}

// resultCache holds search results by canonical query, domain and
// restriction. A nil *resultCache is a disabled cache.
type resultCache struct {
	lru *lru.Cache[cacheKey, *cacheEntry]
}

func newResultCache(size int) (*resultCache, error) {
	if size < 0 {
		return nil, nil
	}
	c, err := lru.New[cacheKey, *cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &resultCache{lru: c}, nil
}

func computeCacheKey(query string, domain int64, restrict []int64) cacheKey {
	h := sha256.New()
	h.Write([]byte(query))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(domain))
	h.Write(buf[:])
	if restrict != nil {
		// A nil restriction and an empty one differ.
		h.Write([]byte{1})
		ids := append([]int64(nil), restrict...)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			binary.BigEndian.PutUint64(buf[:], uint64(id))
			h.Write(buf[:])
		}
	}
	var k cacheKey
	copy(k[:], h.Sum(nil))
	return k
}

func (c *resultCache) get(k cacheKey) (*cacheEntry, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(k)
}

func (c *resultCache) add(k cacheKey, e *cacheEntry) {
	if c == nil {
		return
	}
	c.lru.Add(k, e)
}

// invalidate drops every entry whose criterion satisfies stale. Entries of
// the empty query match by scope only and are never stale.
func (c *resultCache) invalidate(stale func(criteria.Criterion) bool) int {
	if c == nil {
		return 0
	}
	removed := 0
	for _, k := range c.lru.Keys() {
		e, ok := c.lru.Peek(k)
		if !ok || e.crit == nil || !stale(e.crit) {
			continue
		}
		if c.lru.Remove(k) {
			removed++
		}
	}
	return removed
}

func (c *resultCache) purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

func (c *resultCache) len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func copyResult(e *cacheEntry) ([]int64, []criteria.TagValue) {
	ids := make([]int64, len(e.ids))
	copy(ids, e.ids)
	var matching []criteria.TagValue
	if e.matching != nil {
		matching = append([]criteria.TagValue{}, e.matching...)
	}
	return ids, matching
}
