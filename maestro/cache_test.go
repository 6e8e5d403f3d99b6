package maestro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro/maestro/maestro/criteria"
	"github.com/maestro/maestro/maestro/registry"
)

func TestCacheKey(t *testing.T) {
	base := computeCacheKey("artist=queen", 1, nil)
	assert.Equal(t, base, computeCacheKey("artist=queen", 1, nil))
	assert.NotEqual(t, base, computeCacheKey("artist=queen", 2, nil))
	assert.NotEqual(t, base, computeCacheKey("artist=queens", 1, nil))
	assert.NotEqual(t, base, computeCacheKey("artist=queen", 1, []int64{}))
	assert.Equal(t,
		computeCacheKey("x", 0, []int64{3, 1, 2}),
		computeCacheKey("x", 0, []int64{1, 2, 3}),
		"restriction order does not matter")
}

func TestCacheInvalidate(t *testing.T) {
	reg := registry.New(
		[]registry.Tag{{ID: 1, Name: "artist", Type: registry.Varchar}, {ID: 2, Name: "title", Type: registry.Varchar}},
		[]registry.Flag{{ID: 1, Name: "favorite"}},
	)
	p := criteria.NewParser(reg)
	artist, _ := reg.TagByName("artist")

	c, err := newResultCache(8)
	require.NoError(t, err)
	for i, q := range []string{"artist=queen", "title=heroes", "{flag=favorite}", ""} {
		crit, err := p.Parse(q)
		require.NoError(t, err)
		c.add(computeCacheKey(q, 0, nil), &cacheEntry{crit: crit, ids: []int64{int64(i)}})
	}
	require.Equal(t, 4, c.len())

	n := c.invalidate(func(crit criteria.Criterion) bool { return crit.IsUsingTag(artist) })
	assert.Equal(t, 1, n)
	_, ok := c.get(computeCacheKey("artist=queen", 0, nil))
	assert.False(t, ok)
	e, ok := c.get(computeCacheKey("title=heroes", 0, nil))
	require.True(t, ok)
	assert.Equal(t, []int64{1}, e.ids)

	// The empty query only depends on the element set.
	c.invalidate(func(criteria.Criterion) bool { return true })
	assert.Equal(t, 1, c.len())

	c.purge()
	assert.Zero(t, c.len())
}

func TestDisabledCache(t *testing.T) {
	c, err := newResultCache(-1)
	require.NoError(t, err)
	assert.Nil(t, c)
	c.add(computeCacheKey("x", 0, nil), &cacheEntry{})
	_, ok := c.get(computeCacheKey("x", 0, nil))
	assert.False(t, ok)
	assert.Zero(t, c.invalidate(func(criteria.Criterion) bool { return true }))
	c.purge()
}

func TestCopyResult(t *testing.T) {
	e := &cacheEntry{ids: []int64{1, 2}}
	ids, matching := copyResult(e)
	ids[0] = 9
	assert.Equal(t, int64(1), e.ids[0])
	assert.Nil(t, matching)

	ids, matching = copyResult(&cacheEntry{matching: []criteria.TagValue{}})
	assert.NotNil(t, ids)
	assert.NotNil(t, matching)
}
