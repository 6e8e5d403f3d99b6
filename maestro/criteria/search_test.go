package criteria_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro/maestro/maestro/criteria"
	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/ops"
	"github.com/maestro/maestro/maestro/registry"
	"github.com/maestro/maestro/maestro/storage"
	"github.com/maestro/maestro/maestro/storage/sqlite"
)

type fixture struct {
	db      *sql.DB
	adapter storage.Adapter
	reg     *registry.Registry
	ids     map[string]int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	adapter := sqlite.New(filepath.Join(t.TempDir(), "library.db"))
	db, err := adapter.Connect(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.ApplyMigrations(ctx, db, adapter.PlaceholderStyle(), adapter.Migrations()))

	f := &fixture{db: db, adapter: adapter, reg: registry.New(nil, nil), ids: map[string]int64{}}
	sqlt := adapter.SQL()
	for _, def := range []struct {
		name string
		vt   registry.ValueType
	}{
		{"artist", registry.Varchar},
		{"title", registry.Varchar},
		{"album", registry.Varchar},
		{"genre", registry.Varchar},
		{"comment", registry.Text},
		{"date", registry.Date},
		{"recorded", registry.Date},
	} {
		_, err := ops.AddTag(ctx, db, sqlt, f.reg, def.name, def.vt, "", false)
		require.NoError(t, err)
	}
	for _, name := range []string{"favorite", "live"} {
		_, err := ops.AddFlag(ctx, db, sqlt, f.reg, name, "")
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) put(t *testing.T, name, doc string) {
	t.Helper()
	ctx := context.Background()
	sqlt := f.adapter.SQL()

	prep, err := ops.PreparePut(f.reg, []byte(doc), "music")
	require.NoError(t, err, name)
	domainID, err := ops.EnsureDomain(ctx, f.db, sqlt, prep.Domain)
	require.NoError(t, err)

	tx, err := f.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()
	id, err := ops.ExecutePut(ctx, tx, sqlt, domainID, prep)
	require.NoError(t, err, name)
	require.NoError(t, tx.Commit())
	f.ids[name] = id
}

func (f *fixture) id(t *testing.T, name string) int64 {
	t.Helper()
	id, ok := f.ids[name]
	require.True(t, ok, "unknown element %s", name)
	return id
}

func (f *fixture) want(t *testing.T, names ...string) []int64 {
	t.Helper()
	out := []int64{}
	for _, n := range names {
		out = append(out, f.id(t, n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (f *fixture) run(t *testing.T, q string, opts ops.SearchOptions) *ops.SearchResult {
	t.Helper()
	c, err := criteria.NewParser(f.reg).Parse(q)
	require.NoError(t, err, q)
	res, err := ops.Search(context.Background(), f.db, f.adapter, f.reg, c, opts)
	require.NoError(t, err, q)
	return res
}

func (f *fixture) domain(t *testing.T, name string) int64 {
	t.Helper()
	id, err := ops.DomainByName(context.Background(), f.db, f.adapter.SQL(), name)
	require.NoError(t, err)
	return id
}

func musicLibrary(t *testing.T) *fixture {
	f := newFixture(t)
	f.put(t, "abbey", `{"file": false, "tags": {"album": "Abbey Road", "artist": "The Beatles", "date": "1969"}}`)
	f.put(t, "together", `{"tags": {"artist": "The Beatles", "title": "Come Together", "date": "1969-09-26"}, "flags": ["favorite"]}`)
	f.put(t, "joga", `{"tags": {"artist": "Björk", "title": "Jóga", "date": "1997"}, "stickers": {"rating": "5"}}`)
	f.put(t, "queen", `{"tags": {"artist": "Queen", "title": "Live 1975", "date": "1976"}, "flags": ["live"]}`)
	f.put(t, "nilsson", `{"tags": {"artist": "Harry Nilsson", "title": "Without You", "date": "1971", "comment": "recorded in London"}, "flags": ["favorite"]}`)
	f.put(t, "belafonte", `{"tags": {"artist": "Harry Belafonte", "title": "Day-O", "date": "1956"}}`)
	f.put(t, "symphony", `{"tags": {"artist": "Beethoven", "title": "Symphony No 9", "genre": "Classical"}}`)
	f.put(t, "narrator", `{"domain": "books", "tags": {"artist": "Harry Potter Narrator", "title": "Chamber", "date": "1998"}}`)
	f.put(t, "harrys", `{"tags": {"artist": "harrys bar band"}}`)
	return f
}

func TestSearch(t *testing.T) {
	f := musicLibrary(t)
	tests := []struct {
		q    string
		want []string
	}{
		{"harry", []string{"nilsson", "belafonte", "narrator", "harrys"}},
		{"#harry", []string{"nilsson", "belafonte", "narrator"}},
		{"_Harry", []string{"nilsson", "belafonte", "narrator"}},
		{"_harry", []string{"harrys"}},
		{"bjork", []string{"joga"}},
		{"BJÖRK", []string{"joga"}},
		{"_bjork", nil},
		{"joga", []string{"joga"}},
		{"{tag=artist=Harry} {flag=favorite}", []string{"nilsson"}},
		{"1975", []string{"queen"}},
		{"1969", []string{"abbey", "together"}},
		{">=1990", []string{"joga", "narrator"}},
		{"1970-1979", []string{"queen", "nilsson"}},
		{"date=1969", []string{"abbey", "together"}},
		{"<1960", []string{"belafonte"}},
		{"recorded=1969", nil},
		{"{file}", []string{"together", "joga", "queen", "nilsson", "belafonte", "symphony", "narrator", "harrys"}},
		{"{container}", []string{"abbey"}},
		{"!{file}", []string{"abbey"}},
		{"{flag=favorite|live}", []string{"together", "queen", "nilsson"}},
		{"{flag=favorite,live}", nil},
		{"{flag}", []string{"together", "queen", "nilsson"}},
		{"!{flag}", []string{"abbey", "joga", "belafonte", "symphony", "narrator", "harrys"}},
		{"{sticker=rating}", []string{"joga"}},
		{"{sticker}", []string{"joga"}},
		{"{sticker=mood}", nil},
		{"{tag=comment}", []string{"nilsson"}},
		{"{tag=genre,album}", []string{"abbey", "symphony"}},
		{"comment=london", []string{"nilsson"}},
		{"london", nil},
		{"#ix", []string{"symphony"}},
		{"ix", []string{"symphony"}},
		{"title=you", []string{"nilsson"}},
		{"#together", []string{"together"}},
		{"#gether", nil},
		{"harry | queen", []string{"nilsson", "belafonte", "narrator", "harrys", "queen"}},
		{"harry !{flag=favorite}", []string{"belafonte", "narrator", "harrys"}},
		{"(harry | queen) {flag=live}", []string{"queen"}},
		{"!harry", []string{"abbey", "together", "joga", "queen", "symphony"}},
		{"!(harry | beatles)", []string{"joga", "queen", "symphony"}},
		{"beatles {container}", []string{"abbey"}},
		{"{tag}", []string{"abbey", "together", "joga", "queen", "nilsson", "belafonte", "symphony", "narrator", "harrys"}},
		{"!{tag}", nil},
		{"zzz", nil},
		{"!zzz", []string{"abbey", "together", "joga", "queen", "nilsson", "belafonte", "symphony", "narrator", "harrys"}},
	}
	for _, tc := range tests {
		t.Run(tc.q, func(t *testing.T) {
			res := f.run(t, tc.q, ops.SearchOptions{})
			assert.Equal(t, f.want(t, tc.want...), res.IDs)
		})
	}
}

func TestSearchPunctuation(t *testing.T) {
	f := newFixture(t)
	f.put(t, "primer", `{"tags": {"title": "C++ Primer"}}`)
	f.put(t, "come", `{"tags": {"title": "Come Together"}}`)
	f.put(t, "acdc", `{"tags": {"artist": "AC/DC", "title": "T.N.T."}}`)
	f.put(t, "opus", `{"tags": {"title": "Opus 19"}}`)
	f.put(t, "ninth", `{"tags": {"title": "Ninth 9"}}`)

	tests := []struct {
		q    string
		want []string
	}{
		{"c++", []string{"primer"}},
		{"C++", []string{"primer"}},
		{"c", []string{"primer", "come", "acdc"}},
		{"ac/dc", []string{"acdc"}},
		{"acdc", nil},
		{"t.n.t", []string{"acdc"}},
		{"ix", []string{"ninth"}},
		{"#ix", []string{"ninth"}},
	}
	for _, tc := range tests {
		t.Run(tc.q, func(t *testing.T) {
			res := f.run(t, tc.q, ops.SearchOptions{})
			assert.Equal(t, f.want(t, tc.want...), res.IDs)
		})
	}
}

func TestSearchByID(t *testing.T) {
	f := musicLibrary(t)
	together, queen := f.id(t, "together"), f.id(t, "queen")

	res := f.run(t, fmt.Sprintf("{id=%d-%d}", together, queen), ops.SearchOptions{})
	assert.Equal(t, f.want(t, "together", "joga", "queen"), res.IDs)

	res = f.run(t, fmt.Sprintf("{id=%d,%d}", together, queen), ops.SearchOptions{})
	assert.Equal(t, f.want(t, "together", "queen"), res.IDs)

	res = f.run(t, fmt.Sprintf("!{id>=%d}", together), ops.SearchOptions{})
	assert.Equal(t, f.want(t, "abbey"), res.IDs)
}

func TestSearchDomain(t *testing.T) {
	f := musicLibrary(t)
	music, books := f.domain(t, "music"), f.domain(t, "books")

	res := f.run(t, "harry", ops.SearchOptions{Domain: music})
	assert.Equal(t, f.want(t, "nilsson", "belafonte", "harrys"), res.IDs)

	res = f.run(t, "!harry", ops.SearchOptions{Domain: books})
	assert.Empty(t, res.IDs)

	res = f.run(t, "{file}", ops.SearchOptions{Domain: books})
	assert.Equal(t, f.want(t, "narrator"), res.IDs)
}

func TestNegationIsComplementWithinScope(t *testing.T) {
	f := musicLibrary(t)
	restrict := f.want(t, "abbey", "together", "joga", "nilsson")
	opts := ops.SearchOptions{Restrict: restrict}

	for _, q := range []string{"harry", "{flag=favorite}", "1969", "{container}", "harry | {container}", "{tag=comment}", "{sticker}"} {
		t.Run(q, func(t *testing.T) {
			pos := f.run(t, q, opts)
			neg := f.run(t, "!("+q+")", opts)

			seen := map[int64]bool{}
			for _, id := range pos.IDs {
				seen[id] = true
			}
			for _, id := range neg.IDs {
				assert.False(t, seen[id], "%d in both %q and its negation", id, q)
				seen[id] = true
			}
			assert.Len(t, seen, len(restrict))
			for _, id := range restrict {
				assert.True(t, seen[id])
			}
		})
	}

	res := f.run(t, "!harry", opts)
	assert.Equal(t, f.want(t, "abbey", "together", "joga"), res.IDs)
	res = f.run(t, "{flag=favorite}", opts)
	assert.Equal(t, f.want(t, "together", "nilsson"), res.IDs)
}

func TestEmptyCriterionMatchesScope(t *testing.T) {
	f := musicLibrary(t)
	res, err := ops.Search(context.Background(), f.db, f.adapter, f.reg, nil, ops.SearchOptions{Domain: f.domain(t, "books")})
	require.NoError(t, err)
	assert.Equal(t, f.want(t, "narrator"), res.IDs)
	assert.Nil(t, res.MatchingTags)
}

func TestMatchingTags(t *testing.T) {
	f := musicLibrary(t)
	artist, err := f.reg.TagByName("artist")
	require.NoError(t, err)

	res := f.run(t, "#harry", ops.SearchOptions{})
	require.Len(t, res.MatchingTags, 3)
	for _, tv := range res.MatchingTags {
		assert.Equal(t, artist.ID, tv.TagID)
	}

	res = f.run(t, "#harry", ops.SearchOptions{Domain: f.domain(t, "music")})
	assert.Len(t, res.MatchingTags, 2, "only pairs within scope")

	res = f.run(t, "!#harry", ops.SearchOptions{})
	assert.Nil(t, res.MatchingTags)

	res = f.run(t, "{file}", ops.SearchOptions{})
	assert.Nil(t, res.MatchingTags)

	res = f.run(t, "harry {file}", ops.SearchOptions{})
	assert.Len(t, res.MatchingTags, 4, "AND skips children without matches")

	res = f.run(t, "harry | {file}", ops.SearchOptions{})
	assert.Nil(t, res.MatchingTags)

	res = f.run(t, "zzz", ops.SearchOptions{})
	assert.NotNil(t, res.MatchingTags)
	assert.Empty(t, res.MatchingTags)
}

func TestMatchingTagsLimit(t *testing.T) {
	f := newFixture(t)
	for i := 0; i <= criteria.MatchingTagsLimit; i++ {
		f.put(t, fmt.Sprintf("zed%d", i), fmt.Sprintf(`{"tags": {"artist": "Zed %d"}}`, i))
	}

	res := f.run(t, "zed", ops.SearchOptions{})
	assert.Len(t, res.IDs, criteria.MatchingTagsLimit+1)
	assert.Nil(t, res.MatchingTags, "more pairs than the limit")

	res = f.run(t, "zed {id<=20}", ops.SearchOptions{})
	assert.Len(t, res.IDs, criteria.MatchingTagsLimit)
	assert.Nil(t, res.MatchingTags, "pairs are counted before intersecting")

	res = f.run(t, "zed", ops.SearchOptions{Restrict: f.want(t, "zed1", "zed2")})
	assert.Len(t, res.MatchingTags, 2)
}

func TestTagIdCriterion(t *testing.T) {
	f := musicLibrary(t)
	artist, err := f.reg.TagByName("artist")
	require.NoError(t, err)

	var valueID int64
	require.NoError(t, f.db.QueryRow("SELECT id FROM values_varchar WHERE tag_id = ? AND value = ?", artist.ID, "The Beatles").Scan(&valueID))

	c, err := criteria.NewTagIdCriterion([]criteria.TagValue{{TagID: artist.ID, ValueID: valueID}})
	require.NoError(t, err)

	res, err := ops.Search(context.Background(), f.db, f.adapter, f.reg, c, ops.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, f.want(t, "abbey", "together"), res.IDs)
	assert.Equal(t, []criteria.TagValue{{TagID: artist.ID, ValueID: valueID}}, res.MatchingTags)

	again, err := criteria.NewParser(f.reg).Parse(c.String())
	require.NoError(t, err)
	assert.True(t, c.Equal(again))

	res, err = ops.Search(context.Background(), f.db, f.adapter, f.reg, c.Negated(), ops.SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, res.IDs, len(f.ids)-2)
	assert.Nil(t, res.MatchingTags, "negated criteria report no matches")
}

func TestSearchCancelled(t *testing.T) {
	f := musicLibrary(t)
	c, err := criteria.NewParser(f.reg).Parse("harry {file}")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ops.Search(ctx, f.db, f.adapter, f.reg, c, ops.SearchOptions{})
	require.Error(t, err)
	assert.True(t, mserrors.Is(err, mserrors.ErrCancelled), "got %v", err)
}

func TestSessionsAreIsolated(t *testing.T) {
	f := musicLibrary(t)
	queries := map[string][]int64{
		"harry":      f.want(t, "nilsson", "belafonte", "narrator", "harrys"),
		"beatles":    f.want(t, "abbey", "together"),
		"1970-1979":  f.want(t, "queen", "nilsson"),
		"!#harry":    f.want(t, "abbey", "together", "joga", "queen", "symphony", "harrys"),
		"bjork|jóga": f.want(t, "joga"),
	}

	var wg sync.WaitGroup
	for q, want := range queries {
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c, err := criteria.NewParser(f.reg).Parse(q)
				if !assert.NoError(t, err) {
					return
				}
				res, err := ops.Search(context.Background(), f.db, f.adapter, f.reg, c, ops.SearchOptions{})
				if assert.NoError(t, err, q) {
					assert.Equal(t, want, res.IDs, q)
				}
			}()
		}
	}
	wg.Wait()
}

func TestObserveAndLogging(t *testing.T) {
	f := musicLibrary(t)
	var (
		mu       sync.Mutex
		variants []string
	)
	c, err := criteria.NewParser(f.reg).Parse("harry {flag=favorite} 1969")
	require.NoError(t, err)

	_, err = ops.Search(context.Background(), f.db, f.adapter, f.reg, c, ops.SearchOptions{
		Logger: zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel),
		Observe: func(variant string, _ time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			variants = append(variants, variant)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"tag", "flag", "date", "multi"}, variants)
}
