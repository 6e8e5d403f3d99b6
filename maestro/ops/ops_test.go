package ops_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro/maestro/maestro/criteria"
	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/ops"
	"github.com/maestro/maestro/maestro/registry"
	"github.com/maestro/maestro/maestro/storage"
	"github.com/maestro/maestro/maestro/storage/sqlite"
)

func newStore(t *testing.T) (*sql.DB, storage.Adapter, *registry.Registry) {
	t.Helper()
	ctx := context.Background()
	adapter := sqlite.New(filepath.Join(t.TempDir(), "ops.db"))
	db, err := adapter.Connect(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.ApplyMigrations(ctx, db, adapter.PlaceholderStyle(), adapter.Migrations()))

	reg := registry.New(nil, nil)
	sqlt := adapter.SQL()
	_, err = ops.AddTag(ctx, db, sqlt, reg, "artist", registry.Varchar, "Artist", false)
	require.NoError(t, err)
	_, err = ops.AddTag(ctx, db, sqlt, reg, "date", registry.Date, "", false)
	require.NoError(t, err)
	_, err = ops.AddFlag(ctx, db, sqlt, reg, "favorite", "star")
	require.NoError(t, err)
	return db, adapter, reg
}

func put(t *testing.T, db *sql.DB, adapter storage.Adapter, reg *registry.Registry, doc string) int64 {
	t.Helper()
	ctx := context.Background()
	prep, err := ops.PreparePut(reg, []byte(doc), "music")
	require.NoError(t, err)
	domainID, err := ops.EnsureDomain(ctx, db, adapter.SQL(), prep.Domain)
	require.NoError(t, err)
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()
	id, err := ops.ExecutePut(ctx, tx, adapter.SQL(), domainID, prep)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return id
}

func TestPreparePut(t *testing.T) {
	_, _, reg := newStore(t)

	prep, err := ops.PreparePut(reg, []byte(`{"file": false, "url": "x", "tags": {"Artist": ["a", "b"], "date": "2001-02"}, "flags": ["favorite"], "stickers": {"rating": ["1", "2"]}}`), "music")
	require.NoError(t, err)
	assert.Equal(t, "music", prep.Domain)
	assert.False(t, prep.File)
	assert.Equal(t, "x", prep.URL)
	artist, _ := reg.TagByName("artist")
	assert.Equal(t, []string{"a", "b"}, prep.Tags[artist])
	assert.Len(t, prep.Flags, 1)
	assert.Equal(t, []ops.StickerInput{{Type: "rating", Sort: 0, Data: "1"}, {Type: "rating", Sort: 1, Data: "2"}}, prep.Stickers)

	bad := []struct {
		doc  string
		code mserrors.ErrorCode
	}{
		{`not json`, mserrors.ErrInvalid},
		{`{"tags": {"nope": "x"}}`, mserrors.ErrUnknownName},
		{`{"flags": ["nope"]}`, mserrors.ErrUnknownName},
		{`{"tags": {"date": "yesterday"}}`, mserrors.ErrInvalid},
		{`{"tags": {"artist": {"a": 1}}}`, mserrors.ErrInvalid},
		{`{"domain": 3}`, mserrors.ErrInvalid},
		{`{"stickers": {"bad type": "1"}}`, mserrors.ErrInvalid},
	}
	for _, tc := range bad {
		_, err := ops.PreparePut(reg, []byte(tc.doc), "music")
		require.Error(t, err, tc.doc)
		assert.True(t, mserrors.Is(err, tc.code), "%s: %v", tc.doc, err)
	}
}

func TestPutSharesValues(t *testing.T) {
	db, adapter, reg := newStore(t)
	put(t, db, adapter, reg, `{"tags": {"artist": "Queen", "date": "1975"}}`)
	put(t, db, adapter, reg, `{"tags": {"artist": "Queen", "date": "1975-11-21"}}`)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM values_varchar").Scan(&n))
	assert.Equal(t, 1, n)
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM values_date").Scan(&n))
	assert.Equal(t, 2, n)

	var folded string
	require.NoError(t, db.QueryRow("SELECT search_value FROM values_varchar").Scan(&folded))
	assert.Equal(t, "queen", folded)
}

func TestDeleteAndPurge(t *testing.T) {
	db, adapter, reg := newStore(t)
	ctx := context.Background()
	a := put(t, db, adapter, reg, `{"tags": {"artist": "Queen"}, "flags": ["favorite"], "stickers": {"rating": "5"}}`)
	b := put(t, db, adapter, reg, `{"tags": {"artist": "Abba"}}`)

	n, err := ops.DeleteElements(ctx, db, adapter.SQL(), []int64{a, 999})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, table := range []string{"tags", "flags", "stickers"} {
		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE element_id = ?", a).Scan(&count))
		assert.Zero(t, count, table)
	}

	purged, err := ops.PurgeOrphanValues(ctx, db, adapter.SQL())
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	res, err := ops.Search(ctx, db, adapter, reg, nil, ops.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{b}, res.IDs)
}

func TestDiscoverValues(t *testing.T) {
	db, adapter, reg := newStore(t)
	ctx := context.Background()
	put(t, db, adapter, reg, `{"tags": {"artist": "Queen", "date": "1975"}, "flags": ["favorite"]}`)
	put(t, db, adapter, reg, `{"tags": {"artist": "Queen", "date": "1976"}}`)
	put(t, db, adapter, reg, `{"tags": {"artist": "Abba", "date": "1976"}, "flags": ["favorite"]}`)
	put(t, db, adapter, reg, `{"domain": "books", "tags": {"artist": "Abba"}}`)

	artist, _ := reg.TagByName("artist")
	values, err := ops.DiscoverValues(ctx, db, adapter, reg, artist, nil, ops.SearchOptions{}, 0)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "Abba", values[0].Value, "ties are ordered by value")
	assert.Equal(t, uint64(2), values[0].Count)
	assert.Equal(t, "Queen", values[1].Value)

	music, err := ops.DomainByName(ctx, db, adapter.SQL(), "music")
	require.NoError(t, err)
	values, err = ops.DiscoverValues(ctx, db, adapter, reg, artist, nil, ops.SearchOptions{Domain: music}, 1)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, "Queen", values[0].Value)

	c, err := criteria.NewParser(reg).Parse("{flag=favorite}")
	require.NoError(t, err)
	values, err = ops.DiscoverValues(ctx, db, adapter, reg, artist, c, ops.SearchOptions{}, 10)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, uint64(1), values[0].Count)
	assert.Equal(t, uint64(1), values[1].Count)

	date, _ := reg.TagByName("date")
	values, err = ops.DiscoverValues(ctx, db, adapter, reg, date, nil, ops.SearchOptions{}, 10)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "1976", values[0].Value)
	assert.Equal(t, uint64(2), values[0].Count)
}

func TestStats(t *testing.T) {
	db, adapter, reg := newStore(t)
	ctx := context.Background()
	put(t, db, adapter, reg, `{"file": false, "tags": {"artist": "Queen", "date": "1975"}}`)
	put(t, db, adapter, reg, `{"tags": {"artist": "Queen", "date": "1980"}, "stickers": {"rating": "5"}}`)
	put(t, db, adapter, reg, `{"tags": {"date": "1990"}}`)

	st, err := ops.Stats(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.Domains)
	assert.Equal(t, uint64(2), st.Files)
	assert.Equal(t, uint64(1), st.Containers)
	assert.Equal(t, uint64(2), st.Tags)
	assert.Equal(t, uint64(1), st.Flags)
	assert.Equal(t, uint64(4), st.Values)
	assert.Equal(t, uint64(1), st.Stickers)

	date, _ := reg.TagByName("date")
	ts, err := ops.StatsForTag(ctx, db, adapter, date)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), ts.Elements)
	assert.Equal(t, uint64(3), ts.Unique)
	require.NotNil(t, ts.Min)
	require.NotNil(t, ts.Max)
	require.NotNil(t, ts.Median)
	assert.Equal(t, "1975", registry.FormatDate(*ts.Min))
	assert.Equal(t, "1990", registry.FormatDate(*ts.Max))
	assert.Equal(t, "1980", registry.FormatDate(*ts.Median))

	artist, _ := reg.TagByName("artist")
	ts, err = ops.StatsForTag(ctx, db, adapter, artist)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), ts.Elements)
	assert.Equal(t, uint64(1), ts.Unique)
	assert.Nil(t, ts.Median)
}

func TestCatalog(t *testing.T) {
	db, adapter, reg := newStore(t)
	ctx := context.Background()
	sqlt := adapter.SQL()

	_, err := ops.AddTag(ctx, db, sqlt, reg, "artist", registry.Varchar, "", false)
	assert.True(t, mserrors.Is(err, mserrors.ErrInvalid))
	_, err = ops.AddTag(ctx, db, sqlt, reg, "bad name", registry.Varchar, "", false)
	assert.True(t, mserrors.Is(err, mserrors.ErrInvalid))

	tag, err := ops.AddTag(ctx, db, sqlt, reg, "mood", registry.Text, "", true)
	require.NoError(t, err)
	assert.Equal(t, "mood", tag.Title)

	loaded, err := registry.Load(ctx, db)
	require.NoError(t, err)
	got, err := loaded.TagByName("mood")
	require.NoError(t, err)
	assert.Equal(t, tag, got)
	assert.Len(t, loaded.Tags(), 3)
	f, err := loaded.FlagByName("favorite")
	require.NoError(t, err)
	assert.Equal(t, "star", f.Icon)

	a, err := ops.EnsureDomain(ctx, db, sqlt, "music")
	require.NoError(t, err)
	b, err := ops.EnsureDomain(ctx, db, sqlt, "music")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	_, err = ops.DomainByName(ctx, db, sqlt, "films")
	assert.True(t, mserrors.Is(err, mserrors.ErrNotFound))

	domains, err := ops.ListDomains(ctx, db, sqlt)
	require.NoError(t, err)
	assert.Equal(t, []ops.Domain{{ID: a, Name: "music"}}, domains)
}
