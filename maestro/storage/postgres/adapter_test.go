package postgres_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro/maestro/maestro"
	"github.com/maestro/maestro/maestro/registry"
	"github.com/maestro/maestro/maestro/storage/postgres"
)

func TestInvalidSchemaName(t *testing.T) {
	_, err := postgres.New("postgres://localhost/none", `bad"name`).Connect(context.Background())
	assert.ErrorContains(t, err, "invalid postgres schema name")
}

// TestLibrary runs against a real server named by MAESTRO_TEST_PG_DSN, in a
// throwaway schema.
func TestLibrary(t *testing.T) {
	dsn := os.Getenv("MAESTRO_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("MAESTRO_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	schema := "maestro_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	a := postgres.New(dsn, schema)

	lib, err := maestro.Create(ctx, a, maestro.DefaultLibraryOptions())
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = lib.DB().ExecContext(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		_ = lib.Close()
	})

	_, err = lib.AddTag(ctx, "artist", registry.Varchar, "", false)
	require.NoError(t, err)
	_, err = lib.AddTag(ctx, "date", registry.Date, "", false)
	require.NoError(t, err)
	_, err = lib.AddFlag(ctx, "favorite", "")
	require.NoError(t, err)

	harry, err := lib.PutElement(ctx, []byte(`{"tags": {"artist": "Harry", "date": "1975"}, "flags": ["favorite"]}`))
	require.NoError(t, err)
	_, err = lib.PutElement(ctx, []byte(`{"tags": {"artist": "Harry", "date": "1980"}}`))
	require.NoError(t, err)
	_, err = lib.PutElement(ctx, []byte(`{"tags": {"artist": "Sally"}, "flags": ["favorite"]}`))
	require.NoError(t, err)

	res, err := lib.Search(ctx, "{tag=artist=Harry} {flag=favorite}", maestro.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{harry}, res.IDs)

	res, err = lib.Search(ctx, "harr <1978", maestro.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{harry}, res.IDs)
}
