package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro/maestro/maestro"
	"github.com/maestro/maestro/maestro/registry"
	"github.com/maestro/maestro/maestro/storage/sqlite"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()
	lib, err := maestro.Create(ctx, sqlite.New(filepath.Join(t.TempDir(), "library.db")), maestro.DefaultLibraryOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = lib.Close() })

	_, err = lib.AddTag(ctx, "artist", registry.Varchar, "Artist", false)
	require.NoError(t, err)
	_, err = lib.AddTag(ctx, "comment", registry.Text, "", true)
	require.NoError(t, err)
	_, err = lib.AddFlag(ctx, "favorite", "star")
	require.NoError(t, err)
	for _, doc := range []string{
		`{"url": "file:///music/queen.flac", "tags": {"artist": "Queen"}, "flags": ["favorite"]}`,
		`{"url": "file:///music/abba.flac", "tags": {"artist": "ABBA"}}`,
		`{"url": "file:///music/queen-live.flac", "tags": {"artist": "Queen"}}`,
	} {
		_, err := lib.PutElement(ctx, []byte(doc))
		require.NoError(t, err)
	}
	return NewServer(lib, zerolog.Nop())
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestSearchLibrary(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleSearchLibrary(ctx, call(map[string]interface{}{"query": "artist=queen"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out searchResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, 2, out.Total)
	assert.False(t, out.Truncated)
	require.Len(t, out.Elements, 2)
	assert.Equal(t, "file:///music/queen.flac", out.Elements[0].URL)

	res, err = s.handleSearchLibrary(ctx, call(map[string]interface{}{"query": "artist=queen", "limit": float64(1)}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, 2, out.Total)
	assert.True(t, out.Truncated)
	assert.Len(t, out.Elements, 1)
}

func TestSearchLibraryErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	for _, q := range []string{"{bogus}", "nosuchtag=x"} {
		res, err := s.handleSearchLibrary(ctx, call(map[string]interface{}{"query": q}))
		require.NoError(t, err, q)
		assert.True(t, res.IsError, q)
	}
}

func TestListTags(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleListTags(context.Background(), call(nil))
	require.NoError(t, err)

	var out struct {
		Tags  []tagOutput  `json:"tags"`
		Flags []flagOutput `json:"flags"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, []tagOutput{{Name: "artist", Type: "varchar", Title: "Artist"}}, out.Tags, "private tags are hidden")
	assert.Equal(t, []flagOutput{{Name: "favorite", Icon: "star"}}, out.Flags)
}

func TestDiscoverValues(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleDiscoverValues(ctx, call(map[string]interface{}{"tag": "artist"}))
	require.NoError(t, err)
	var out []struct {
		Value string `json:"value"`
		Count uint64 `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "Queen", out[0].Value)
	assert.Equal(t, uint64(2), out[0].Count)

	res, err = s.handleDiscoverValues(ctx, call(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestLibraryStats(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleLibraryStats(context.Background(), call(nil))
	require.NoError(t, err)
	var out maestro.Stats
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, uint64(3), out.Files)
	assert.Equal(t, uint64(1), out.Flags)
}
