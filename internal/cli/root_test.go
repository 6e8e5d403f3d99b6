package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro/maestro/internal/cliutil"
)

type session struct {
	t    *testing.T
	path string
}

func newSession(t *testing.T) *session {
	t.Helper()
	t.Setenv("MAESTRO_BACKEND", "sqlite")
	t.Setenv("MAESTRO_LOG_LEVEL", "off")
	t.Chdir(t.TempDir())
	return &session{t: t, path: filepath.Join(t.TempDir(), "library.db")}
}

// run executes one command line and returns its exit code and output.
func (s *session) run(stdin string, args ...string) (int, string, string) {
	s.t.Helper()
	var out, errOut bytes.Buffer
	oldIn, oldOut, oldErr := cliutil.Stdin, cliutil.Stdout, cliutil.Stderr
	cliutil.Stdin, cliutil.Stdout, cliutil.Stderr = strings.NewReader(stdin), &out, &errOut
	defer func() { cliutil.Stdin, cliutil.Stdout, cliutil.Stderr = oldIn, oldOut, oldErr }()

	argv := append([]string{"--sqlite-path", s.path}, args...)
	code := ExecuteContext(context.Background(), argv)
	return code, out.String(), errOut.String()
}

func (s *session) mustRun(args ...string) string {
	s.t.Helper()
	code, out, errOut := s.run("", args...)
	require.Equal(s.t, 0, code, "%v: %s", args, errOut)
	return out
}

func seed(s *session) {
	s.mustRun("init")
	s.mustRun("tag", "add", "--name", "artist", "--type", "varchar")
	s.mustRun("tag", "add", "--name", "date", "--type", "date")
	s.mustRun("flag", "add", "--name", "favorite", "--icon", "star")
	s.mustRun("put", "--doc", `{"url": "file:///queen.flac", "tags": {"artist": "Queen", "date": "1975"}, "flags": ["favorite"]}`)

	code, out, errOut := s.run(
		`{"url": "file:///abba.flac", "tags": {"artist": "ABBA", "date": "1974"}}`+"\n\n"+
			`{"url": "file:///queen-live.flac", "tags": {"artist": "Queen", "date": "1986"}}`+"\n",
		"put", "--json")
	require.Equal(s.t, 0, code, errOut)
	assert.Equal(s.t, "imported 2\n", out)
}

func TestHelpAndUnknownCommand(t *testing.T) {
	s := newSession(t)
	code, out, _ := s.run("")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "USAGE")

	code, _, errOut := s.run("", "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown command: frobnicate")
}

func TestSearchCommand(t *testing.T) {
	s := newSession(t)
	seed(s)

	out := s.mustRun("--format", "ids", "search", "artist=queen")
	assert.Equal(t, "1\n3\n", out)

	out = s.mustRun("search", "{flag=favorite}")
	assert.Contains(t, out, "Found 1 elements in")
	assert.Contains(t, out, "- 1 file:///queen.flac")

	out = s.mustRun("--format", "json", "search", "-q", "queen !1975")
	var res struct {
		Count int     `json:"count"`
		IDs   []int64 `json:"ids"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, []int64{3}, res.IDs)
}

func TestSearchErrorsExitTwo(t *testing.T) {
	s := newSession(t)
	seed(s)

	code, _, errOut := s.run("", "search", "nosuchtag=x")
	assert.Equal(t, 2, code)
	assert.NotEmpty(t, errOut)

	code, _, _ = s.run("", "search", "{bogus}")
	assert.Equal(t, 2, code)
}

func TestDiscoverGetStats(t *testing.T) {
	s := newSession(t)
	seed(s)

	out := s.mustRun("discover", "--tag", "artist")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "     2  Queen", lines[0])

	out = s.mustRun("get", "--id", "2")
	assert.Contains(t, out, "file:///abba.flac")

	out = s.mustRun("stats", "--tag", "date")
	var ts struct {
		Elements uint64 `json:"elements"`
		Min      string `json:"min"`
		Max      string `json:"max"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &ts))
	assert.Equal(t, uint64(3), ts.Elements)
	assert.Equal(t, "1974", ts.Min)
	assert.Equal(t, "1986", ts.Max)
}

func TestDeleteCommand(t *testing.T) {
	s := newSession(t)
	seed(s)

	code, _, _ := s.run("", "delete", "--where", "")
	assert.Equal(t, 2, code)

	out := s.mustRun("delete", "--where", "artist=queen", "--purge")
	assert.Contains(t, out, "deleted 2")
	assert.Contains(t, out, "purged")

	out = s.mustRun("--format", "ids", "search", "")
	assert.Equal(t, "2\n", out)
}

func TestOpenMissingLibrary(t *testing.T) {
	s := newSession(t)
	code, _, _ := s.run("", "search", "queen")
	assert.NotEqual(t, 0, code)
}
