package cliutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/maestro/maestro/internal/cliopt"
	"github.com/maestro/maestro/internal/logger"
	"github.com/maestro/maestro/maestro"
	"github.com/maestro/maestro/maestro/storage"
	"github.com/maestro/maestro/maestro/storage/postgres"
	"github.com/maestro/maestro/maestro/storage/sqlite"
)

// Command output goes to Stdout and diagnostics to Stderr. Tests swap them.
var (
	Stdin  io.Reader = os.Stdin
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

type OutputFormat string

const (
	FormatPretty OutputFormat = "pretty"
	FormatIDs    OutputFormat = "ids"
	FormatJSON   OutputFormat = "json"
)

func ParseOutputFormat(s string) OutputFormat {
	switch OutputFormat(s) {
	case FormatPretty, FormatIDs, FormatJSON:
		return OutputFormat(s)
	default:
		return FormatPretty
	}
}

func PrintJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

// Fail prints err and returns the exit code for it: 2 for bad input, 1
// otherwise.
func Fail(err error) int {
	fmt.Fprintln(Stderr, err)
	if maestro.IsCode(err, maestro.ErrSyntax) || maestro.IsCode(err, maestro.ErrUnknownName) || maestro.IsCode(err, maestro.ErrInvalid) {
		return 2
	}
	return 1
}

// Usage prints a usage message and returns exit code 2.
func Usage(msg string) int {
	fmt.Fprintln(Stderr, msg)
	return 2
}

// NewAdapter builds the storage adapter selected by the global options.
func NewAdapter(g cliopt.GlobalOptions) (storage.Adapter, error) {
	switch strings.ToLower(g.Backend) {
	case "sqlite":
		if g.SQLitePath == "" {
			return nil, maestro.Invalid("missing --sqlite-path")
		}
		return sqlite.New(g.SQLitePath), nil
	case "postgres":
		if g.PostgresDSN == "" {
			return nil, maestro.Invalid("missing --pg-dsn")
		}
		return postgres.New(g.PostgresDSN, g.PostgresSchema), nil
	default:
		return nil, maestro.Invalid("unknown backend " + g.Backend)
	}
}

func NewLogger(g cliopt.GlobalOptions) zerolog.Logger {
	return logger.New(logger.Config{Level: g.LogLevel, Pretty: g.LogPretty, Output: Stderr})
}

// LibraryOptions returns the library options implied by the global options.
func LibraryOptions(g cliopt.GlobalOptions) maestro.LibraryOptions {
	opts := maestro.DefaultLibraryOptions()
	opts.Logger = NewLogger(g)
	return opts
}

// OpenLibrary opens the existing library selected by the global options.
func OpenLibrary(ctx context.Context, g cliopt.GlobalOptions) (*maestro.Library, error) {
	return OpenLibraryWithOptions(ctx, g, LibraryOptions(g))
}

// OpenLibraryWithOptions is OpenLibrary with caller adjusted options.
func OpenLibraryWithOptions(ctx context.Context, g cliopt.GlobalOptions, opts maestro.LibraryOptions) (*maestro.Library, error) {
	adapter, err := NewAdapter(g)
	if err != nil {
		return nil, err
	}
	return maestro.Open(ctx, adapter, opts)
}

// CreateLibrary initializes the library selected by the global options.
func CreateLibrary(ctx context.Context, g cliopt.GlobalOptions) (*maestro.Library, error) {
	adapter, err := NewAdapter(g)
	if err != nil {
		return nil, err
	}
	return maestro.Create(ctx, adapter, LibraryOptions(g))
}
