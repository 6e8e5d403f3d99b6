package commands

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/maestro/maestro/internal/cliopt"
	"github.com/maestro/maestro/internal/cliutil"
	"github.com/maestro/maestro/maestro"
)

// RunPut inserts elements. A single document comes from --doc; JSON lines
// come from stdin (--json) or a file (--import) and are applied as one batch.
func RunPut(ctx context.Context, g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(cliutil.Stderr)
	var doc, importPath string
	var jsonStdin bool
	fs.StringVar(&doc, "doc", "", "element document (JSON)")
	fs.BoolVar(&jsonStdin, "json", false, "read JSON lines from stdin")
	fs.StringVar(&importPath, "import", "", "import JSONL file")
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	var r io.Reader
	switch {
	case doc != "":
	case importPath != "":
		f, err := os.Open(importPath)
		if err != nil {
			return cliutil.Fail(err)
		}
		defer f.Close()
		r = f
	case jsonStdin:
		r = cliutil.Stdin
	default:
		return cliutil.Usage("provide --doc or --json or --import")
	}

	lib, err := cliutil.OpenLibrary(ctx, g)
	if err != nil {
		return cliutil.Fail(err)
	}
	defer lib.Close()

	// single doc mode
	if r == nil {
		id, err := lib.PutElement(ctx, []byte(doc))
		if err != nil {
			return cliutil.Fail(err)
		}
		fmt.Fprintln(cliutil.Stdout, id)
		return 0
	}

	batch := maestro.NewBatch()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		if err := batch.PutJSON(append([]byte(nil), b...)); err != nil {
			fmt.Fprintf(cliutil.Stderr, "line %d: ", line)
			return cliutil.Fail(err)
		}
	}
	if err := scanner.Err(); err != nil {
		return cliutil.Fail(err)
	}

	count, err := lib.Batch(ctx, batch)
	if err != nil {
		return cliutil.Fail(err)
	}
	fmt.Fprintf(cliutil.Stdout, "imported %d\n", count)
	return 0
}

type multiString []string

func (m *multiString) String() string { return "" }
func (m *multiString) Set(v string) error {
	*m = append(*m, v)
	return nil
}
