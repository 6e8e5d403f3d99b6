package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/maestro/maestro/internal/cliopt"
	"github.com/maestro/maestro/internal/cliutil"
)

func RunGet(ctx context.Context, g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(cliutil.Stderr)
	var id int64
	fs.Int64Var(&id, "id", 0, "element id")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if id <= 0 {
		return cliutil.Usage("missing --id")
	}
	lib, err := cliutil.OpenLibrary(ctx, g)
	if err != nil {
		return cliutil.Fail(err)
	}
	defer lib.Close()

	e, err := lib.Element(ctx, id)
	if err != nil {
		return cliutil.Fail(err)
	}
	if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
		cliutil.PrintJSON(cliutil.Stdout, e)
		return 0
	}
	kind := "file"
	if !e.File {
		kind = "container"
	}
	fmt.Fprintf(cliutil.Stdout, "%d\t%s\tdomain=%d\t%s\n", e.ID, kind, e.Domain, e.URL)
	return 0
}
