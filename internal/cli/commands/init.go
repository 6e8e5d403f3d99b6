package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/maestro/maestro/internal/cliopt"
	"github.com/maestro/maestro/internal/cliutil"
)

// RunInit creates a library, or upgrades the schema of an existing one.
func RunInit(ctx context.Context, g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(cliutil.Stderr)
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	lib, err := cliutil.CreateLibrary(ctx, g)
	if err != nil {
		return cliutil.Fail(err)
	}
	defer lib.Close()
	fmt.Fprintf(cliutil.Stdout, "initialized %s\n", lib.Adapter().LibraryID())
	return 0
}
