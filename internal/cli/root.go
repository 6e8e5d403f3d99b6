package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/maestro/maestro/internal/cli/commands"
	"github.com/maestro/maestro/internal/cliopt"
	"github.com/maestro/maestro/internal/cliutil"
)

type runFunc func(ctx context.Context, g cliopt.GlobalOptions, argv []string) int

var verbs = map[string]runFunc{
	"init":     commands.RunInit,
	"domain":   commands.RunDomain,
	"tag":      commands.RunTag,
	"flag":     commands.RunFlag,
	"put":      commands.RunPut,
	"get":      commands.RunGet,
	"delete":   commands.RunDelete,
	"search":   commands.RunSearch,
	"discover": commands.RunDiscover,
	"stats":    commands.RunStats,
	"mcp":      commands.RunMCP,
}

// Execute runs the CLI and returns an exit code.
func Execute(argv []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return ExecuteContext(ctx, argv)
}

// ExecuteContext is Execute with a caller supplied context.
func ExecuteContext(ctx context.Context, argv []string) int {
	globalFS := flag.NewFlagSet("maestro", flag.ContinueOnError)
	globalFS.SetOutput(cliutil.Stderr)
	g := cliopt.DefaultGlobalOptions()
	cliopt.BindGlobalFlags(globalFS, &g)

	if err := globalFS.Parse(argv); err != nil {
		// flag package already printed the error
		return 2
	}

	args := globalFS.Args()
	if len(args) == 0 {
		PrintRootHelp(cliutil.Stdout)
		return 0
	}

	verb := args[0]
	switch verb {
	case "--help", "-h", "help":
		PrintRootHelp(cliutil.Stdout)
		return 0
	}
	run, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(cliutil.Stderr, "unknown command: %s\n\n", verb)
		PrintRootHelp(cliutil.Stderr)
		return 2
	}
	return run(ctx, g, args[1:])
}
