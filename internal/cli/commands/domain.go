package commands

import (
	"context"
	"fmt"

	"github.com/maestro/maestro/internal/cliopt"
	"github.com/maestro/maestro/internal/cliutil"
)

func RunDomain(ctx context.Context, g cliopt.GlobalOptions, argv []string) int {
	if len(argv) == 0 {
		return cliutil.Usage("domain requires a subcommand: add|list")
	}
	lib, err := cliutil.OpenLibrary(ctx, g)
	if err != nil {
		return cliutil.Fail(err)
	}
	defer lib.Close()

	switch argv[0] {
	case "add":
		if len(argv) != 2 {
			return cliutil.Usage("usage: domain add <name>")
		}
		id, err := lib.AddDomain(ctx, argv[1])
		if err != nil {
			return cliutil.Fail(err)
		}
		fmt.Fprintf(cliutil.Stdout, "domain %s: %d\n", argv[1], id)
		return 0
	case "list":
		domains, err := lib.Domains(ctx)
		if err != nil {
			return cliutil.Fail(err)
		}
		if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
			cliutil.PrintJSON(cliutil.Stdout, domains)
			return 0
		}
		for _, d := range domains {
			fmt.Fprintf(cliutil.Stdout, "%d\t%s\n", d.ID, d.Name)
		}
		return 0
	default:
		return cliutil.Usage("unknown domain subcommand: " + argv[0])
	}
}
