package commands

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/maestro/maestro/internal/cliopt"
	"github.com/maestro/maestro/internal/cliutil"
	"github.com/maestro/maestro/maestro"
)

func RunDelete(ctx context.Context, g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(cliutil.Stderr)
	var ids multiString
	var where, domain string
	var purge bool
	fs.Var(&ids, "id", "element id (repeatable)")
	fs.StringVar(&where, "where", "", "delete every element matching this search")
	fs.StringVar(&where, "w", "", "delete every element matching this search")
	fs.StringVar(&domain, "domain", "", "limit --where to a domain")
	fs.BoolVar(&purge, "purge", false, "remove unused tag values afterwards")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if len(ids) == 0 && where == "" {
		return cliutil.Usage("provide --id or --where")
	}

	var targets []int64
	for _, s := range ids {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return cliutil.Usage("invalid --id " + s)
		}
		targets = append(targets, id)
	}

	lib, err := cliutil.OpenLibrary(ctx, g)
	if err != nil {
		return cliutil.Fail(err)
	}
	defer lib.Close()

	if where != "" {
		// An empty search matches everything; refuse that here.
		crit, err := lib.Parse(where)
		if err != nil {
			return cliutil.Fail(err)
		}
		if crit == nil {
			return cliutil.Usage("--where matches every element")
		}
		res, err := lib.SearchCriterion(ctx, crit, maestro.SearchOptions{Domain: domain})
		if err != nil {
			return cliutil.Fail(err)
		}
		targets = append(targets, res.IDs...)
	}

	n, err := lib.DeleteElement(ctx, targets...)
	if err != nil {
		return cliutil.Fail(err)
	}
	fmt.Fprintf(cliutil.Stdout, "deleted %d\n", n)

	if purge {
		removed, err := lib.PurgeValues(ctx)
		if err != nil {
			return cliutil.Fail(err)
		}
		fmt.Fprintf(cliutil.Stdout, "purged %d values\n", removed)
	}
	return 0
}
