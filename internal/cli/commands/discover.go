package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/maestro/maestro/internal/cliopt"
	"github.com/maestro/maestro/internal/cliutil"
	"github.com/maestro/maestro/maestro"
)

// RunDiscover lists the most used values of a tag.
func RunDiscover(ctx context.Context, g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	fs.SetOutput(cliutil.Stderr)
	var tag, where, domain string
	var top int
	fs.StringVar(&tag, "tag", "", "tag name")
	fs.StringVar(&tag, "t", "", "tag name")
	fs.StringVar(&where, "where", "", "only count elements matching this search")
	fs.StringVar(&where, "w", "", "only count elements matching this search")
	fs.StringVar(&domain, "domain", "", "domain")
	fs.IntVar(&top, "top", 20, "number of values")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if tag == "" {
		return cliutil.Usage("missing --tag")
	}

	lib, err := cliutil.OpenLibrary(ctx, g)
	if err != nil {
		return cliutil.Fail(err)
	}
	defer lib.Close()

	vals, err := lib.DiscoverValues(ctx, tag, where, maestro.SearchOptions{Domain: domain}, top)
	if err != nil {
		return cliutil.Fail(err)
	}
	if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
		cliutil.PrintJSON(cliutil.Stdout, vals)
		return 0
	}
	for _, v := range vals {
		fmt.Fprintf(cliutil.Stdout, "%6d  %s\n", v.Count, v.Value)
	}
	return 0
}
