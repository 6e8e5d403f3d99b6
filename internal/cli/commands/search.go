package commands

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/maestro/maestro/internal/cliopt"
	"github.com/maestro/maestro/internal/cliutil"
	"github.com/maestro/maestro/maestro"
)

type searchOutput struct {
	Query        string              `json:"query"`
	Count        int                 `json:"count"`
	IDs          []int64             `json:"ids"`
	MatchingTags []matchingTagOutput `json:"matching_tags,omitempty"`
	ElapsedMS    int64               `json:"elapsed_ms"`
}

type matchingTagOutput struct {
	Tag     string `json:"tag"`
	ValueID int64  `json:"value_id"`
}

func RunSearch(ctx context.Context, g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(cliutil.Stderr)
	var query, domain string
	var limit int
	fs.StringVar(&query, "query", "", "search string")
	fs.StringVar(&query, "q", "", "search string")
	fs.StringVar(&domain, "domain", "", "domain to search")
	fs.IntVar(&limit, "limit", 50, "elements listed in pretty output")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if query == "" {
		query = strings.Join(fs.Args(), " ")
	}

	lib, err := cliutil.OpenLibrary(ctx, g)
	if err != nil {
		return cliutil.Fail(err)
	}
	defer lib.Close()

	res, err := lib.Search(ctx, query, maestro.SearchOptions{Domain: domain})
	if err != nil {
		return cliutil.Fail(err)
	}

	switch cliutil.ParseOutputFormat(g.Format) {
	case cliutil.FormatIDs:
		for _, id := range res.IDs {
			fmt.Fprintln(cliutil.Stdout, id)
		}
	case cliutil.FormatJSON:
		out := searchOutput{Query: res.Query, Count: len(res.IDs), IDs: res.IDs, ElapsedMS: res.Elapsed.Milliseconds()}
		for _, m := range res.MatchingTags {
			name := fmt.Sprint(m.TagID)
			if t, err := lib.Registry().TagByID(m.TagID); err == nil {
				name = t.Name
			}
			out.MatchingTags = append(out.MatchingTags, matchingTagOutput{Tag: name, ValueID: m.ValueID})
		}
		cliutil.PrintJSON(cliutil.Stdout, out)
	default:
		printSearch(ctx, lib, res, limit)
	}
	return 0
}

func printSearch(ctx context.Context, lib *maestro.Library, res *maestro.SearchResult, limit int) {
	fmt.Fprintf(cliutil.Stdout, "Found %d elements in %dms\n", len(res.IDs), res.Elapsed/time.Millisecond)
	for i, id := range res.IDs {
		if i == limit {
			fmt.Fprintf(cliutil.Stdout, "... %d more\n", len(res.IDs)-limit)
			break
		}
		e, err := lib.Element(ctx, id)
		if err != nil {
			fmt.Fprintf(cliutil.Stdout, "- %d\n", id)
			continue
		}
		if e.URL == "" {
			fmt.Fprintf(cliutil.Stdout, "- %d\n", id)
		} else {
			fmt.Fprintf(cliutil.Stdout, "- %d %s\n", id, e.URL)
		}
	}
	if res.Query != "" {
		fmt.Fprintf(cliutil.Stdout, "\nQuery: %s\n", res.Query)
	}
}
