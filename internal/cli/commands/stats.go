package commands

import (
	"context"
	"flag"

	"github.com/maestro/maestro/internal/cliopt"
	"github.com/maestro/maestro/internal/cliutil"
	"github.com/maestro/maestro/maestro/registry"
)

type tagStatsOutput struct {
	Tag      string `json:"tag"`
	Type     string `json:"type"`
	Elements uint64 `json:"elements"`
	Unique   uint64 `json:"unique"`
	Min      string `json:"min,omitempty"`
	Max      string `json:"max,omitempty"`
	Median   string `json:"median,omitempty"`
}

func RunStats(ctx context.Context, g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(cliutil.Stderr)
	var tag string
	fs.StringVar(&tag, "tag", "", "tag name")
	fs.StringVar(&tag, "t", "", "tag name")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	lib, err := cliutil.OpenLibrary(ctx, g)
	if err != nil {
		return cliutil.Fail(err)
	}
	defer lib.Close()

	if tag == "" {
		out, err := lib.Stats(ctx)
		if err != nil {
			return cliutil.Fail(err)
		}
		cliutil.PrintJSON(cliutil.Stdout, out)
		return 0
	}

	ts, err := lib.TagStats(ctx, tag)
	if err != nil {
		return cliutil.Fail(err)
	}
	out := tagStatsOutput{
		Tag:      ts.Tag.Name,
		Type:     string(ts.Tag.Type),
		Elements: ts.Elements,
		Unique:   ts.Unique,
		Min:      formatDate(ts.Min),
		Max:      formatDate(ts.Max),
		Median:   formatDate(ts.Median),
	}
	cliutil.PrintJSON(cliutil.Stdout, out)
	return 0
}

func formatDate(packed *int64) string {
	if packed == nil {
		return ""
	}
	return registry.FormatDate(*packed)
}
