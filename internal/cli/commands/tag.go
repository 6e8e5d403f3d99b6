package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/maestro/maestro/internal/cliopt"
	"github.com/maestro/maestro/internal/cliutil"
	"github.com/maestro/maestro/maestro/registry"
)

func RunTag(ctx context.Context, g cliopt.GlobalOptions, argv []string) int {
	if len(argv) == 0 {
		return cliutil.Usage("tag requires a subcommand: add|list")
	}
	switch argv[0] {
	case "add":
		return runTagAdd(ctx, g, argv[1:])
	case "list":
		return runTagList(ctx, g)
	default:
		return cliutil.Usage("unknown tag subcommand: " + argv[0])
	}
}

func runTagAdd(ctx context.Context, g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("tag add", flag.ContinueOnError)
	fs.SetOutput(cliutil.Stderr)
	var name, vt, title string
	var private bool
	fs.StringVar(&name, "name", "", "tag name")
	fs.StringVar(&name, "n", "", "tag name")
	fs.StringVar(&vt, "type", "varchar", "value type: varchar|text|date")
	fs.StringVar(&title, "title", "", "display title")
	fs.BoolVar(&private, "private", false, "mark the tag private")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if name == "" {
		return cliutil.Usage("missing --name")
	}
	valueType, err := registry.ParseValueType(vt)
	if err != nil {
		return cliutil.Fail(err)
	}

	lib, err := cliutil.OpenLibrary(ctx, g)
	if err != nil {
		return cliutil.Fail(err)
	}
	defer lib.Close()
	tag, err := lib.AddTag(ctx, name, valueType, title, private)
	if err != nil {
		return cliutil.Fail(err)
	}
	fmt.Fprintf(cliutil.Stdout, "tag %s: %d\n", tag.Name, tag.ID)
	return 0
}

func runTagList(ctx context.Context, g cliopt.GlobalOptions) int {
	lib, err := cliutil.OpenLibrary(ctx, g)
	if err != nil {
		return cliutil.Fail(err)
	}
	defer lib.Close()

	tags := lib.Registry().Tags()
	if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
		cliutil.PrintJSON(cliutil.Stdout, tags)
		return 0
	}
	for _, t := range tags {
		private := ""
		if t.Private {
			private = "\tprivate"
		}
		fmt.Fprintf(cliutil.Stdout, "%d\t%s\t%s\t%s%s\n", t.ID, t.Name, t.Type, t.Title, private)
	}
	return 0
}

func RunFlag(ctx context.Context, g cliopt.GlobalOptions, argv []string) int {
	if len(argv) == 0 {
		return cliutil.Usage("flag requires a subcommand: add|list")
	}
	switch argv[0] {
	case "add":
		fs := flag.NewFlagSet("flag add", flag.ContinueOnError)
		fs.SetOutput(cliutil.Stderr)
		var name, icon string
		fs.StringVar(&name, "name", "", "flag name")
		fs.StringVar(&name, "n", "", "flag name")
		fs.StringVar(&icon, "icon", "", "icon name")
		if err := fs.Parse(argv[1:]); err != nil {
			return 2
		}
		if name == "" {
			return cliutil.Usage("missing --name")
		}
		lib, err := cliutil.OpenLibrary(ctx, g)
		if err != nil {
			return cliutil.Fail(err)
		}
		defer lib.Close()
		f, err := lib.AddFlag(ctx, name, icon)
		if err != nil {
			return cliutil.Fail(err)
		}
		fmt.Fprintf(cliutil.Stdout, "flag %s: %d\n", f.Name, f.ID)
		return 0
	case "list":
		lib, err := cliutil.OpenLibrary(ctx, g)
		if err != nil {
			return cliutil.Fail(err)
		}
		defer lib.Close()
		flags := lib.Registry().Flags()
		if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
			cliutil.PrintJSON(cliutil.Stdout, flags)
			return 0
		}
		for _, f := range flags {
			fmt.Fprintf(cliutil.Stdout, "%d\t%s\t%s\n", f.ID, f.Name, f.Icon)
		}
		return 0
	default:
		return cliutil.Usage("unknown flag subcommand: " + argv[0])
	}
}
