package cli

import (
	"fmt"
	"io"
)

func PrintRootHelp(w io.Writer) {
	fmt.Fprintln(w, `maestro: music library search

USAGE
  maestro [global flags] <command> [args]

GLOBAL FLAGS
  --backend sqlite|postgres      (MAESTRO_BACKEND)
  --sqlite-path <file.db>        (MAESTRO_SQLITE_PATH)
  --pg-dsn <dsn>                 (MAESTRO_PG_DSN)
  --pg-schema <schema>           (MAESTRO_PG_SCHEMA)
  --log-level debug|info|warn|error|off
  --log-pretty
  --format pretty|ids|json

COMMANDS
  init                              create an empty library
  domain add <name> | list
  tag add --name N --type varchar|text|date [--title T] [--private] | list
  flag add --name N [--icon I] | list
  put --doc JSON | --json (stdin, one document per line) | --import FILE
  get --id N
  delete --id N... | --where QUERY [--domain D] [--purge]
  search [--domain D] [--limit N] QUERY
  discover --tag T [--where QUERY] [--domain D] [--top N]
  stats [--tag T]
  mcp [--metrics-addr ADDR]         serve MCP tools on stdio

QUERIES
  queen                  any text tag contains "queen" (case and accents ignored)
  artist=queen           only the artist tag
  #queen _Queen          whole word, exact case
  1975 1970-1979 >=1970  years, also date=1975
  {flag=favorite|todo}   either flag set; use "," to require both
  {sticker=lyrics}       element has a sticker of that type
  {id=1,2,3} {id=5-9}    element ids
  {file} {container}     element kind
  a b, a | b, !a, (a | b) c

Settings may also come from a .env file in the working directory.`)
}
