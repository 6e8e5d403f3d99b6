package cliopt

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// GlobalOptions are parsed once at the CLI root and passed to subcommands.
//
// NOTE: This is a separate package to avoid import cycles between the root
// command router and per-command code.
type GlobalOptions struct {
	Backend        string
	SQLitePath     string
	PostgresDSN    string
	PostgresSchema string

	LogLevel  string
	LogPretty bool

	Format string
}

// DefaultGlobalOptions reads defaults from the environment. A .env file in
// the working directory is loaded first; variables already set win.
func DefaultGlobalOptions() GlobalOptions {
	_ = godotenv.Load()
	return GlobalOptions{
		Backend:        getEnv("MAESTRO_BACKEND", "sqlite"),
		SQLitePath:     getEnv("MAESTRO_SQLITE_PATH", "maestro.db"),
		PostgresDSN:    getEnv("MAESTRO_PG_DSN", ""),
		PostgresSchema: getEnv("MAESTRO_PG_SCHEMA", "maestro"),
		LogLevel:       getEnv("MAESTRO_LOG_LEVEL", "warn"),
		LogPretty:      getEnvBool("MAESTRO_LOG_PRETTY", false),
		Format:         "pretty",
	}
}

func BindGlobalFlags(fs *flag.FlagSet, g *GlobalOptions) {
	fs.StringVar(&g.Backend, "backend", g.Backend, "backend: sqlite|postgres")

	fs.StringVar(&g.SQLitePath, "sqlite-path", g.SQLitePath, "sqlite library file")

	fs.StringVar(&g.PostgresDSN, "pg-dsn", g.PostgresDSN, "postgres DSN")
	fs.StringVar(&g.PostgresSchema, "pg-schema", g.PostgresSchema, "postgres schema holding the library")

	fs.StringVar(&g.LogLevel, "log-level", g.LogLevel, "log level: debug|info|warn|error|off")
	fs.BoolVar(&g.LogPretty, "log-pretty", g.LogPretty, "human readable logs")

	fs.StringVar(&g.Format, "format", g.Format, "output: pretty|ids|json")
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}
