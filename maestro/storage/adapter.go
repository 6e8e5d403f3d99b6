package storage

import (
	"context"
	"database/sql"

	"github.com/maestro/maestro/maestro/storage/sqlbuilder"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

const (
	MetaMagicKey   = "maestro_magic"
	MetaMagicValue = "maestro"
)

// Adapter abstracts database-specific operations
type Adapter interface {
	Backend() Backend
	PlaceholderStyle() sqlbuilder.PlaceholderStyle
	LibraryID() string

	Connect(ctx context.Context) (*sql.DB, error)
	Close() error

	// Migrations returns the ordered schema migrations of this backend.
	Migrations() []Migration
	// PrepareConn creates the connection-local temporary tables used by a
	// search session. It must be idempotent.
	PrepareConn(ctx context.Context, conn *sql.Conn) error
	Optimize(ctx context.Context, db *sql.DB) error

	SQL() SQL
}

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQL holds prepared SQL templates for common operations
type SQL struct {
	GetMeta string
	SetMeta string

	// Contains is the name of the substring function taking
	// (haystack, needle) and returning a 1-based position or 0.
	Contains string

	InsertDomain    string
	GetDomainByName string
	ListDomains     string

	InsertTag  string
	InsertFlag string

	InsertElement     string
	GetElement        string
	DeleteElementByID string

	InsertOrIgnoreVarchar string
	GetVarcharID          string
	InsertOrIgnoreText    string
	GetTextID             string
	InsertOrIgnoreDate    string
	GetDateID             string

	InsertTagValue          string
	DeleteTagValues         string
	DeleteTagsByElement     string
	InsertFlagAssignment    string
	DeleteFlagsByElement    string
	UpsertSticker           string
	DeleteSticker           string
	DeleteStickersByElement string

	PurgeOrphanVarchar string
	PurgeOrphanText    string
	PurgeOrphanDate    string

	ClearScratch string
	ClearScope   string
}
