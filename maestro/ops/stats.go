package ops

import (
	"context"
	"database/sql"
	"fmt"

	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/registry"
	"github.com/maestro/maestro/maestro/storage"
	"github.com/maestro/maestro/maestro/storage/sqlbuilder"
)

// LibraryStats counts the rows of a library.
type LibraryStats struct {
	Domains    uint64
	Files      uint64
	Containers uint64
	Tags       uint64
	Flags      uint64
	Values     uint64
	Stickers   uint64
}

// TagStats describes the use of one tag. For date tags Min, Max and Median
// hold packed YYYYMMDD dates.
type TagStats struct {
	Tag      registry.Tag
	Elements uint64
	Unique   uint64
	Min      *int64
	Max      *int64
	Median   *int64
}

// Stats computes library-wide counts.
func Stats(ctx context.Context, db *sql.DB) (*LibraryStats, error) {
	result := &LibraryStats{}
	counts := []struct {
		dest *uint64
		sql  string
	}{
		{&result.Domains, "SELECT COUNT(*) FROM domains"},
		{&result.Files, "SELECT COUNT(*) FROM elements WHERE file = 1"},
		{&result.Containers, "SELECT COUNT(*) FROM elements WHERE file = 0"},
		{&result.Tags, "SELECT COUNT(*) FROM tagids"},
		{&result.Flags, "SELECT COUNT(*) FROM flag_names"},
		{&result.Values, "SELECT (SELECT COUNT(*) FROM values_varchar) + (SELECT COUNT(*) FROM values_text) + (SELECT COUNT(*) FROM values_date)"},
		{&result.Stickers, "SELECT COUNT(*) FROM stickers"},
	}
	for _, c := range counts {
		if err := db.QueryRowContext(ctx, c.sql).Scan(c.dest); err != nil {
			return nil, mserrors.Backend("query stats", err)
		}
	}
	return result, nil
}

// StatsForTag computes usage statistics for one tag.
func StatsForTag(ctx context.Context, db *sql.DB, adapter storage.Adapter, tag registry.Tag) (*TagStats, error) {
	table, ok := valueTables[tag.Type]
	if !ok {
		return nil, mserrors.Invalid("unsupported value type " + string(tag.Type))
	}
	style := adapter.PlaceholderStyle()
	result := &TagStats{Tag: tag}

	b := sqlbuilder.New(style)
	q := "SELECT COUNT(DISTINCT element_id), COUNT(DISTINCT value_id) FROM tags WHERE tag_id = " + b.Arg(tag.ID)
	if err := db.QueryRowContext(ctx, q, b.Args()...).Scan(&result.Elements, &result.Unique); err != nil {
		return nil, mserrors.Backend("query stats", err)
	}
	if tag.Type != registry.Date || result.Unique == 0 {
		return result, nil
	}

	b = sqlbuilder.New(style)
	q = fmt.Sprintf("SELECT MIN(value), MAX(value) FROM %s WHERE tag_id = %s AND %s", table, b.Arg(tag.ID), usedDate)
	var minVal, maxVal sql.NullInt64
	if err := db.QueryRowContext(ctx, q, b.Args()...).Scan(&minVal, &maxVal); err != nil {
		return nil, mserrors.Backend("query stats", err)
	}
	if minVal.Valid {
		result.Min = &minVal.Int64
	}
	if maxVal.Valid {
		result.Max = &maxVal.Int64
	}

	median, err := medianDate(ctx, db, style, tag.ID, result.Unique)
	if err == nil {
		result.Median = median
	}
	return result, nil
}

const usedDate = "EXISTS (SELECT 1 FROM tags t WHERE t.tag_id = values_date.tag_id AND t.value_id = values_date.id)"

// medianDate returns the lower median of the distinct date values of a tag.
func medianDate(ctx context.Context, db *sql.DB, style sqlbuilder.PlaceholderStyle, tagID int64, count uint64) (*int64, error) {
	offset := (count - 1) / 2

	b := sqlbuilder.New(style)
	q := fmt.Sprintf(`
		SELECT value FROM values_date
		WHERE tag_id = %s AND %s
		ORDER BY value
		LIMIT 1 OFFSET %s
	`, b.Arg(tagID), usedDate, b.Arg(int64(offset)))

	var val int64
	if err := db.QueryRowContext(ctx, q, b.Args()...).Scan(&val); err != nil {
		return nil, err
	}
	return &val, nil
}
