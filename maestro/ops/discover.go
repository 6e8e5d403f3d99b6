package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/maestro/maestro/maestro/criteria"
	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/registry"
	"github.com/maestro/maestro/maestro/storage"
	"github.com/maestro/maestro/maestro/storage/sqlbuilder"
)

// DefaultDiscoverTop is the number of values returned when top <= 0.
const DefaultDiscoverTop = 20

// ValueCount is a tag value with the number of elements carrying it.
type ValueCount struct {
	ValueID int64
	Value   string
	Count   uint64
}

var valueTables = map[registry.ValueType]string{
	registry.Varchar: "values_varchar",
	registry.Text:    "values_text",
	registry.Date:    "values_date",
}

// DiscoverValues returns the most used values of tag. With a criterion, only
// elements matching it are counted. Date values are rendered as YYYY-MM-DD.
func DiscoverValues(
	ctx context.Context,
	db *sql.DB,
	adapter storage.Adapter,
	reg *registry.Registry,
	tag registry.Tag,
	crit criteria.Criterion,
	opts SearchOptions,
	top int,
) ([]ValueCount, error) {
	table, ok := valueTables[tag.Type]
	if !ok {
		return nil, mserrors.Invalid("unsupported value type " + string(tag.Type))
	}
	if top <= 0 {
		top = DefaultDiscoverTop
	}

	var result []ValueCount
	_, _, _, err := withSession(ctx, db, adapter, reg, opts, func(conn *sql.Conn, s *criteria.Session, scope criteria.Scope) (criteria.IDSet, []criteria.TagValue, error) {
		if crit != nil {
			if err := crit.Process(ctx, s, scope); err != nil {
				return nil, nil, err
			}
			var err error
			if scope, err = s.Restrict(ctx, scope.Domain, crit.Result()); err != nil {
				return nil, nil, err
			}
		}

		b := sqlbuilder.New(adapter.PlaceholderStyle())
		var q strings.Builder
		q.WriteString("SELECT v.id, v.value, COUNT(DISTINCT t.element_id) AS cnt FROM tags t")
		q.WriteString(" JOIN " + table + " v ON v.id = t.value_id AND v.tag_id = t.tag_id")
		if scope.Restricted() {
			q.WriteString(" JOIN search_scope sc ON sc.element_id = t.element_id AND sc.request_id = " + b.Arg(s.RequestID()))
		}
		if scope.Domain != 0 {
			q.WriteString(" JOIN elements el ON el.id = t.element_id AND el.domain = " + b.Arg(scope.Domain))
		}
		q.WriteString(" WHERE t.tag_id = " + b.Arg(tag.ID))
		q.WriteString(" GROUP BY v.id, v.value ORDER BY cnt DESC, v.value ASC LIMIT " + b.Arg(top))

		rows, err := conn.QueryContext(ctx, q.String(), b.Args()...)
		if err != nil {
			return nil, nil, mserrors.Backend("query values", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				vc     ValueCount
				packed int64
				dest   any = &vc.Value
			)
			if tag.Type == registry.Date {
				dest = &packed
			}
			if err := rows.Scan(&vc.ValueID, dest, &vc.Count); err != nil {
				return nil, nil, mserrors.Backend("scan value", err)
			}
			if tag.Type == registry.Date {
				vc.Value = registry.FormatDate(packed)
			}
			result = append(result, vc)
		}
		if err := rows.Err(); err != nil {
			return nil, nil, mserrors.Backend("query values", err)
		}
		return nil, nil, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
