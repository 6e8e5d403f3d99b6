package ops

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/registry"
	"github.com/maestro/maestro/maestro/storage"
)

// Domain is a partition of the library, e.g. music or audiobooks.
type Domain struct {
	ID   int64
	Name string
}

// EnsureDomain returns the id of the named domain, creating it if needed.
func EnsureDomain(ctx context.Context, q storage.Querier, sqlt storage.SQL, name string) (int64, error) {
	id, err := DomainByName(ctx, q, sqlt, name)
	if err == nil {
		return id, nil
	}
	if !mserrors.Is(err, mserrors.ErrNotFound) {
		return 0, err
	}
	if !registry.ValidName(name) {
		return 0, mserrors.Invalid(fmt.Sprintf("invalid domain name %q", name))
	}
	if err := q.QueryRowContext(ctx, sqlt.InsertDomain, name).Scan(&id); err != nil {
		return 0, mserrors.Backend("insert domain", err)
	}
	return id, nil
}

func DomainByName(ctx context.Context, q storage.Querier, sqlt storage.SQL, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, sqlt.GetDomainByName, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, mserrors.NotFound("domain " + name)
	}
	if err != nil {
		return 0, mserrors.Backend("find domain", err)
	}
	return id, nil
}

func ListDomains(ctx context.Context, q storage.Querier, sqlt storage.SQL) ([]Domain, error) {
	rows, err := q.QueryContext(ctx, sqlt.ListDomains)
	if err != nil {
		return nil, mserrors.Backend("list domains", err)
	}
	defer rows.Close()

	var out []Domain
	for rows.Next() {
		var d Domain
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, mserrors.Backend("list domains", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, mserrors.Backend("list domains", err)
	}
	return out, nil
}

// AddTag stores a new tag definition and returns it with its id.
func AddTag(ctx context.Context, q storage.Querier, sqlt storage.SQL, reg *registry.Registry, name string, vt registry.ValueType, title string, private bool) (registry.Tag, error) {
	if !registry.ValidName(name) {
		return registry.Tag{}, mserrors.Invalid(fmt.Sprintf("invalid tag name %q", name))
	}
	if reg.HasTag(name) {
		return registry.Tag{}, mserrors.Invalid(fmt.Sprintf("tag %q already exists", name))
	}
	if title == "" {
		title = name
	}
	priv := 0
	if private {
		priv = 1
	}
	t := registry.Tag{Name: name, Type: vt, Title: title, Private: private}
	if err := q.QueryRowContext(ctx, sqlt.InsertTag, name, string(vt), title, priv).Scan(&t.ID); err != nil {
		return registry.Tag{}, mserrors.Backend("insert tag", err)
	}
	reg.AddTag(t)
	return t, nil
}

// AddFlag stores a new flag definition and returns it with its id.
func AddFlag(ctx context.Context, q storage.Querier, sqlt storage.SQL, reg *registry.Registry, name, icon string) (registry.Flag, error) {
	if !registry.ValidName(name) {
		return registry.Flag{}, mserrors.Invalid(fmt.Sprintf("invalid flag name %q", name))
	}
	if _, err := reg.FlagByName(name); err == nil {
		return registry.Flag{}, mserrors.Invalid(fmt.Sprintf("flag %q already exists", name))
	}
	f := registry.Flag{Name: name, Icon: icon}
	var iconArg sql.NullString
	if icon != "" {
		iconArg = sql.NullString{String: icon, Valid: true}
	}
	if err := q.QueryRowContext(ctx, sqlt.InsertFlag, name, iconArg).Scan(&f.ID); err != nil {
		return registry.Flag{}, mserrors.Backend("insert flag", err)
	}
	reg.AddFlag(f)
	return f, nil
}
