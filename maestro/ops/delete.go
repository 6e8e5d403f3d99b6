package ops

import (
	"context"
	"database/sql"
	"fmt"

	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/storage"
)

// DeleteByElementID deletes an element with its tags, flags and stickers.
// It reports whether the element existed.
func DeleteByElementID(ctx context.Context, tx *sql.Tx, sqlt storage.SQL, elementID int64) (bool, error) {
	queries := []struct {
		sql  string
		name string
	}{
		{sqlt.DeleteTagsByElement, "tags"},
		{sqlt.DeleteFlagsByElement, "flags"},
		{sqlt.DeleteStickersByElement, "stickers"},
	}
	for _, q := range queries {
		if _, err := tx.ExecContext(ctx, q.sql, elementID); err != nil {
			return false, fmt.Errorf("delete %s: %w", q.name, err)
		}
	}

	res, err := tx.ExecContext(ctx, sqlt.DeleteElementByID, elementID)
	if err != nil {
		return false, fmt.Errorf("delete element: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete element: %w", err)
	}
	return n > 0, nil
}

// DeleteElements deletes every listed element in one transaction and
// returns how many existed.
func DeleteElements(ctx context.Context, db *sql.DB, sqlt storage.SQL, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, mserrors.Backend("begin transaction", err)
	}
	defer tx.Rollback()

	deleted := 0
	for _, id := range ids {
		found, err := DeleteByElementID(ctx, tx, sqlt, id)
		if err != nil {
			return 0, mserrors.Backend(fmt.Sprintf("delete element %d", id), err)
		}
		if found {
			deleted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, mserrors.Backend("commit", err)
	}
	return deleted, nil
}

// PurgeOrphanValues removes values no element refers to any more and
// returns the number of removed rows.
func PurgeOrphanValues(ctx context.Context, q storage.Querier, sqlt storage.SQL) (int64, error) {
	var total int64
	for _, stmt := range []string{sqlt.PurgeOrphanVarchar, sqlt.PurgeOrphanText, sqlt.PurgeOrphanDate} {
		res, err := q.ExecContext(ctx, stmt)
		if err != nil {
			return total, mserrors.Backend("purge values", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}
