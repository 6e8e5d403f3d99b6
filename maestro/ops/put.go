package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/registry"
	"github.com/maestro/maestro/maestro/storage"
	"github.com/maestro/maestro/maestro/textnorm"
)

// StickerInput is one sticker of an element.
type StickerInput struct {
	Type string
	Sort int
	Data string
}

// PutPrepared holds a validated element document.
type PutPrepared struct {
	Domain   string
	File     bool
	URL      string
	Tags     map[registry.Tag][]string
	Flags    []registry.Flag
	Stickers []StickerInput
}

// PreparePut validates an element document:
//
//	{"domain": "music", "file": true, "url": "file:///a.flac",
//	 "tags": {"artist": "Harry", "date": ["1975"]},
//	 "flags": ["favorite"], "stickers": {"rating": "5"}}
//
// Tag and flag names must be known to reg.
func PreparePut(reg *registry.Registry, docJSON []byte, defaultDomain string) (*PutPrepared, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(docJSON, &doc); err != nil {
		return nil, mserrors.Wrap(mserrors.ErrInvalid, "invalid JSON document", err)
	}

	prep := &PutPrepared{
		Domain: defaultDomain,
		File:   true,
		Tags:   make(map[registry.Tag][]string),
	}

	if v, ok := doc["domain"]; ok && v != nil {
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, mserrors.Invalid("'domain' must be a non-empty string")
		}
		prep.Domain = s
	}
	if prep.Domain == "" {
		return nil, mserrors.Invalid("document must name a domain")
	}
	if v, ok := doc["file"]; ok && v != nil {
		b, err := extractBoolValue(v)
		if err != nil {
			return nil, mserrors.Wrap(mserrors.ErrInvalid, "field 'file'", err)
		}
		prep.File = b
	}
	if v, ok := doc["url"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, mserrors.Invalid("'url' must be a string")
		}
		prep.URL = s
	}

	if v, ok := doc["tags"]; ok && v != nil {
		tags, ok := v.(map[string]interface{})
		if !ok {
			return nil, mserrors.Invalid("'tags' must be an object")
		}
		for name, raw := range tags {
			tag, err := reg.TagByName(name)
			if err != nil {
				return nil, err
			}
			values, err := extractTagValues(raw)
			if err != nil {
				return nil, mserrors.Wrap(mserrors.ErrInvalid, fmt.Sprintf("tag '%s'", name), err)
			}
			if tag.Type == registry.Date {
				for _, s := range values {
					if _, err := registry.ParseDate(s); err != nil {
						return nil, err
					}
				}
			}
			prep.Tags[tag] = append(prep.Tags[tag], values...)
		}
	}

	if v, ok := doc["flags"]; ok && v != nil {
		names, err := extractTagValues(v)
		if err != nil {
			return nil, mserrors.Wrap(mserrors.ErrInvalid, "field 'flags'", err)
		}
		for _, name := range names {
			f, err := reg.FlagByName(name)
			if err != nil {
				return nil, err
			}
			prep.Flags = append(prep.Flags, f)
		}
	}

	if v, ok := doc["stickers"]; ok && v != nil {
		stickers, ok := v.(map[string]interface{})
		if !ok {
			return nil, mserrors.Invalid("'stickers' must be an object")
		}
		types := make([]string, 0, len(stickers))
		for t := range stickers {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			if !registry.ValidName(t) {
				return nil, mserrors.Invalid(fmt.Sprintf("invalid sticker type %q", t))
			}
			values, err := extractTagValues(stickers[t])
			if err != nil {
				return nil, mserrors.Wrap(mserrors.ErrInvalid, fmt.Sprintf("sticker '%s'", t), err)
			}
			for i, data := range values {
				prep.Stickers = append(prep.Stickers, StickerInput{Type: t, Sort: i, Data: data})
			}
		}
	}

	return prep, nil
}

// ExecutePut inserts a new element and all its tags, flags and stickers
// within tx.
func ExecutePut(ctx context.Context, tx *sql.Tx, sqlt storage.SQL, domainID int64, prep *PutPrepared) (int64, error) {
	file := 0
	if prep.File {
		file = 1
	}
	var url sql.NullString
	if prep.URL != "" {
		url = sql.NullString{String: prep.URL, Valid: true}
	}

	var elementID int64
	if err := tx.QueryRowContext(ctx, sqlt.InsertElement, domainID, file, url).Scan(&elementID); err != nil {
		return 0, fmt.Errorf("insert element: %w", err)
	}

	for _, tag := range registry.SortTags(tagKeys(prep.Tags)) {
		if err := SetTagValues(ctx, tx, sqlt, elementID, tag, prep.Tags[tag]); err != nil {
			return 0, err
		}
	}
	if len(prep.Flags) > 0 {
		if err := SetFlags(ctx, tx, sqlt, elementID, prep.Flags); err != nil {
			return 0, err
		}
	}
	for _, st := range prep.Stickers {
		if err := SetSticker(ctx, tx, sqlt, elementID, st); err != nil {
			return 0, err
		}
	}
	return elementID, nil
}

func tagKeys(m map[registry.Tag][]string) []registry.Tag {
	out := make([]registry.Tag, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	return out
}

// SetTagValues replaces the values of one tag of an element. Values are
// added to the value table of the tag's type if new.
func SetTagValues(ctx context.Context, tx *sql.Tx, sqlt storage.SQL, elementID int64, tag registry.Tag, values []string) error {
	if _, err := tx.ExecContext(ctx, sqlt.DeleteTagValues, elementID, tag.ID); err != nil {
		return fmt.Errorf("delete tag values: %w", err)
	}
	for _, value := range values {
		valueID, err := insertValue(ctx, tx, sqlt, tag, value)
		if err != nil {
			return fmt.Errorf("insert value for %s: %w", tag.Name, err)
		}
		if _, err := tx.ExecContext(ctx, sqlt.InsertTagValue, elementID, tag.ID, valueID); err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
	}
	return nil
}

// insertValue returns the id of value in the tag's value table, inserting it
// first if needed.
func insertValue(ctx context.Context, tx *sql.Tx, sqlt storage.SQL, tag registry.Tag, value string) (int64, error) {
	var (
		insert, get string
		args        []any
	)
	switch tag.Type {
	case registry.Varchar:
		insert, get = sqlt.InsertOrIgnoreVarchar, sqlt.GetVarcharID
		args = []any{tag.ID, value, textnorm.Fold(value)}
	case registry.Text:
		insert, get = sqlt.InsertOrIgnoreText, sqlt.GetTextID
		args = []any{tag.ID, value, textnorm.Fold(value)}
	case registry.Date:
		packed, err := registry.ParseDate(value)
		if err != nil {
			return 0, err
		}
		insert, get = sqlt.InsertOrIgnoreDate, sqlt.GetDateID
		args = []any{tag.ID, packed}
	default:
		return 0, mserrors.Invalid("unsupported value type " + string(tag.Type))
	}

	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		return 0, err
	}
	var valueID int64
	if err := tx.QueryRowContext(ctx, get, args[0], args[1]).Scan(&valueID); err != nil {
		return 0, err
	}
	return valueID, nil
}

// SetFlags replaces the flags of an element.
func SetFlags(ctx context.Context, tx *sql.Tx, sqlt storage.SQL, elementID int64, flags []registry.Flag) error {
	if _, err := tx.ExecContext(ctx, sqlt.DeleteFlagsByElement, elementID); err != nil {
		return fmt.Errorf("delete flags: %w", err)
	}
	for _, f := range flags {
		if _, err := tx.ExecContext(ctx, sqlt.InsertFlagAssignment, elementID, f.ID); err != nil {
			return fmt.Errorf("insert flag: %w", err)
		}
	}
	return nil
}

// SetSticker inserts or replaces the sticker (type, sort) of an element.
func SetSticker(ctx context.Context, tx *sql.Tx, sqlt storage.SQL, elementID int64, st StickerInput) error {
	if _, err := tx.ExecContext(ctx, sqlt.UpsertSticker, elementID, st.Type, st.Sort, st.Data); err != nil {
		return fmt.Errorf("upsert sticker: %w", err)
	}
	return nil
}

// RemoveSticker deletes every sticker of the given type from an element.
func RemoveSticker(ctx context.Context, tx *sql.Tx, sqlt storage.SQL, elementID int64, stickerType string) error {
	if _, err := tx.ExecContext(ctx, sqlt.DeleteSticker, elementID, stickerType); err != nil {
		return fmt.Errorf("delete sticker: %w", err)
	}
	return nil
}

// extractTagValues accepts a string, number, bool or an array of them.
func extractTagValues(val interface{}) ([]string, error) {
	switch v := val.(type) {
	case string:
		return []string{v}, nil
	case float64:
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}, nil
	case bool:
		return []string{strconv.FormatBool(v)}, nil
	case []interface{}:
		var result []string
		for _, item := range v {
			switch i := item.(type) {
			case string:
				result = append(result, i)
			case float64:
				result = append(result, strconv.FormatFloat(i, 'f', -1, 64))
			case bool:
				result = append(result, strconv.FormatBool(i))
			default:
				return nil, fmt.Errorf("invalid value type: %T", item)
			}
		}
		return result, nil
	default:
		return nil, fmt.Errorf("invalid value type: %T", val)
	}
}

func extractBoolValue(val interface{}) (bool, error) {
	switch v := val.(type) {
	case bool:
		return v, nil
	case string:
		switch v {
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return false, fmt.Errorf("invalid bool string: %s", v)
		}
	default:
		return false, fmt.Errorf("invalid bool value type: %T", val)
	}
}
