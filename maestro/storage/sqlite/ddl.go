package sqlite

import "github.com/maestro/maestro/maestro/storage"

const migrationV1 = `
CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value TEXT
);

CREATE TABLE IF NOT EXISTS domains (
  id   INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS elements (
  id     INTEGER PRIMARY KEY AUTOINCREMENT,
  domain INTEGER NOT NULL REFERENCES domains(id),
  file   INTEGER NOT NULL DEFAULT 1,
  url    TEXT
);
CREATE INDEX IF NOT EXISTS idx_elements_domain ON elements(domain);

CREATE TABLE IF NOT EXISTS tagids (
  id      INTEGER PRIMARY KEY AUTOINCREMENT,
  tagname TEXT NOT NULL UNIQUE,
  tagtype TEXT NOT NULL,
  title   TEXT,
  private INTEGER NOT NULL DEFAULT 0,
  sort    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS flag_names (
  id   INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  icon TEXT
);

CREATE TABLE IF NOT EXISTS values_varchar (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  tag_id       INTEGER NOT NULL REFERENCES tagids(id) ON DELETE CASCADE,
  value        TEXT NOT NULL,
  search_value TEXT NOT NULL,
  UNIQUE (tag_id, value)
);

CREATE TABLE IF NOT EXISTS values_text (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  tag_id       INTEGER NOT NULL REFERENCES tagids(id) ON DELETE CASCADE,
  value        TEXT NOT NULL,
  search_value TEXT NOT NULL,
  UNIQUE (tag_id, value)
);

CREATE TABLE IF NOT EXISTS values_date (
  id     INTEGER PRIMARY KEY AUTOINCREMENT,
  tag_id INTEGER NOT NULL REFERENCES tagids(id) ON DELETE CASCADE,
  value  INTEGER NOT NULL,
  UNIQUE (tag_id, value)
);
CREATE INDEX IF NOT EXISTS idx_values_date ON values_date(tag_id, value);

CREATE TABLE IF NOT EXISTS tags (
  element_id INTEGER NOT NULL REFERENCES elements(id) ON DELETE CASCADE,
  tag_id     INTEGER NOT NULL REFERENCES tagids(id) ON DELETE CASCADE,
  value_id   INTEGER NOT NULL,
  PRIMARY KEY (element_id, tag_id, value_id)
);
CREATE INDEX IF NOT EXISTS idx_tags_value ON tags(tag_id, value_id);

CREATE TABLE IF NOT EXISTS flags (
  element_id INTEGER NOT NULL REFERENCES elements(id) ON DELETE CASCADE,
  flag_id    INTEGER NOT NULL REFERENCES flag_names(id) ON DELETE CASCADE,
  PRIMARY KEY (element_id, flag_id)
);
CREATE INDEX IF NOT EXISTS idx_flags_flag ON flags(flag_id);
`

const migrationV1_1 = `
CREATE TABLE IF NOT EXISTS stickers (
  element_id INTEGER NOT NULL REFERENCES elements(id) ON DELETE CASCADE,
  type       TEXT NOT NULL,
  sort       INTEGER NOT NULL DEFAULT 0,
  data       TEXT,
  PRIMARY KEY (element_id, type, sort)
);
CREATE INDEX IF NOT EXISTS idx_stickers_type ON stickers(type);
`

// Temporary tables live per connection; rows are keyed by the search
// session's request id.
const ddlSession = `
CREATE TEMP TABLE IF NOT EXISTS search_scratch (
  request_id TEXT NOT NULL,
  tag_id     INTEGER NOT NULL,
  value_id   INTEGER NOT NULL
);
CREATE TEMP TABLE IF NOT EXISTS search_scope (
  request_id TEXT NOT NULL,
  element_id INTEGER NOT NULL
);
`

var migrations = []storage.Migration{
	{Version: "1.0.0", Up: migrationV1},
	{Version: "1.1.0", Up: migrationV1_1},
}
