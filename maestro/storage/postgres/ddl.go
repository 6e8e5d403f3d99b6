package postgres

import "github.com/maestro/maestro/maestro/storage"

const migrationV1 = `
CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value TEXT
);

CREATE TABLE IF NOT EXISTS domains (
  id   BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS elements (
  id     BIGSERIAL PRIMARY KEY,
  domain BIGINT NOT NULL REFERENCES domains(id),
  file   SMALLINT NOT NULL DEFAULT 1,
  url    TEXT
);
CREATE INDEX IF NOT EXISTS idx_elements_domain ON elements(domain);

CREATE TABLE IF NOT EXISTS tagids (
  id      BIGSERIAL PRIMARY KEY,
  tagname TEXT NOT NULL UNIQUE,
  tagtype TEXT NOT NULL,
  title   TEXT,
  private SMALLINT NOT NULL DEFAULT 0,
  sort    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS flag_names (
  id   BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  icon TEXT
);

CREATE TABLE IF NOT EXISTS values_varchar (
  id           BIGSERIAL PRIMARY KEY,
  tag_id       BIGINT NOT NULL REFERENCES tagids(id) ON DELETE CASCADE,
  value        TEXT NOT NULL,
  search_value TEXT NOT NULL,
  UNIQUE (tag_id, value)
);

CREATE TABLE IF NOT EXISTS values_text (
  id           BIGSERIAL PRIMARY KEY,
  tag_id       BIGINT NOT NULL REFERENCES tagids(id) ON DELETE CASCADE,
  value        TEXT NOT NULL,
  search_value TEXT NOT NULL,
  UNIQUE (tag_id, value)
);

CREATE TABLE IF NOT EXISTS values_date (
  id     BIGSERIAL PRIMARY KEY,
  tag_id BIGINT NOT NULL REFERENCES tagids(id) ON DELETE CASCADE,
  value  BIGINT NOT NULL,
  UNIQUE (tag_id, value)
);
CREATE INDEX IF NOT EXISTS idx_values_date ON values_date(tag_id, value);

CREATE TABLE IF NOT EXISTS tags (
  element_id BIGINT NOT NULL REFERENCES elements(id) ON DELETE CASCADE,
  tag_id     BIGINT NOT NULL REFERENCES tagids(id) ON DELETE CASCADE,
  value_id   BIGINT NOT NULL,
  PRIMARY KEY (element_id, tag_id, value_id)
);
CREATE INDEX IF NOT EXISTS idx_tags_value ON tags(tag_id, value_id);

CREATE TABLE IF NOT EXISTS flags (
  element_id BIGINT NOT NULL REFERENCES elements(id) ON DELETE CASCADE,
  flag_id    BIGINT NOT NULL REFERENCES flag_names(id) ON DELETE CASCADE,
  PRIMARY KEY (element_id, flag_id)
);
CREATE INDEX IF NOT EXISTS idx_flags_flag ON flags(flag_id);
`

const migrationV1_1 = `
CREATE TABLE IF NOT EXISTS stickers (
  element_id BIGINT NOT NULL REFERENCES elements(id) ON DELETE CASCADE,
  type       TEXT NOT NULL,
  sort       INTEGER NOT NULL DEFAULT 0,
  data       TEXT,
  PRIMARY KEY (element_id, type, sort)
);
CREATE INDEX IF NOT EXISTS idx_stickers_type ON stickers(type);
`

const ddlSession = `
CREATE TEMP TABLE IF NOT EXISTS search_scratch (
  request_id TEXT NOT NULL,
  tag_id     BIGINT NOT NULL,
  value_id   BIGINT NOT NULL
);
CREATE TEMP TABLE IF NOT EXISTS search_scope (
  request_id TEXT NOT NULL,
  element_id BIGINT NOT NULL
);
`

var migrations = []storage.Migration{
	{Version: "1.0.0", Up: migrationV1},
	{Version: "1.1.0", Up: migrationV1_1},
}
