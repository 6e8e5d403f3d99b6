package sqlite

import "github.com/maestro/maestro/maestro/storage"

var SQLTemplates = storage.SQL{
	GetMeta:  "SELECT value FROM meta WHERE key = ?1",
	SetMeta:  "INSERT INTO meta(key,value) VALUES(?1,?2) ON CONFLICT(key) DO UPDATE SET value=excluded.value",
	Contains: "instr",

	InsertDomain:    "INSERT INTO domains(name) VALUES(?1) RETURNING id",
	GetDomainByName: "SELECT id FROM domains WHERE name = ?1",
	ListDomains:     "SELECT id, name FROM domains ORDER BY id",

	InsertTag:  "INSERT INTO tagids(tagname, tagtype, title, private, sort) VALUES(?1, ?2, ?3, ?4, (SELECT COALESCE(MAX(sort), 0) + 1 FROM tagids)) RETURNING id",
	InsertFlag: "INSERT INTO flag_names(name, icon) VALUES(?1, ?2) RETURNING id",

	InsertElement:     "INSERT INTO elements(domain, file, url) VALUES(?1, ?2, ?3) RETURNING id",
	GetElement:        "SELECT id, domain, file, url FROM elements WHERE id = ?1",
	DeleteElementByID: "DELETE FROM elements WHERE id = ?1",

	InsertOrIgnoreVarchar: "INSERT INTO values_varchar(tag_id, value, search_value) VALUES(?1, ?2, ?3) ON CONFLICT(tag_id, value) DO NOTHING",
	GetVarcharID:          "SELECT id FROM values_varchar WHERE tag_id = ?1 AND value = ?2",
	InsertOrIgnoreText:    "INSERT INTO values_text(tag_id, value, search_value) VALUES(?1, ?2, ?3) ON CONFLICT(tag_id, value) DO NOTHING",
	GetTextID:             "SELECT id FROM values_text WHERE tag_id = ?1 AND value = ?2",
	InsertOrIgnoreDate:    "INSERT INTO values_date(tag_id, value) VALUES(?1, ?2) ON CONFLICT(tag_id, value) DO NOTHING",
	GetDateID:             "SELECT id FROM values_date WHERE tag_id = ?1 AND value = ?2",

	InsertTagValue:          "INSERT INTO tags(element_id, tag_id, value_id) VALUES(?1, ?2, ?3) ON CONFLICT DO NOTHING",
	DeleteTagValues:         "DELETE FROM tags WHERE element_id = ?1 AND tag_id = ?2",
	DeleteTagsByElement:     "DELETE FROM tags WHERE element_id = ?1",
	InsertFlagAssignment:    "INSERT INTO flags(element_id, flag_id) VALUES(?1, ?2) ON CONFLICT DO NOTHING",
	DeleteFlagsByElement:    "DELETE FROM flags WHERE element_id = ?1",
	UpsertSticker:           "INSERT INTO stickers(element_id, type, sort, data) VALUES(?1, ?2, ?3, ?4) ON CONFLICT(element_id, type, sort) DO UPDATE SET data=excluded.data",
	DeleteSticker:           "DELETE FROM stickers WHERE element_id = ?1 AND type = ?2",
	DeleteStickersByElement: "DELETE FROM stickers WHERE element_id = ?1",

	PurgeOrphanVarchar: "DELETE FROM values_varchar WHERE NOT EXISTS (SELECT 1 FROM tags t WHERE t.tag_id = values_varchar.tag_id AND t.value_id = values_varchar.id)",
	PurgeOrphanText:    "DELETE FROM values_text WHERE NOT EXISTS (SELECT 1 FROM tags t WHERE t.tag_id = values_text.tag_id AND t.value_id = values_text.id)",
	PurgeOrphanDate:    "DELETE FROM values_date WHERE NOT EXISTS (SELECT 1 FROM tags t WHERE t.tag_id = values_date.tag_id AND t.value_id = values_date.id)",

	ClearScratch: "DELETE FROM search_scratch WHERE request_id = ?1",
	ClearScope:   "DELETE FROM search_scope WHERE request_id = ?1",
}
