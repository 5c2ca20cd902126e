package store

// schema creates the card tables. Properties keep their position so a
// loaded card serializes in the order it was saved.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS cards (
		uid TEXT PRIMARY KEY,
		kind TEXT NOT NULL DEFAULT 'individual',
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS properties (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		card_uid TEXT NOT NULL REFERENCES cards(uid) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		display_name TEXT NOT NULL,
		grp TEXT NOT NULL DEFAULT '',
		value TEXT NOT NULL,
		media_type TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_card ON properties(card_uid, position)`,
	`CREATE TABLE IF NOT EXISTS property_fields (
		property_id INTEGER NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		field TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (property_id, field)
	)`,
	`CREATE TABLE IF NOT EXISTS property_types (
		property_id INTEGER NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		PRIMARY KEY (property_id, type)
	)`,
	`CREATE TABLE IF NOT EXISTS property_params (
		property_id INTEGER NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		key TEXT NOT NULL,
		value TEXT,
		PRIMARY KEY (property_id, position)
	)`,
}

const (
	insertCardSQL = `INSERT INTO cards (uid, kind, updated_at) VALUES (?, ?, ?)`
	deleteCardSQL = `DELETE FROM cards WHERE uid = ?`

	insertPropertySQL = `INSERT INTO properties
		(card_uid, position, name, display_name, grp, value, media_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	insertFieldSQL = `INSERT INTO property_fields (property_id, field, value) VALUES (?, ?, ?)`
	insertTypeSQL  = `INSERT INTO property_types (property_id, type) VALUES (?, ?)`
	insertParamSQL = `INSERT INTO property_params (property_id, position, key, value) VALUES (?, ?, ?, ?)`

	selectCardSQL       = `SELECT uid FROM cards WHERE uid = ?`
	selectUIDsSQL       = `SELECT uid FROM cards ORDER BY uid`
	selectUIDsByKindSQL = `SELECT uid FROM cards WHERE kind = ? ORDER BY uid`
	selectPropertiesSQL = `SELECT id, name, display_name, grp, value, media_type
		FROM properties WHERE card_uid = ? ORDER BY position`
	selectFieldsSQL = `SELECT field, value FROM property_fields WHERE property_id = ?`
	selectTypesSQL  = `SELECT type FROM property_types WHERE property_id = ? ORDER BY type`
	selectParamsSQL = `SELECT key, value FROM property_params WHERE property_id = ? ORDER BY position`
)

// writeQueries are the statements Save runs inside its transaction.
var writeQueries = []string{
	deleteCardSQL, insertCardSQL, insertPropertySQL, insertFieldSQL, insertTypeSQL, insertParamSQL,
}
