// Package storage persists extracted facts in SQLite. Every record type of a
// ParseResult gets its own table; an ordinal column keeps the original order
// so a stored file reads back exactly as it was written.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// SchemaVersion is written to facts_metadata when the schema is created.
const SchemaVersion = "1.0"

// CreateSchema creates all tables and indexes if they do not exist yet.
// Uses one transaction, so a partially created schema is never left behind.
//
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	// Create all tables in dependency order
	tables := []struct {
		name string
		ddl  string
	}{
		{"files", createFilesTable},
		{"symbols", createSymbolsTable},
		{"annotations", createAnnotationsTable},
		{"imports", createImportsTable},
		{"inheritances", createInheritancesTable},
		{"calls", createCallsTable},
		{"facts_metadata", createMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range getAllIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = sq.Insert("facts_metadata").
		Columns("key", "value", "updated_at").
		Values("schema_version", SchemaVersion, now).
		Values("last_indexed", "", now).
		Options("OR IGNORE").
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to bootstrap facts_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion retrieves the schema version from facts_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='facts_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check facts_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}
	return getMetadata(db, "schema_version")
}

func getMetadata(db sq.BaseRunner, key string) (string, error) {
	var value string
	err := sq.Select("value").
		From("facts_metadata").
		Where(sq.Eq{"key": key}).
		RunWith(db).
		QueryRow().
		Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%s key not found in facts_metadata", key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query %s: %w", key, err)
	}
	return value, nil
}

func setMetadata(tx *sql.Tx, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := tx.Exec(`
		INSERT INTO facts_metadata (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, now)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", key, err)
	}
	return nil
}

// Table DDL constants

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
    file_id TEXT PRIMARY KEY,                    -- UUID
    file_path TEXT NOT NULL UNIQUE,              -- Relative path from project root
    language TEXT NOT NULL,                      -- python, php, java, typescript, tsx, javascript
    namespace TEXT NOT NULL DEFAULT '',          -- Package/namespace, '' when absent
    module_docstring TEXT NOT NULL DEFAULT '',
    file_lines INTEGER NOT NULL DEFAULT 0,
    error_kind TEXT,                             -- NULL when the file parsed cleanly
    error_message TEXT,
    error_line INTEGER,
    indexed_at TEXT NOT NULL                     -- ISO 8601
)
`

const createSymbolsTable = `
CREATE TABLE IF NOT EXISTS symbols (
    symbol_id TEXT PRIMARY KEY,                  -- UUID
    file_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,                    -- Position in ParseResult.Symbols
    name TEXT NOT NULL,                          -- Dotted lexical path (Outer.Inner.method)
    kind TEXT NOT NULL,
    signature TEXT NOT NULL DEFAULT '',
    docstring TEXT NOT NULL DEFAULT '',
    throws TEXT NOT NULL DEFAULT '[]',           -- JSON array of type names
    line_start INTEGER NOT NULL,
    line_end INTEGER NOT NULL,
    FOREIGN KEY (file_id) REFERENCES files(file_id) ON DELETE CASCADE
)
`

const createAnnotationsTable = `
CREATE TABLE IF NOT EXISTS annotations (
    annotation_id TEXT PRIMARY KEY,              -- UUID
    symbol_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    name TEXT NOT NULL,
    arguments TEXT NOT NULL DEFAULT '{}',        -- JSON object
    FOREIGN KEY (symbol_id) REFERENCES symbols(symbol_id) ON DELETE CASCADE
)
`

const createImportsTable = `
CREATE TABLE IF NOT EXISTS imports (
    import_id TEXT PRIMARY KEY,                  -- UUID
    file_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    module TEXT NOT NULL,
    names TEXT NOT NULL DEFAULT '[]',            -- JSON array
    alias TEXT,                                  -- NULL when not aliased
    is_from INTEGER NOT NULL DEFAULT 0,          -- Boolean
    FOREIGN KEY (file_id) REFERENCES files(file_id) ON DELETE CASCADE
)
`

const createInheritancesTable = `
CREATE TABLE IF NOT EXISTS inheritances (
    inheritance_id TEXT PRIMARY KEY,             -- UUID
    file_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    child TEXT NOT NULL,
    parent TEXT NOT NULL,
    FOREIGN KEY (file_id) REFERENCES files(file_id) ON DELETE CASCADE
)
`

const createCallsTable = `
CREATE TABLE IF NOT EXISTS calls (
    call_id TEXT PRIMARY KEY,                    -- UUID
    file_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    caller TEXT NOT NULL,
    callee TEXT,                                 -- NULL for dynamic calls
    call_type TEXT NOT NULL,
    line_number INTEGER NOT NULL,
    arguments_count INTEGER,                     -- NULL when unknown
    FOREIGN KEY (file_id) REFERENCES files(file_id) ON DELETE CASCADE
)
`

const createMetadataTable = `
CREATE TABLE IF NOT EXISTS facts_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

// getAllIndexes returns all index creation statements.
func getAllIndexes() []string {
	return []string{
		"CREATE INDEX IF NOT EXISTS idx_files_language ON files(language)",
		"CREATE INDEX IF NOT EXISTS idx_files_namespace ON files(namespace)",

		"CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id, ordinal)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind)",

		"CREATE INDEX IF NOT EXISTS idx_annotations_symbol ON annotations(symbol_id, ordinal)",
		"CREATE INDEX IF NOT EXISTS idx_annotations_name ON annotations(name)",

		"CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(file_id, ordinal)",
		"CREATE INDEX IF NOT EXISTS idx_imports_module ON imports(module)",

		"CREATE INDEX IF NOT EXISTS idx_inheritances_file ON inheritances(file_id, ordinal)",
		"CREATE INDEX IF NOT EXISTS idx_inheritances_child ON inheritances(child)",
		"CREATE INDEX IF NOT EXISTS idx_inheritances_parent ON inheritances(parent)",

		"CREATE INDEX IF NOT EXISTS idx_calls_file ON calls(file_id, ordinal)",
		"CREATE INDEX IF NOT EXISTS idx_calls_caller ON calls(caller)",
		"CREATE INDEX IF NOT EXISTS idx_calls_callee ON calls(callee)",
		"CREATE INDEX IF NOT EXISTS idx_calls_call_type ON calls(call_type)",
	}
}
