package storage

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the version of the history log layout written by this
// package. Logs with another version are rejected.
const SchemaVersion = 1

// ErrSchemaVersion is returned when a log was written with another schema.
type ErrSchemaVersion struct {
	Found int
}

func (e *ErrSchemaVersion) Error() string {
	return fmt.Sprintf("history log has schema version %d, want %d", e.Found, SchemaVersion)
}

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createRevisionsTable(tx); err != nil {
			return err
		}
		if err := createChangesTable(tx); err != nil {
			return err
		}
		if err := setSchemaVersion(tx, SchemaVersion); err != nil {
			return err
		}

		db.logger.Debug("History log schema initialized", "version", SchemaVersion)
		return nil
	})
}

func (db *DB) checkSchemaVersion() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version != SchemaVersion {
		return &ErrSchemaVersion{Found: version}
	}
	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table
func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createRevisionsTable creates the revisions table. seq is the chronological
// position of the revision, starting at 1 for the root.
func createRevisionsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS revisions (
			seq INTEGER PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			date TEXT NOT NULL,
			author TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create revisions table: %w", err)
	}
	return nil
}

// createChangesTable creates the changes table. payload holds the encoded
// transaction of edited files and is NULL otherwise.
func createChangesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS changes (
			seq INTEGER NOT NULL,
			path TEXT NOT NULL,
			kind TEXT NOT NULL CHECK(kind IN ('edited', 'removed', 'uninterpretable')),
			payload BLOB,

			PRIMARY KEY (seq, path),
			FOREIGN KEY (seq) REFERENCES revisions(seq) ON DELETE CASCADE,
			CHECK((kind = 'edited') = (payload IS NOT NULL))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create changes table: %w", err)
	}

	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_changes_path ON changes(path, seq)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}
