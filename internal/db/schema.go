// Package db provides SQLite database management for CloudGate's
// append-only audit log.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// AuditSchema defines the append-only audit log table. Every executed,
// denied or consent-gated command leaves one record; records form a
// hash chain for tamper detection.
const AuditSchema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS audit_log (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp       TEXT NOT NULL,
    run_uuid        TEXT DEFAULT '',
    principal_arn   TEXT DEFAULT '',
    event_type      TEXT NOT NULL,
    cli_command     TEXT DEFAULT '',
    service         TEXT DEFAULT '',
    operation       TEXT DEFAULT '',
    region          TEXT DEFAULT '',
    detail          TEXT DEFAULT '{}',
    record_hash     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_event_type ON audit_log(event_type);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_service ON audit_log(service, operation);
`

// OpenAuditDB opens or creates the append-only audit database at the
// given path, creating parent directories as needed.
func OpenAuditDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating audit db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening audit db: %w", err)
	}

	if _, err := db.Exec(AuditSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing audit schema: %w", err)
	}

	return db, nil
}
