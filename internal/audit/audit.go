// Package audit provides CloudGate's append-only audit logging.
// Audit records form a hash chain for tamper detection.
package audit

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType categorizes audit log entries.
type EventType string

const (
	EventCommandValidated EventType = "command_validated"
	EventCommandExecuted  EventType = "command_executed"
	EventCommandDenied    EventType = "command_denied"
	EventConsentRequired  EventType = "consent_required"
	EventConsentGranted   EventType = "consent_granted"
)

// Entry is one command-centric audit record.
type Entry struct {
	CLICommand   string
	Service      string
	Operation    string
	Region       string
	PrincipalARN string
	Detail       any
}

// Logger writes tamper-evident audit records to the audit database. One
// logger instance covers one server run, identified by a fresh UUID.
type Logger struct {
	db       *sql.DB
	mu       sync.Mutex
	lastHash string
	runUUID  string
}

// NewLogger creates an audit logger, recovering the hash chain from the
// last persisted record.
func NewLogger(db *sql.DB) (*Logger, error) {
	al := &Logger{
		db:      db,
		runUUID: uuid.NewString(),
	}

	var lastHash sql.NullString
	err := db.QueryRow(
		"SELECT record_hash FROM audit_log ORDER BY id DESC LIMIT 1",
	).Scan(&lastHash)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("recovering audit chain: %w", err)
	}
	if lastHash.Valid {
		al.lastHash = lastHash.String
	}

	return al, nil
}

// RunUUID identifies this logger's run in every record it writes.
func (al *Logger) RunUUID() string { return al.runUUID }

// Log appends one audit record to the chain.
func (al *Logger) Log(eventType EventType, entry Entry) error {
	al.mu.Lock()
	defer al.mu.Unlock()

	detailJSON, err := json.Marshal(entry.Detail)
	if err != nil {
		detailJSON = []byte(fmt.Sprintf(`{"error":"failed to marshal detail: %s"}`, err))
	}

	now := time.Now().UTC()
	recordHash := al.computeHash(now, eventType, entry.CLICommand, string(detailJSON))

	_, err = al.db.Exec(
		`INSERT INTO audit_log (timestamp, run_uuid, principal_arn, event_type, cli_command, service, operation, region, detail, record_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		now.Format(time.RFC3339Nano),
		al.runUUID,
		entry.PrincipalARN,
		string(eventType),
		entry.CLICommand,
		entry.Service,
		entry.Operation,
		entry.Region,
		string(detailJSON),
		recordHash,
	)
	if err != nil {
		return fmt.Errorf("inserting audit record: %w", err)
	}

	al.lastHash = recordHash
	return nil
}

// computeHash creates the hash chain link:
// SHA-256(previousHash + timestamp + eventType + cliCommand + detail)
func (al *Logger) computeHash(ts time.Time, eventType EventType, cliCommand, detail string) string {
	data := al.lastHash + ts.Format(time.RFC3339Nano) + string(eventType) + cliCommand + detail
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])
}

// Verify checks the integrity of the whole audit chain.
func Verify(db *sql.DB) (bool, int, error) {
	rows, err := db.Query(
		"SELECT timestamp, event_type, cli_command, detail, record_hash FROM audit_log ORDER BY id ASC",
	)
	if err != nil {
		return false, 0, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var previousHash string
	count := 0

	for rows.Next() {
		var ts, eventType, cliCommand, detail, recordHash string
		if err := rows.Scan(&ts, &eventType, &cliCommand, &detail, &recordHash); err != nil {
			return false, count, fmt.Errorf("scanning audit row: %w", err)
		}

		data := previousHash + ts + eventType + cliCommand + detail
		h := sha256.Sum256([]byte(data))
		expected := hex.EncodeToString(h[:])

		if expected != recordHash {
			return false, count, fmt.Errorf("audit chain broken at record %d", count+1)
		}

		previousHash = recordHash
		count++
	}

	return true, count, nil
}
