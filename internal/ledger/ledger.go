package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
)

// MessageRecord marks one successfully archived message.
type MessageRecord struct {
	ID          string
	ProcessedAt time.Time
	StorageKey  string
}

// FailureRecord tracks the latest failure for one message.
type FailureRecord struct {
	ID           string
	ErrorMessage string
	RetryCount   int
	LastAttempt  time.Time
	CreatedAt    time.Time
}

// Ledger is the durable record of which messages have been archived and
// which have failed. It is the sole source of truth for idempotency:
// a message id appears in at most one of the two tables at any time.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS processed_emails (
	message_id   TEXT PRIMARY KEY,
	processed_at TIMESTAMP NOT NULL,
	storage_key  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS failed_emails (
	message_id    TEXT PRIMARY KEY,
	error_message TEXT NOT NULL,
	retry_count   INTEGER NOT NULL,
	last_attempt  TIMESTAMP NOT NULL,
	created_at    TIMESTAMP NOT NULL
);
`

// Open loads (or creates) a ledger backed by a SQLite database at dbPath.
func Open(dbPath string, logger *slog.Logger) (*Ledger, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	// A single connection sidesteps SQLITE_BUSY under the one-runner model.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}

	return &Ledger{db: db, logger: logger}, nil
}

// IsProcessed reports whether a message has already been archived.
func (l *Ledger) IsProcessed(id string) (bool, error) {
	var one int
	err := l.db.QueryRow(`SELECT 1 FROM processed_emails WHERE message_id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query processed %s: %w", id, err)
	}
	return true, nil
}

// MarkProcessed records a successful archive. Any failure row for the same
// id is removed in the same transaction. Inserting an id that is already
// processed is a benign race: it is logged and swallowed.
func (l *Ledger) MarkProcessed(id, storageKey string) error {
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("begin mark processed %s: %w", id, err)
	}

	_, err = tx.Exec(
		`INSERT INTO processed_emails (message_id, processed_at, storage_key) VALUES (?, ?, ?)`,
		id, time.Now().UTC(), storageKey,
	)
	if err != nil {
		tx.Rollback()
		if isDuplicateKey(err) {
			l.logger.Warn("message already marked processed", "msg_id", id)
			return nil
		}
		return fmt.Errorf("insert processed %s: %w", id, err)
	}

	if _, err := tx.Exec(`DELETE FROM failed_emails WHERE message_id = ?`, id); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear failure %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark processed %s: %w", id, err)
	}
	return nil
}

// LogFailure records a failed attempt. The first failure for an id creates
// a row with retry_count 1; later failures increment the count and update
// the error message and last attempt time.
func (l *Ledger) LogFailure(id, errorMessage string) error {
	now := time.Now().UTC()
	_, err := l.db.Exec(`
		INSERT INTO failed_emails (message_id, error_message, retry_count, last_attempt, created_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			error_message = excluded.error_message,
			retry_count   = retry_count + 1,
			last_attempt  = excluded.last_attempt`,
		id, errorMessage, now, now,
	)
	if err != nil {
		return fmt.Errorf("log failure %s: %w", id, err)
	}
	return nil
}

// FailedEmails returns a snapshot of all failure records, for inspection
// and alerting. The pipeline itself does not consume it.
func (l *Ledger) FailedEmails() ([]FailureRecord, error) {
	rows, err := l.db.Query(
		`SELECT message_id, error_message, retry_count, last_attempt, created_at
		 FROM failed_emails ORDER BY last_attempt DESC`)
	if err != nil {
		return nil, fmt.Errorf("query failed emails: %w", err)
	}
	defer rows.Close()

	var records []FailureRecord
	for rows.Next() {
		var r FailureRecord
		if err := rows.Scan(&r.ID, &r.ErrorMessage, &r.RetryCount, &r.LastAttempt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan failure record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read failed emails: %w", err)
	}
	return records, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func isDuplicateKey(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
