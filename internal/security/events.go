// Package security provides the append-only security event log. Wallet
// lifecycle, policy violations, and signing outcomes all land here.
//
// The log is a write-only sink from the core's perspective: emitting an
// event never fails a user flow. It is backed by SQLite so operators can
// query it, and mirrored to slog for live tailing.
package security

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Common event types emitted by the core.
const (
	EventBotStarted           = "BOT_STARTED"
	EventWalletCreated        = "WALLET_CREATED"
	EventWalletCreationFailed = "WALLET_CREATION_FAILED"
	EventWalletConnected      = "WALLET_CONNECTED"
	EventWalletConnectFailed  = "WALLET_CONNECTION_FAILED"
	EventWalletDisconnected   = "WALLET_DISCONNECTED"
	EventBalanceChecked       = "BALANCE_CHECKED"
	EventRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	EventSessionExpired       = "SESSION_EXPIRED"
	EventMaxAttemptsExceeded  = "MAX_ATTEMPTS_EXCEEDED"
	EventTransactionPending   = "TRANSACTION_PENDING"
	EventTransactionSigned    = "TRANSACTION_SIGNED"
	EventTransactionFailed    = "TRANSACTION_FAILED"
	EventSignFailed           = "TRANSACTION_SIGN_FAILED"
	EventAssetCreated         = "ASSET_CREATED"
	EventAssetCreationFailed  = "ASSET_CREATION_FAILED"
)

// Entry is one recorded security event.
type Entry struct {
	ID        string
	At        time.Time
	UserID    string
	EventType string
	Details   string
}

// Log is the SQLite-backed security event sink. All public methods are
// safe for concurrent use (SQLite serializes writes).
type Log struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates a security event log at the given database path. The
// schema is created automatically on first use.
func Open(dbPath string, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	l := &Log{db: db, logger: logger.With("component", "security")}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return l, nil
}

// Close closes the database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

func (l *Log) migrate() error {
	_, err := l.db.Exec(`
	CREATE TABLE IF NOT EXISTS security_events (
		id         TEXT PRIMARY KEY,
		at         TEXT NOT NULL,
		user_id    TEXT NOT NULL,
		event_type TEXT NOT NULL,
		details    TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_security_events_user
		ON security_events(user_id, at DESC);
	`)
	return err
}

// Event records a security event. Failures are logged and swallowed; the
// flow that triggered the event must not depend on the sink.
func (l *Log) Event(userID, eventType, details string) {
	l.logger.Info("security event",
		"user_id", userID,
		"event_type", eventType,
		"details", details,
	)

	id, err := uuid.NewV7()
	if err != nil {
		l.logger.Error("failed to generate event id", "error", err)
		return
	}

	_, err = l.db.Exec(
		`INSERT INTO security_events (id, at, user_id, event_type, details)
		 VALUES (?, ?, ?, ?, ?)`,
		id.String(), time.Now().UTC().Format(time.RFC3339Nano), userID, eventType, details,
	)
	if err != nil {
		l.logger.Error("failed to persist security event",
			"user_id", userID,
			"event_type", eventType,
			"error", err,
		)
	}
}

// Recent returns the most recent events for a user, newest first.
func (l *Log) Recent(userID string, limit int) ([]Entry, error) {
	rows, err := l.db.Query(
		`SELECT id, at, user_id, event_type, details
		 FROM security_events WHERE user_id = ?
		 ORDER BY at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &at, &e.UserID, &e.EventType, &e.Details); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
