// Package session persists the durable per-user wallet sessions and
// enforces the rate and expiry policy over them.
//
// The store is a single JSON file with read-whole/write-whole semantics:
// every policy check re-reads the file, and every save writes a temp file
// and atomically renames it over the canonical path. Consistency is
// last-writer-wins at file granularity, which is sufficient because a
// given user's messages are delivered one at a time by the chat platform.
// A multi-instance deployment would swap this for a key-value or
// relational store behind the same Load/Save contract.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Session links a chat identity to a chain account and its encrypted key
// material. A session exists only after a successful wallet creation or
// connection.
type Session struct {
	// Address is the chain account identifier, immutable once set.
	Address string `json:"address"`
	// EncryptedMnemonic is an opaque vault blob owned by the wallet
	// package; the core never inspects it.
	EncryptedMnemonic string    `json:"encrypted_mnemonic"`
	CreatedAt         time.Time `json:"created_at"`
	LastActivity      time.Time `json:"last_activity"`
	// RecentTransactions holds accepted-transaction timestamps, pruned
	// to the trailing rate window on every read.
	RecentTransactions []time.Time `json:"recent_transactions,omitempty"`
}

// Store is the file-backed session map. All public methods are safe for
// concurrent use; the mutex serializes read-modify-write cycles so a
// rate-limit check cannot interleave with another mutation.
type Store struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// NewStore creates a session store persisting to the given file path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger.With("component", "session")}
}

// Load reads the full session map from disk. A missing file yields an
// empty map. A corrupted file is renamed aside with a timestamp suffix
// and an empty map is returned; garbage state is never surfaced.
func (s *Store) Load() map[string]Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() map[string]Session {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Session{}
	}
	if err != nil {
		s.logger.Error("failed to read sessions file", "path", s.path, "error", err)
		s.backupCorruptLocked()
		return map[string]Session{}
	}

	var sessions map[string]Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		s.logger.Error("sessions file is corrupted", "path", s.path, "error", err)
		s.backupCorruptLocked()
		return map[string]Session{}
	}
	if sessions == nil {
		sessions = map[string]Session{}
	}
	return sessions
}

// backupCorruptLocked renames the unreadable store aside so the original
// bytes survive for operator inspection.
func (s *Store) backupCorruptLocked() {
	backup := fmt.Sprintf("%s.backup.%d", s.path, time.Now().Unix())
	if err := os.Rename(s.path, backup); err != nil {
		s.logger.Error("failed to back up corrupted sessions file", "path", s.path, "error", err)
		return
	}
	s.logger.Info("corrupted sessions file backed up", "backup", backup)
}

// Save writes the full session map to disk via temp-file-and-rename, so
// a crash mid-write never leaves a half-written store observable.
func (s *Store) Save(sessions map[string]Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(sessions)
}

func (s *Store) saveLocked(sessions map[string]Session) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write temp sessions file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace sessions file: %w", err)
	}
	return nil
}

// Get returns the session for a user, if any.
func (s *Store) Get(userID string) (Session, bool) {
	sessions := s.Load()
	sess, ok := sessions[userID]
	return sess, ok
}

// Put stores a session for a user, replacing any existing one.
func (s *Store) Put(userID string, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions := s.loadLocked()
	sessions[userID] = sess
	return s.saveLocked(sessions)
}

// Delete removes a user's session. Deleting a missing session is a no-op.
func (s *Store) Delete(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions := s.loadLocked()
	if _, ok := sessions[userID]; !ok {
		return nil
	}
	delete(sessions, userID)
	return s.saveLocked(sessions)
}

// Update applies fn to the user's session under the store lock and
// persists the result. fn receives ok=false when no session exists; it
// returns the new session and whether to keep it (false deletes).
// This is the atomic read-modify-write path the rate policy relies on.
func (s *Store) Update(userID string, fn func(sess Session, ok bool) (Session, bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions := s.loadLocked()
	sess, ok := sessions[userID]
	next, keep := fn(sess, ok)
	if keep {
		sessions[userID] = next
	} else {
		delete(sessions, userID)
	}
	return s.saveLocked(sessions)
}
