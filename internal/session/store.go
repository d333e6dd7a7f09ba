// Package session persists the signed-in reviewer between CLI invocations:
// bearer token, profile, permission keys and the recent trace ids.
package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"reviewdesk/internal/logging"
	"reviewdesk/internal/types"
)

// traceHistoryLimit bounds the trace_history table.
const traceHistoryLimit = 50

// Session is the persisted sign-in state.
type Session struct {
	Token       string
	User        *types.User
	Permissions []string
	UpdatedAt   time.Time
}

// TraceEntry is one recorded trace id.
type TraceEntry struct {
	TraceID    string
	RecordedAt time.Time
}

// Store is a SQLite-backed session store. It implements api.TokenSource and
// trace.Persister.
type Store struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

// Open opens (creating if needed) the session database at path.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategorySession, "session.Open")
	defer timer.Stop()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.SessionError("Failed to open session database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Get(logging.CategorySession).Debug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.Get(logging.CategorySession).Debug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Session("Session store ready at %s", path)
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		token TEXT NOT NULL DEFAULT '',
		user_json TEXT NOT NULL DEFAULT '',
		permissions_json TEXT NOT NULL DEFAULT '[]',
		updated_at TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS trace_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trace_id TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create session schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Save replaces the stored session.
func (s *Store) Save(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userJSON := ""
	if sess.User != nil {
		b, err := json.Marshal(sess.User)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		userJSON = string(b)
	}
	perms := sess.Permissions
	if perms == nil {
		perms = []string{}
	}
	permJSON, err := json.Marshal(perms)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO session (id, token, user_json, permissions_json, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_json = excluded.user_json,
			permissions_json = excluded.permissions_json,
			updated_at = excluded.updated_at`,
		sess.Token, userJSON, string(permJSON), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		logging.SessionError("Failed to save session: %v", err)
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns the stored session. An empty Session is returned when nobody
// is signed in.
func (s *Store) Load() (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var token, userJSON, permJSON, updated string
	err := s.db.QueryRow(
		"SELECT token, user_json, permissions_json, updated_at FROM session WHERE id = 1",
	).Scan(&token, &userJSON, &permJSON, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	sess := Session{Token: token}
	if userJSON != "" {
		var u types.User
		if err := json.Unmarshal([]byte(userJSON), &u); err != nil {
			return Session{}, fmt.Errorf("decode stored user: %w", err)
		}
		sess.User = &u
	}
	if err := json.Unmarshal([]byte(permJSON), &sess.Permissions); err != nil {
		return Session{}, fmt.Errorf("decode stored permissions: %w", err)
	}
	if updated != "" {
		sess.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	}
	return sess, nil
}

// Token returns the stored bearer token, or "".
func (s *Store) Token() string {
	sess, err := s.Load()
	if err != nil {
		logging.SessionError("Failed to read token: %v", err)
		return ""
	}
	return sess.Token
}

// Clear forgets the token, user and permissions together.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM session"); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	logging.Session("Session cleared")
	return nil
}

// SaveTrace appends a trace id to the history, keeping the newest entries.
func (s *Store) SaveTrace(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(
		"INSERT INTO trace_history (trace_id, recorded_at) VALUES (?, ?)",
		id, at.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("save trace: %w", err)
	}
	_, err := s.db.Exec(
		`DELETE FROM trace_history WHERE id NOT IN (
			SELECT id FROM trace_history ORDER BY id DESC LIMIT ?
		)`, traceHistoryLimit,
	)
	return err
}

// LoadTrace returns the newest trace id, or "" when none was recorded.
func (s *Store) LoadTrace() (string, time.Time, error) {
	entries, err := s.RecentTraces(1)
	if err != nil || len(entries) == 0 {
		return "", time.Time{}, err
	}
	return entries[0].TraceID, entries[0].RecordedAt, nil
}

// RecentTraces lists up to limit trace ids, newest first.
func (s *Store) RecentTraces(limit int) ([]TraceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		"SELECT trace_id, recorded_at FROM trace_history ORDER BY id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query traces: %w", err)
	}
	defer rows.Close()

	var out []TraceEntry
	for rows.Next() {
		var e TraceEntry
		var at string
		if err := rows.Scan(&e.TraceID, &at); err != nil {
			return nil, err
		}
		e.RecordedAt, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, e)
	}
	return out, rows.Err()
}
