package session

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteHistory keeps history rows tagged with the session that wrote them.
type SQLiteHistory struct {
	mu        sync.Mutex
	db        *sql.DB
	sessionID string
}

func OpenSQLiteHistory(path string, sessionID string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	h := &SQLiteHistory{db: db, sessionID: sessionID}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return h, nil
}

func (h *SQLiteHistory) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		line TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_session ON history(session_id);
	`
	_, err := h.db.Exec(schema)
	return err
}

// Load returns the most recent lines across all sessions, oldest first.
func (h *SQLiteHistory) Load() ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rows, err := h.db.Query(`
		SELECT line FROM (
			SELECT id, line FROM history ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC
	`, MaxHistoryLines)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (h *SQLiteHistory) Append(line string) error {
	line = flattenHistoryLine(line)
	if line == "" {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.db.Exec(`
		INSERT INTO history (session_id, line, created_at) VALUES (?, ?, ?)
	`, h.sessionID, line, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert history line: %w", err)
	}
	return nil
}

// SessionLines returns what one session wrote, oldest first.
func (h *SQLiteHistory) SessionLines(sessionID string) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rows, err := h.db.Query(`SELECT line FROM history WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}
