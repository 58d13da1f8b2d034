package session

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// History records accepted input lines so a later session can recall them.
type History interface {
	Load() ([]string, error)
	Append(line string) error
	Close() error
}

// MaxHistoryLines bounds how many entries Load returns.
const MaxHistoryLines = 1000

// OpenHistory picks a store from the path: .db and .sqlite files use SQLite,
// anything else a plain text file. An empty path disables history.
func OpenHistory(path string, sessionID string) (History, error) {
	if path == "" {
		return NopHistory{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLiteHistory(path, sessionID)
	default:
		return OpenFileHistory(path)
	}
}

// NopHistory keeps nothing.
type NopHistory struct{}

func (NopHistory) Load() ([]string, error) { return nil, nil }
func (NopHistory) Append(string) error     { return nil }
func (NopHistory) Close() error            { return nil }

// FileHistory is a newline-delimited text file. The handle stays open for
// the life of the session and every Append is written through.
type FileHistory struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func OpenFileHistory(path string) (*FileHistory, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	return &FileHistory{path: path, f: f}, nil
}

func (h *FileHistory) Load() ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.f == nil {
		return nil, errHistoryClosed
	}

	f, err := os.Open(h.path)
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}
	if len(lines) > MaxHistoryLines {
		lines = lines[len(lines)-MaxHistoryLines:]
	}
	return lines, nil
}

func (h *FileHistory) Append(line string) error {
	line = flattenHistoryLine(line)
	if line == "" {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.f == nil {
		return errHistoryClosed
	}
	if _, err := h.f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (h *FileHistory) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.f == nil {
		return nil
	}
	err := h.f.Close()
	h.f = nil
	return err
}

var errHistoryClosed = errors.New("history is closed")

func flattenHistoryLine(line string) string {
	return strings.TrimSpace(strings.ReplaceAll(line, "\n", " "))
}
