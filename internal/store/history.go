package store

import (
	"log/slog"
	"sync"
	"time"

	"poison-machine/internal/query"
)

// HistoryEntry is an immutable audit record of one search attempt. Entries
// are stored oldest-first and never rewritten; the history page reverses
// them for newest-first display.
type HistoryEntry struct {
	Timestamp   time.Time        `json:"timestamp"`
	Filter      query.FilterSpec `json:"filter"`
	ResultCount int              `json:"result_count"`
}

type HistoryStore struct {
	mu sync.Mutex
	fs fileStore
}

func NewHistoryStore(dataDir string, log *slog.Logger) *HistoryStore {
	return &HistoryStore{fs: newFileStore(dataDir, "history.json", log)}
}

// List returns entries in write order, oldest first.
func (s *HistoryStore) List() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []HistoryEntry
	s.fs.read(&entries)
	return entries
}

func (s *HistoryStore) Append(entry HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []HistoryEntry
	s.fs.read(&entries)
	return s.fs.write(append(entries, entry))
}
