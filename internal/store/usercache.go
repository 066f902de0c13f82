package store

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"poison-machine/internal/query"
)

// CacheEntry is a resolved display name for a handle. Failed resolutions are
// never written here; the fallback to the raw handle happens at read time so
// a transient upstream error is retried on the next request.
type CacheEntry struct {
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

type UserCacheStore struct {
	mu sync.Mutex
	fs fileStore
}

func NewUserCacheStore(dataDir string, log *slog.Logger) *UserCacheStore {
	return &UserCacheStore{fs: newFileStore(dataDir, "user_cache.json", log)}
}

func cacheKey(handle string) string {
	return strings.ToLower(query.NormalizeHandle(handle))
}

func (s *UserCacheStore) Get(handle string) (CacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := map[string]CacheEntry{}
	s.fs.read(&entries)
	e, ok := entries[cacheKey(handle)]
	return e, ok
}

// Put upserts the entry for its handle; a refetch overwrites, never
// duplicates.
func (s *UserCacheStore) Put(entry CacheEntry) error {
	entry.Handle = query.NormalizeHandle(entry.Handle)
	if entry.Handle == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := map[string]CacheEntry{}
	s.fs.read(&entries)
	entries[cacheKey(entry.Handle)] = entry
	return s.fs.write(entries)
}
