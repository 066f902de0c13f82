package store

import (
	"log/slog"
	"strings"
	"sync"

	"poison-machine/internal/query"
)

// Account is one entry on the poison list. Handles are unique after
// normalization; insertion order is preserved for display.
type Account struct {
	Handle string `json:"handle"`
	Label  string `json:"label,omitempty"`
}

type AccountStore struct {
	mu sync.Mutex
	fs fileStore
}

func NewAccountStore(dataDir string, log *slog.Logger) *AccountStore {
	return &AccountStore{fs: newFileStore(dataDir, "accounts.json", log)}
}

func (s *AccountStore) List() []Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Add appends a new account unless its normalized handle is already present.
func (s *AccountStore) Add(handle, label string) error {
	handle = query.NormalizeHandle(handle)
	if handle == "" {
		return nil
	}
	return s.mutate(func(accounts []Account) []Account {
		for _, a := range accounts {
			if strings.EqualFold(a.Handle, handle) {
				return accounts
			}
		}
		return append(accounts, Account{Handle: handle, Label: strings.TrimSpace(label)})
	})
}

func (s *AccountStore) Remove(handle string) error {
	handle = query.NormalizeHandle(handle)
	return s.mutate(func(accounts []Account) []Account {
		out := accounts[:0]
		for _, a := range accounts {
			if !strings.EqualFold(a.Handle, handle) {
				out = append(out, a)
			}
		}
		return out
	})
}

// Replace swaps the whole list in one atomic write (bulk import). Input is
// normalized and deduplicated, first spelling wins.
func (s *AccountStore) Replace(accounts []Account) error {
	return s.mutate(func([]Account) []Account {
		return dedupe(accounts)
	})
}

func (s *AccountStore) load() []Account {
	var accounts []Account
	s.fs.read(&accounts)
	return dedupe(accounts)
}

// mutate runs load-apply-save under the store lock so concurrent edits never
// interleave.
func (s *AccountStore) mutate(fn func([]Account) []Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.write(fn(s.load()))
}

func dedupe(accounts []Account) []Account {
	seen := make(map[string]bool, len(accounts))
	out := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		h := query.NormalizeHandle(a.Handle)
		if h == "" {
			continue
		}
		key := strings.ToLower(h)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Account{Handle: h, Label: strings.TrimSpace(a.Label)})
	}
	return out
}

// Handles returns the normalized handle list in display order.
func (s *AccountStore) Handles() []string {
	accounts := s.List()
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Handle)
	}
	return out
}
