package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"poison-machine/internal/query"
	"poison-machine/internal/store"
	"poison-machine/internal/twitterapi"
)

// cacheTTL is how long a resolved display name is trusted before the next
// request refetches it.
const cacheTTL = 7 * 24 * time.Hour

// SearchAPI is the slice of the twitterapi client the orchestrator needs.
type SearchAPI interface {
	AdvancedSearch(ctx context.Context, queryStr string, limit int) ([]twitterapi.Tweet, error)
	ResolveUser(ctx context.Context, handle string) (*twitterapi.UserInfo, error)
}

// Result is one completed search: the exact query sent upstream, the items
// returned, and whatever display names could be resolved. Names is keyed by
// lowercased handle; handles missing from it render as the raw handle.
type Result struct {
	Query string
	Items []twitterapi.Tweet
	Names map[string]string
}

type Orchestrator struct {
	api     SearchAPI
	cache   *store.UserCacheStore
	history *store.HistoryStore
	log     *slog.Logger
}

func NewOrchestrator(api SearchAPI, cache *store.UserCacheStore, history *store.HistoryStore, log *slog.Logger) *Orchestrator {
	return &Orchestrator{api: api, cache: cache, history: history, log: log}
}

// Run builds the query, calls the upstream, resolves author display names
// and records a history entry. The entry is written even when the upstream
// call fails: history is an audit trail of attempts, not a success log.
func (o *Orchestrator) Run(ctx context.Context, spec query.FilterSpec) (*Result, error) {
	q := query.Build(spec)
	limit := query.ClampMaxResults(spec.MaxResults)

	items, err := o.api.AdvancedSearch(ctx, q, limit)

	o.recordAttempt(spec, len(items))

	if err != nil {
		o.log.Warn("search_failed", "query", q, "error", err)
		return nil, err
	}

	return &Result{
		Query: q,
		Items: items,
		Names: o.resolveNames(ctx, spec.Authors, items),
	}, nil
}

func (o *Orchestrator) recordAttempt(spec query.FilterSpec, count int) {
	entry := store.HistoryEntry{
		Timestamp:   time.Now().UTC(),
		Filter:      spec,
		ResultCount: count,
	}
	if err := o.history.Append(entry); err != nil {
		o.log.Error("history_append_failed", "error", err)
	}
}

// resolveNames maps every distinct author handle (from the filter and the
// results) to a display name. Cache entries within TTL win; misses go to the
// user-lookup endpoint and successful answers are cached. A failed or empty
// lookup is never cached, so a transient upstream error retries next time.
func (o *Orchestrator) resolveNames(ctx context.Context, authors []string, items []twitterapi.Tweet) map[string]string {
	handles := make([]string, 0, len(authors)+len(items))
	handles = append(handles, authors...)
	for _, t := range items {
		handles = append(handles, t.AuthorHandle)
	}

	names := make(map[string]string)
	seen := make(map[string]bool)

	for _, h := range handles {
		handle := query.NormalizeHandle(h)
		key := strings.ToLower(handle)
		if handle == "" || seen[key] {
			continue
		}
		seen[key] = true

		if entry, ok := o.cache.Get(handle); ok && entry.DisplayName != "" && time.Since(entry.FetchedAt) < cacheTTL {
			names[key] = entry.DisplayName
			continue
		}

		info, err := o.api.ResolveUser(ctx, handle)
		if err != nil {
			o.log.Warn("name_resolve_failed", "handle", handle, "error", err)
			continue // raw-handle fallback for this response only
		}
		if info == nil || info.DisplayName == "" {
			continue
		}

		names[key] = info.DisplayName
		if err := o.cache.Put(store.CacheEntry{
			Handle:      handle,
			DisplayName: info.DisplayName,
			AvatarURL:   info.AvatarURL,
			FetchedAt:   time.Now().UTC(),
		}); err != nil {
			o.log.Warn("cache_put_failed", "handle", handle, "error", err)
		}
	}

	return names
}
