package search

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poison-machine/internal/query"
	"poison-machine/internal/store"
	"poison-machine/internal/twitterapi"
)

type stubAPI struct {
	searchItems  []twitterapi.Tweet
	searchErr    error
	searchCalls  int
	lastQuery    string
	lastLimit    int
	users        map[string]*twitterapi.UserInfo
	resolveErr   error
	resolveCalls int
}

func (s *stubAPI) AdvancedSearch(_ context.Context, q string, limit int) ([]twitterapi.Tweet, error) {
	s.searchCalls++
	s.lastQuery = q
	s.lastLimit = limit
	return s.searchItems, s.searchErr
}

func (s *stubAPI) ResolveUser(_ context.Context, handle string) (*twitterapi.UserInfo, error) {
	s.resolveCalls++
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	return s.users[handle], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestOrchestrator(t *testing.T, api *stubAPI) (*Orchestrator, *store.HistoryStore, *store.UserCacheStore) {
	t.Helper()
	dir := t.TempDir()
	history := store.NewHistoryStore(dir, testLogger())
	cache := store.NewUserCacheStore(dir, testLogger())
	return NewOrchestrator(api, cache, history, testLogger()), history, cache
}

func TestRun_RecordsHistoryPerCall(t *testing.T) {
	api := &stubAPI{searchItems: []twitterapi.Tweet{{ID: "1", AuthorHandle: "foo"}}}
	orch, history, _ := newTestOrchestrator(t, api)

	spec := query.FilterSpec{Phrase: "x", MinLikes: query.MinLikesUnset, MaxResults: 20}
	for i := 0; i < 3; i++ {
		_, err := orch.Run(context.Background(), spec)
		require.NoError(t, err)
	}

	entries := history.List()
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, 1, e.ResultCount)
		assert.Equal(t, "x", e.Filter.Phrase)
	}
}

func TestRun_FailedSearchStillRecordsAttempt(t *testing.T) {
	api := &stubAPI{searchErr: &twitterapi.APIError{StatusCode: 429, Body: "rate limited"}}
	orch, history, _ := newTestOrchestrator(t, api)

	_, err := orch.Run(context.Background(), query.FilterSpec{Phrase: "x", MinLikes: query.MinLikesUnset})
	require.Error(t, err)

	var apiErr *twitterapi.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.StatusCode)

	entries := history.List()
	require.Len(t, entries, 1)
	assert.Zero(t, entries[0].ResultCount)
}

func TestRun_ZeroResultsRecorded(t *testing.T) {
	api := &stubAPI{}
	orch, history, _ := newTestOrchestrator(t, api)

	result, err := orch.Run(context.Background(), query.FilterSpec{Phrase: "nothing", MinLikes: query.MinLikesUnset})
	require.NoError(t, err)
	assert.Empty(t, result.Items)

	entries := history.List()
	require.Len(t, entries, 1)
	assert.Zero(t, entries[0].ResultCount)
}

func TestRun_PassesBuiltQueryAndClampedLimit(t *testing.T) {
	api := &stubAPI{}
	orch, _, _ := newTestOrchestrator(t, api)

	spec := query.FilterSpec{Phrase: "hello", Authors: []string{"a"}, MinLikes: query.MinLikesUnset, MaxResults: 55}
	_, err := orch.Run(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, `"hello" (from:a)`, api.lastQuery)
	assert.Equal(t, 60, api.lastLimit)
}

func TestRun_ResolvesNamesAndCachesSuccess(t *testing.T) {
	api := &stubAPI{
		searchItems: []twitterapi.Tweet{{ID: "1", AuthorHandle: "foo"}},
		users: map[string]*twitterapi.UserInfo{
			"foo": {Handle: "foo", DisplayName: "Foo Name", AvatarURL: "http://x/foo.jpg"},
		},
	}
	orch, _, cache := newTestOrchestrator(t, api)

	result, err := orch.Run(context.Background(), query.FilterSpec{Phrase: "x", MinLikes: query.MinLikesUnset})
	require.NoError(t, err)
	assert.Equal(t, "Foo Name", result.Names["foo"])

	entry, ok := cache.Get("foo")
	require.True(t, ok)
	assert.Equal(t, "Foo Name", entry.DisplayName)
	assert.Equal(t, "http://x/foo.jpg", entry.AvatarURL)
}

func TestRun_ResolutionFailureIsNotCached(t *testing.T) {
	api := &stubAPI{
		searchItems: []twitterapi.Tweet{{ID: "1", AuthorHandle: "flaky"}},
		resolveErr:  errors.New("upstream down"),
	}
	orch, _, cache := newTestOrchestrator(t, api)

	result, err := orch.Run(context.Background(), query.FilterSpec{Phrase: "x", MinLikes: query.MinLikesUnset})
	require.NoError(t, err)

	// fallback for this response only: no name, no cache entry
	assert.NotContains(t, result.Names, "flaky")
	_, ok := cache.Get("flaky")
	assert.False(t, ok)

	// next run succeeds and caches
	api.resolveErr = nil
	api.users = map[string]*twitterapi.UserInfo{"flaky": {Handle: "flaky", DisplayName: "Back"}}
	result, err = orch.Run(context.Background(), query.FilterSpec{Phrase: "x", MinLikes: query.MinLikesUnset})
	require.NoError(t, err)
	assert.Equal(t, "Back", result.Names["flaky"])
	_, ok = cache.Get("flaky")
	assert.True(t, ok)
}

func TestRun_EmptyResolutionIsNotCached(t *testing.T) {
	api := &stubAPI{
		searchItems: []twitterapi.Tweet{{ID: "1", AuthorHandle: "ghost"}},
		users:       map[string]*twitterapi.UserInfo{}, // ResolveUser returns nil, nil
	}
	orch, _, cache := newTestOrchestrator(t, api)

	_, err := orch.Run(context.Background(), query.FilterSpec{Phrase: "x", MinLikes: query.MinLikesUnset})
	require.NoError(t, err)

	_, ok := cache.Get("ghost")
	assert.False(t, ok)
}

func TestRun_FreshCacheEntrySkipsLookup(t *testing.T) {
	api := &stubAPI{searchItems: []twitterapi.Tweet{{ID: "1", AuthorHandle: "foo"}}}
	orch, _, cache := newTestOrchestrator(t, api)

	require.NoError(t, cache.Put(store.CacheEntry{
		Handle:      "foo",
		DisplayName: "Cached Name",
		FetchedAt:   time.Now().UTC(),
	}))

	result, err := orch.Run(context.Background(), query.FilterSpec{Phrase: "x", MinLikes: query.MinLikesUnset})
	require.NoError(t, err)

	assert.Equal(t, "Cached Name", result.Names["foo"])
	assert.Zero(t, api.resolveCalls)
}

func TestRun_StaleCacheEntryRefetched(t *testing.T) {
	api := &stubAPI{
		searchItems: []twitterapi.Tweet{{ID: "1", AuthorHandle: "foo"}},
		users:       map[string]*twitterapi.UserInfo{"foo": {Handle: "foo", DisplayName: "Fresh Name"}},
	}
	orch, _, cache := newTestOrchestrator(t, api)

	require.NoError(t, cache.Put(store.CacheEntry{
		Handle:      "foo",
		DisplayName: "Stale Name",
		FetchedAt:   time.Now().UTC().Add(-30 * 24 * time.Hour),
	}))

	result, err := orch.Run(context.Background(), query.FilterSpec{Phrase: "x", MinLikes: query.MinLikesUnset})
	require.NoError(t, err)

	assert.Equal(t, "Fresh Name", result.Names["foo"])
	entry, _ := cache.Get("foo")
	assert.Equal(t, "Fresh Name", entry.DisplayName)
}

func TestRun_DistinctHandlesResolvedOnce(t *testing.T) {
	api := &stubAPI{
		searchItems: []twitterapi.Tweet{
			{ID: "1", AuthorHandle: "foo"},
			{ID: "2", AuthorHandle: "Foo"},
			{ID: "3", AuthorHandle: "bar"},
		},
		users: map[string]*twitterapi.UserInfo{
			"foo": {Handle: "foo", DisplayName: "F"},
			"bar": {Handle: "bar", DisplayName: "B"},
		},
	}
	orch, _, _ := newTestOrchestrator(t, api)

	_, err := orch.Run(context.Background(), query.FilterSpec{Phrase: "x", Authors: []string{"@foo"}, MinLikes: query.MinLikesUnset})
	require.NoError(t, err)

	assert.Equal(t, 2, api.resolveCalls)
}
