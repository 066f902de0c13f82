package store

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestAccountStore_MissingFileIsEmpty(t *testing.T) {
	s := NewAccountStore(t.TempDir(), testLogger())
	assert.Empty(t, s.List())
}

func TestAccountStore_AddDedupesCaseInsensitive(t *testing.T) {
	s := NewAccountStore(t.TempDir(), testLogger())

	require.NoError(t, s.Add("@Foo", ""))
	require.NoError(t, s.Add("foo", "dupe"))

	accounts := s.List()
	require.Len(t, accounts, 1)
	assert.Equal(t, "Foo", accounts[0].Handle) // normalized form retained, @ stripped
}

func TestAccountStore_InsertionOrderPreserved(t *testing.T) {
	s := NewAccountStore(t.TempDir(), testLogger())

	require.NoError(t, s.Add("zebra", ""))
	require.NoError(t, s.Add("alpha", ""))
	require.NoError(t, s.Add("mid", ""))

	accounts := s.List()
	require.Len(t, accounts, 3)
	assert.Equal(t, "zebra", accounts[0].Handle)
	assert.Equal(t, "alpha", accounts[1].Handle)
	assert.Equal(t, "mid", accounts[2].Handle)
}

func TestAccountStore_Remove(t *testing.T) {
	s := NewAccountStore(t.TempDir(), testLogger())

	require.NoError(t, s.Add("foo", ""))
	require.NoError(t, s.Add("bar", ""))
	require.NoError(t, s.Remove("@FOO"))

	accounts := s.List()
	require.Len(t, accounts, 1)
	assert.Equal(t, "bar", accounts[0].Handle)
}

func TestAccountStore_ReplaceBulk(t *testing.T) {
	s := NewAccountStore(t.TempDir(), testLogger())
	require.NoError(t, s.Add("old", ""))

	require.NoError(t, s.Replace([]Account{
		{Handle: "@One", Label: "first"},
		{Handle: "one"},
		{Handle: "two"},
	}))

	accounts := s.List()
	require.Len(t, accounts, 2)
	assert.Equal(t, "One", accounts[0].Handle)
	assert.Equal(t, "first", accounts[0].Label)
	assert.Equal(t, "two", accounts[1].Handle)
}

func TestAccountStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	s1 := NewAccountStore(dir, testLogger())
	require.NoError(t, s1.Add("nytimes", "news"))

	s2 := NewAccountStore(dir, testLogger())
	accounts := s2.List()
	require.Len(t, accounts, 1)
	assert.Equal(t, "nytimes", accounts[0].Handle)
	assert.Equal(t, "news", accounts[0].Label)
}

func TestAccountStore_CorruptFileReadsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "accounts.json"), []byte("{not json"), 0o644))

	s := NewAccountStore(dir, testLogger())
	assert.Empty(t, s.List())

	// a mutation recovers the file
	require.NoError(t, s.Add("fresh", ""))
	assert.Len(t, s.List(), 1)
}

func TestAccountStore_FileIsHumanEditableJSON(t *testing.T) {
	dir := t.TempDir()
	s := NewAccountStore(dir, testLogger())
	require.NoError(t, s.Add("foo", "bar"))

	data, err := os.ReadFile(filepath.Join(dir, "accounts.json"))
	require.NoError(t, err)

	var accounts []Account
	require.NoError(t, json.Unmarshal(data, &accounts))
	assert.Len(t, accounts, 1)
}
