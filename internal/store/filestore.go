package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// fileStore owns exactly one JSON file and serializes every mutation on it.
// A missing file reads as an empty collection so first run needs no setup;
// an unreadable or corrupt file also reads as empty, with a warning, so a
// hand-edited store never takes the whole app down.
type fileStore struct {
	path string
	log  *slog.Logger
}

func newFileStore(dataDir, name string, log *slog.Logger) fileStore {
	return fileStore{path: filepath.Join(dataDir, name), log: log}
}

// read unmarshals the file into dst. dst is left untouched when the file is
// missing or corrupt.
func (f fileStore) read(dst any) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.log.Warn("store_read_failed", "path", f.path, "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, dst); err != nil {
		f.log.Warn("store_corrupt", "path", f.path, "error", err)
	}
}

// write marshals v and atomically replaces the store file: the payload goes
// to a temp file in the same directory first, then os.Rename swaps it in, so
// a crash mid-write leaves either the old or the new content, never a
// truncated mix. A failed write is retried once before being surfaced.
func (f fileStore) write(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", f.path, err)
	}
	data = append(data, '\n')

	if err := f.writeAtomic(data); err != nil {
		f.log.Warn("store_write_retry", "path", f.path, "error", err)
		if err = f.writeAtomic(data); err != nil {
			return fmt.Errorf("write %s: %w", f.path, err)
		}
	}
	return nil
}

func (f fileStore) writeAtomic(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
