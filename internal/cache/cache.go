// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores text results as one file per key in a flat
// directory. Keys are sanitized into filenames, so distinct keys that
// sanitize to the same name share an entry.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/keepnotion/internal/keep"
)

// Store is a flat file-per-key text cache. It is safe for concurrent use
// as long as concurrent writers of one key write the same value.
type Store struct {
	dir string
	ext string
}

// New creates dir if needed and returns a Store whose entries end in ext
// (with or without the leading dot).
func New(dir, ext string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "txt"
	}
	return &Store{dir: dir, ext: ext}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file backing key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, keep.SanitizeFilename(key)+"."+s.ext)
}

// Get returns the cached text for key. Missing, unreadable, and empty
// entries are all misses.
func (s *Store) Get(key string) (string, bool) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		return "", false
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", false
	}
	return text, true
}

// Put stores text under key. The entry is written to a temporary file and
// renamed into place so readers never see a partial value.
func (s *Store) Put(key, text string) error {
	final := s.Path(key)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("caching %s: %w", key, err)
	}
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("caching %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("caching %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("caching %s: %w", key, err)
	}
	return nil
}
