// Package store persists harvested citation records keyed by seed identifier.
//
// The store file is a single JSON object mapping each seed ID to the array
// of records found for it. It is both the checkpoint of an interrupted run
// and the final deliverable, so it is always rewritten whole: a snapshot is
// written to a temp file in the same directory, synced and renamed over the
// previous version.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/AUMikkel/survey-scripts/internal/reference"
)

// ErrExists is returned by Put when the seed already has a result set.
var ErrExists = errors.New("seed already in store")

// ErrEmptyKey is returned by Put for an empty seed ID.
var ErrEmptyKey = errors.New("empty seed id")

// Store maps seed IDs to their result sets. Seeds are append-only: once a
// key is present it is never replaced or merged. An empty result set means
// the seed was harvested and nothing was found.
//
// Entries loaded from disk are kept as raw JSON and written back unchanged,
// so seeds untouched by a run keep their exact content. Key order is the
// order seeds were first written.
type Store struct {
	mu      sync.Mutex
	order   []string
	entries map[string]json.RawMessage
}

// New returns an empty store.
func New() *Store {
	return &Store{entries: make(map[string]json.RawMessage)}
}

// Load reads a store file. A missing or empty file yields an empty store.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading store: %w", err)
	}

	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parsing store %s: %w", path, err)
	}
	return s, nil
}

// Decode parses store content, preserving key order and entry bytes.
func Decode(data []byte) (*Store, error) {
	s := New()
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected a JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("seed %q: %w", key, err)
		}
		if bytes.Equal(raw, []byte("null")) {
			raw = json.RawMessage("[]")
		}
		var records []reference.Record
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("seed %q: %w", key, err)
		}

		if _, seen := s.entries[key]; !seen {
			s.order = append(s.order, key)
		}
		s.entries[key] = raw
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after store object")
	}
	return s, nil
}

// Has reports whether seed already has a result set.
func (s *Store) Has(seed string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[seed]
	return ok
}

// Put inserts the result set for a new seed. A nil slice is stored as an
// empty result set.
func (s *Store) Put(seed string, records []reference.Record) error {
	if seed == "" {
		return ErrEmptyKey
	}
	if records == nil {
		records = []reference.Record{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding records for %s: %w", seed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[seed]; ok {
		return fmt.Errorf("%w: %s", ErrExists, seed)
	}
	s.order = append(s.order, seed)
	s.entries[seed] = raw
	return nil
}

// Merge appends every seed of other that s does not have yet, keeping
// other's entry bytes and order. Seeds present in both keep s's entry and
// are returned as conflicts.
func (s *Store) Merge(other *Store) (added int, conflicts []string) {
	other.mu.Lock()
	order := append([]string(nil), other.order...)
	entries := make(map[string]json.RawMessage, len(order))
	for _, k := range order {
		entries[k] = other.entries[k]
	}
	other.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range order {
		if _, ok := s.entries[key]; ok {
			conflicts = append(conflicts, key)
			continue
		}
		s.order = append(s.order, key)
		s.entries[key] = entries[key]
		added++
	}
	return added, conflicts
}

// Records returns the result set of seed.
func (s *Store) Records(seed string) ([]reference.Record, bool) {
	s.mu.Lock()
	raw, ok := s.entries[seed]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	records := []reference.Record{}
	// Entries are validated on Decode and produced by Put.
	_ = json.Unmarshal(raw, &records)
	return records, true
}

// Keys returns the seed IDs in store order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, len(s.order))
	copy(keys, s.order)
	return keys
}

// Len returns the number of seeds in the store.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// RecordCount returns the total number of records across all seeds.
func (s *Store) RecordCount() int {
	total := 0
	for _, key := range s.Keys() {
		records, _ := s.Records(key)
		total += len(records)
	}
	return total
}

// Encode renders the store as indented JSON in store order.
func (s *Store) Encode() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		return []byte("{}\n"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, key := range s.order {
		k, err := json.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("encoding key %q: %w", key, err)
		}
		buf.WriteString("  ")
		buf.Write(k)
		buf.WriteString(": ")
		if err := json.Indent(&buf, s.entries[key], "  ", "  "); err != nil {
			return nil, fmt.Errorf("encoding seed %s: %w", key, err)
		}
		if i < len(s.order)-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// Save writes a complete snapshot of the store to path atomically.
// Uses temp file + rename so a crash never leaves a partial file.
func (s *Store) Save(path string) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}

	// Create temp file in same directory for atomic rename
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing store: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("setting store permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
