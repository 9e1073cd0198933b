// Package file persists session entries in a single YAML document on disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"billdash/internal/sentinel"
)

// document is the on-disk layout.
type document struct {
	Entries map[string]string `yaml:"entries"`
}

// Store keeps entries in a YAML file readable only by the owner.
// The file is created on first write; a missing file reads as empty.
type Store struct {
	mu   sync.Mutex
	path string
}

// New returns a store backed by the file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := doc.Entries[key]
	if !ok {
		return "", fmt.Errorf("key %q: %w", key, sentinel.ErrNotFound)
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Entries[key] = value
	return s.save(doc)
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Entries[key]; !ok {
		return nil
	}
	delete(doc.Entries, key)
	return s.save(doc)
}

func (s *Store) load() (*document, error) {
	doc := &document{Entries: make(map[string]string)}
	data, err := os.ReadFile(s.path) //nolint:gosec // path from user config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w: %w", s.path, sentinel.ErrInvalidData, err)
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string]string)
	}
	return doc, nil
}

// save writes to a temp file and renames it so a crash never leaves a
// truncated document behind.
func (s *Store) save(doc *document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // already renamed on success

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
