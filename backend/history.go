package backend

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/goccy/go-yaml"
)

const historyFile = "history.yaml"

// Store keeps each provider's conversation in history.yaml
type Store struct {
	mu      sync.Mutex
	path    string
	history map[string][]Message
}

// OpenStore loads history.yaml from configDir. A missing file is an empty history.
func OpenStore(configDir string) (*Store, error) {
	s := &Store{
		path:    filepath.Join(configDir, historyFile),
		history: make(map[string][]Message),
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.history); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", s.path, err)
	}
	if s.history == nil {
		s.history = make(map[string][]Message)
	}
	return s, nil
}

// Messages returns a copy of p's conversation
func (s *Store) Messages(p Provider) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history[p.Key()])
}

// Append adds a message to p's conversation and saves it
func (s *Store) Append(p Provider, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[p.Key()] = append(s.history[p.Key()], Message{Role: role, Content: content})
	return s.save()
}

// Clear drops p's conversation and saves
func (s *Store) Clear(p Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.history, p.Key())
	return s.save()
}

// save replaces history.yaml through a temp file. Callers hold mu.
func (s *Store) save() error {
	data, err := yaml.Marshal(s.history)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), historyFile+".*")
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}
