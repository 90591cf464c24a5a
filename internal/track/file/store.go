// Package file implements a JSON-file-backed sent-record store.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bountyradar/bountyradar/internal/bounty"
)

// state is the durable layout: the full id set plus a bookkeeping stamp.
type state struct {
	SentIDs     []string  `json:"sent_ids"`
	LastUpdated time.Time `json:"last_updated"`
}

// Store keeps delivered record ids in memory and mirrors every mutation
// to a JSON file. The set only grows; Mark is idempotent.
type Store struct {
	mu     sync.Mutex
	path   string
	clock  bounty.Clock
	logger *zap.Logger
	sent   map[string]struct{}
}

// New loads the store from path. A missing or corrupt file starts an
// empty set; the next successful persist repairs it.
func New(path string, clock bounty.Clock, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	s := &Store{
		path:   path,
		clock:  clock,
		logger: logger,
		sent:   make(map[string]struct{}),
	}
	s.load()
	return s, nil
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("sent store unreadable, starting empty", zap.Error(err))
		}
		return
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("sent store corrupt, starting empty", zap.Error(err))
		return
	}
	for _, id := range st.SentIDs {
		s.sent[id] = struct{}{}
	}
	s.logger.Info("sent store loaded", zap.Int("ids", len(s.sent)))
}

// Has reports whether id was already delivered.
func (s *Store) Has(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sent[id]
	return ok, nil
}

// Mark records id as delivered and persists the full set. Marking an
// already-marked id is a no-op.
func (s *Store) Mark(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sent[id]; ok {
		return nil
	}
	s.sent[id] = struct{}{}
	if err := s.persistLocked(); err != nil {
		// Keep the in-memory mark; a later Mark retries the write.
		return fmt.Errorf("persist sent store: %w", err)
	}
	return nil
}

// Len returns the number of delivered ids.
func (s *Store) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent), nil
}

// persistLocked writes the full set to a temp file and renames it into
// place so a crash mid-write never corrupts the previously-durable set.
func (s *Store) persistLocked() error {
	ids := make([]string, 0, len(s.sent))
	for id := range s.sent {
		ids = append(ids, id)
	}
	data, err := json.Marshal(state{SentIDs: ids, LastUpdated: s.clock.Now()})
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".sent-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
