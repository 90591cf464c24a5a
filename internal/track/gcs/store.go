// Package gcs provides a sent-record store persisted as a GCS object.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/bountyradar/bountyradar/internal/bounty"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	Object string
}

type state struct {
	SentIDs     []string  `json:"sent_ids"`
	LastUpdated time.Time `json:"last_updated"`
}

// Store mirrors the sent-id set into a single JSON object in a bucket.
// GCS object writes replace the object atomically, matching the file
// backend's temp-and-rename durability.
type Store struct {
	mu     sync.Mutex
	client *storage.Client
	bucket string
	object string
	clock  bounty.Clock
	logger *zap.Logger
	sent   map[string]struct{}
}

// New creates a GCS-backed store and loads any existing state object.
// A missing or corrupt object starts an empty set.
func New(ctx context.Context, client *storage.Client, cfg Config, clock bounty.Clock, logger *zap.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	object := cfg.Object
	if object == "" {
		object = "sent_bounties.json"
	}
	s := &Store{
		client: client,
		bucket: cfg.Bucket,
		object: object,
		clock:  clock,
		logger: logger,
		sent:   make(map[string]struct{}),
	}
	s.load(ctx)
	return s, nil
}

func (s *Store) load(ctx context.Context) {
	reader, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotExist) {
			s.logger.Warn("sent store object unreadable, starting empty", zap.Error(err))
		}
		return
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil {
			s.logger.Warn("close state reader", zap.Error(closeErr))
		}
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		s.logger.Warn("sent store object read failed, starting empty", zap.Error(err))
		return
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("sent store object corrupt, starting empty", zap.Error(err))
		return
	}
	for _, id := range st.SentIDs {
		s.sent[id] = struct{}{}
	}
	s.logger.Info("sent store loaded",
		zap.String("object", fmt.Sprintf("gs://%s/%s", s.bucket, s.object)),
		zap.Int("ids", len(s.sent)),
	)
}

// Has reports whether id was already delivered.
func (s *Store) Has(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sent[id]
	return ok, nil
}

// Mark records id as delivered and rewrites the state object; idempotent.
func (s *Store) Mark(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sent[id]; ok {
		return nil
	}
	s.sent[id] = struct{}{}
	if err := s.persistLocked(ctx); err != nil {
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

func (s *Store) persistLocked(ctx context.Context) error {
	ids := make([]string, 0, len(s.sent))
	for id := range s.sent {
		ids = append(ids, id)
	}
	data, err := json.Marshal(state{SentIDs: ids, LastUpdated: s.clock.Now()})
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	writer := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	writer.ContentType = "application/json"
	if _, err := writer.Write(data); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return fmt.Errorf("write state object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("write state object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close state writer: %w", err)
	}
	return nil
}
