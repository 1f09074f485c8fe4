// Package kvstore is the persistent store used by the watchlist and the
// review log. Values are JSON documents kept under string keys.
package kvstore

import (
	"context"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/shinkrorec/internal/domain"
)

// Store encodes values as JSON on top of a domain.KeyValueStore.
// Reads and writes are serialized so a Set is visible to the next Get.
type Store struct {
	log zerolog.Logger
	kv  domain.KeyValueStore
	mu  sync.Mutex
}

// New creates a new Store backed by kv
func New(log zerolog.Logger, kv domain.KeyValueStore) *Store {
	return &Store{
		log: log.With().Str("module", "kvstore").Logger(),
		kv:  kv,
	}
}

// Get reads key into a V. It never fails: a missing key, a read error or a
// document that does not decode into V all yield def.
func Get[V any](ctx context.Context, s *Store, key string, def V) V {
	s.mu.Lock()
	raw, err := s.kv.Get(ctx, key)
	s.mu.Unlock()

	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to read key, using default")
		}
		return def
	}

	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("malformed stored value, using default")
		return def
	}

	return v
}

// Set encodes value and writes it before returning
func (s *Store) Set(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed to encode value for %s", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Set(ctx, key, b); err != nil {
		return errors.Wrapf(err, "failed to write %s", key)
	}

	s.log.Trace().Str("key", key).Int("bytes", len(b)).Msg("stored value")
	return nil
}

// Close closes the underlying medium
func (s *Store) Close() error {
	return s.kv.Close()
}
