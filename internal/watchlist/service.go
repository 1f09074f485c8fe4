package watchlist

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/shinkrorec/internal/domain"
	"github.com/varoOP/shinkrorec/internal/kvstore"
)

// ChangeFunc is called after every mutation with the new entries and version
type ChangeFunc func(entries []domain.WatchlistEntry, version uint64)

// Service owns the user's watchlist. The list is loaded from the store on
// first access and written back on every toggle.
type Service struct {
	log   zerolog.Logger
	store *kvstore.Store

	loadOnce sync.Once
	mu       sync.RWMutex
	entries  []domain.WatchlistEntry
	ids      map[int]struct{}
	version  uint64

	listenersMu sync.Mutex
	listeners   []ChangeFunc
}

func NewService(log zerolog.Logger, store *kvstore.Store) *Service {
	return &Service{
		log:   log.With().Str("module", "watchlist").Logger(),
		store: store,
	}
}

func (s *Service) load(ctx context.Context) {
	s.loadOnce.Do(func() {
		entries := kvstore.Get(ctx, s.store, domain.WatchlistKey, []domain.WatchlistEntry{})

		s.mu.Lock()
		s.setEntries(dedupe(entries))
		s.mu.Unlock()

		s.log.Debug().Int("count", len(entries)).Msg("loaded watchlist")
	})
}

// setEntries replaces the list and rebuilds the id index. Caller holds mu.
func (s *Service) setEntries(entries []domain.WatchlistEntry) {
	s.entries = entries
	s.ids = make(map[int]struct{}, len(entries))
	for _, e := range entries {
		s.ids[e.MalID] = struct{}{}
	}
	s.version++
}

// Toggle removes the anime when it is saved, otherwise prepends a snapshot of it.
// The in-memory list changes even when the write fails; the error is returned.
func (s *Service) Toggle(ctx context.Context, anime domain.Anime) (bool, error) {
	s.load(ctx)

	s.mu.Lock()
	_, exists := s.ids[anime.MalID]

	next := make([]domain.WatchlistEntry, 0, len(s.entries)+1)
	if exists {
		for _, e := range s.entries {
			if e.MalID != anime.MalID {
				next = append(next, e)
			}
		}
	} else {
		next = append(next, Snapshot(anime))
		next = append(next, s.entries...)
	}

	s.setEntries(next)
	version := s.version
	snapshot := cloneEntries(next)
	err := s.store.Set(ctx, domain.WatchlistKey, next)
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Int("mal_id", anime.MalID).Msg("failed to persist watchlist")
		err = errors.Wrap(err, "failed to persist watchlist")
	}

	s.log.Debug().
		Int("mal_id", anime.MalID).
		Bool("added", !exists).
		Uint64("version", version).
		Msg("toggled watchlist entry")

	s.notify(snapshot, version)

	return !exists, err
}

// Merge prepends the entries that are not saved yet, keeping their order,
// and reports how many were added. Listeners run once for the whole batch.
func (s *Service) Merge(ctx context.Context, entries []domain.WatchlistEntry) (int, error) {
	s.load(ctx)

	s.mu.Lock()
	fresh := make([]domain.WatchlistEntry, 0, len(entries))
	seen := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		if e.MalID <= 0 {
			continue
		}
		if _, ok := s.ids[e.MalID]; ok {
			continue
		}
		if _, ok := seen[e.MalID]; ok {
			continue
		}
		seen[e.MalID] = struct{}{}
		fresh = append(fresh, Snapshot(e.AsAnime()))
	}

	if len(fresh) == 0 {
		s.mu.Unlock()
		return 0, nil
	}

	next := make([]domain.WatchlistEntry, 0, len(fresh)+len(s.entries))
	next = append(next, fresh...)
	next = append(next, s.entries...)

	s.setEntries(next)
	version := s.version
	snapshot := cloneEntries(next)
	err := s.store.Set(ctx, domain.WatchlistKey, next)
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Int("count", len(fresh)).Msg("failed to persist watchlist")
		err = errors.Wrap(err, "failed to persist watchlist")
	}

	s.log.Debug().Int("added", len(fresh)).Uint64("version", version).Msg("merged watchlist entries")

	s.notify(snapshot, version)

	return len(fresh), err
}

// Contains reports whether id is saved
func (s *Service) Contains(ctx context.Context, id int) bool {
	s.load(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.ids[id]
	return ok
}

// All returns a copy of the saved entries, newest first
func (s *Service) All(ctx context.Context) []domain.WatchlistEntry {
	s.load(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneEntries(s.entries)
}

// Snapshot returns the entries together with the version they belong to
func (s *Service) Snapshot(ctx context.Context) ([]domain.WatchlistEntry, uint64) {
	s.load(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneEntries(s.entries), s.version
}

// Version increases on every mutation
func (s *Service) Version(ctx context.Context) uint64 {
	s.load(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version
}

// OnChange registers fn to run synchronously after every mutation
func (s *Service) OnChange(fn ChangeFunc) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	s.listeners = append(s.listeners, fn)
}

func (s *Service) notify(entries []domain.WatchlistEntry, version uint64) {
	s.listenersMu.Lock()
	listeners := append([]ChangeFunc(nil), s.listeners...)
	s.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(entries, version)
	}
}

// Snapshot reduces an anime to the fields kept in the watchlist
func Snapshot(anime domain.Anime) domain.WatchlistEntry {
	genres := make([]domain.GenreTag, len(anime.Genres))
	copy(genres, anime.Genres)

	return domain.WatchlistEntry{
		MalID:    anime.MalID,
		Title:    anime.DisplayTitle(),
		Images:   anime.Images,
		Score:    anime.Score,
		Type:     anime.Type,
		Episodes: anime.Episodes,
		Genres:   genres,
	}
}

// dedupe keeps the first entry per id. Stored data written by older builds
// or edited by hand may break the one-entry-per-id rule.
func dedupe(entries []domain.WatchlistEntry) []domain.WatchlistEntry {
	seen := make(map[int]struct{}, len(entries))
	out := make([]domain.WatchlistEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.MalID]; ok {
			continue
		}
		seen[e.MalID] = struct{}{}
		out = append(out, e)
	}
	return out
}

func cloneEntries(entries []domain.WatchlistEntry) []domain.WatchlistEntry {
	out := make([]domain.WatchlistEntry, len(entries))
	copy(out, entries)
	return out
}
