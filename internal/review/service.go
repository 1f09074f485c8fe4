package review

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/shinkrorec/internal/domain"
	"github.com/varoOP/shinkrorec/internal/kvstore"
)

// Service keeps an append-only review log per anime
type Service struct {
	log   zerolog.Logger
	store *kvstore.Store
	now   func() time.Time

	// serializes read-modify-write of a log
	mu sync.Mutex
}

func NewService(log zerolog.Logger, store *kvstore.Store) *Service {
	return &Service{
		log:   log.With().Str("module", "review").Logger(),
		store: store,
		now:   time.Now,
	}
}

// WithClock replaces the time source used for new reviews
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Key is the store key of the review log of id
func Key(id int) string {
	return domain.ReviewKeyPrefix + strconv.Itoa(id)
}

// List returns the reviews of id, newest first
func (s *Service) List(ctx context.Context, id int) []domain.Review {
	return kvstore.Get(ctx, s.store, Key(id), []domain.Review{})
}

// Add prepends a review to the log of id. A submission without rating and
// without comment is ignored and reported as false. Ratings are clamped to
// the allowed range.
func (s *Service) Add(ctx context.Context, id int, rating int, comment string) (bool, error) {
	comment = strings.TrimSpace(comment)
	if rating == 0 && comment == "" {
		s.log.Debug().Int("mal_id", id).Msg("ignoring empty review")
		return false, nil
	}

	r := domain.Review{
		Rating:    clamp(rating),
		Comment:   comment,
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reviews := s.List(ctx, id)
	next := make([]domain.Review, 0, len(reviews)+1)
	next = append(next, r)
	next = append(next, reviews...)

	if err := s.store.Set(ctx, Key(id), next); err != nil {
		return false, errors.Wrapf(err, "failed to save review for %d", id)
	}

	s.log.Debug().Int("mal_id", id).Int("rating", r.Rating).Msg("added review")

	return true, nil
}

func clamp(rating int) int {
	if rating < domain.MinRating {
		return domain.MinRating
	}
	if rating > domain.MaxRating {
		return domain.MaxRating
	}
	return rating
}
