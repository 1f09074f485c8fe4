// Package discover drives the three retrieval flows: text search, genre
// based picks derived from the watchlist, and the detail view of a selection.
package discover

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/varoOP/shinkrorec/internal/domain"
	"github.com/varoOP/shinkrorec/internal/flow"
	"github.com/varoOP/shinkrorec/internal/ranker"
	"github.com/varoOP/shinkrorec/internal/watchlist"
)

// RelatedLimit caps the related anime shown for a selection
const RelatedLimit = 12

// Item is a result annotated with its watchlist membership
type Item struct {
	domain.Anime
	Saved bool
}

type Service struct {
	log     zerolog.Logger
	catalog domain.CatalogClient
	memo    *ranker.Memo

	search    *flow.Flow[[]domain.Anime]
	forYou    *flow.Flow[[]domain.Anime]
	selection *flow.Flow[domain.Selection]

	mu          sync.Mutex
	watchlist   *watchlist.Service
	triggered   bool
	lastVersion uint64
	lastSignal  string
	topGenres   []int
}

func NewService(log zerolog.Logger, catalog domain.CatalogClient) *Service {
	l := log.With().Str("module", "discover").Logger()

	return &Service{
		log:       l,
		catalog:   catalog,
		memo:      ranker.NewMemo(ranker.DefaultTopK),
		search:    flow.New(l, "search", []domain.Anime{}),
		forYou:    flow.New(l, "foryou", []domain.Anime{}),
		selection: flow.New(l, "selection", domain.Selection{}, flow.WithClearOnStart()),
	}
}

// Search starts a search for query. A blank query is ignored and reported as false.
func (s *Service) Search(ctx context.Context, query string, page int) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return false
	}
	if page < 1 {
		page = 1
	}

	key := url.Values{"q": {query}, "page": {strconv.Itoa(page)}}.Encode()

	s.search.Start(ctx, key, func(ctx context.Context, _ *flow.Token[[]domain.Anime]) ([]domain.Anime, error) {
		return s.catalog.Search(ctx, query, page)
	})

	return true
}

func (s *Service) SearchState() flow.State[[]domain.Anime] {
	return s.search.State()
}

// Recommend derives the top genres of entries and fetches picks for them.
// An empty signal clears the picks without a request, an unchanged signal
// does nothing. Entries older than the last version seen are ignored, change
// notifications of concurrent toggles may arrive out of order.
func (s *Service) Recommend(ctx context.Context, entries []domain.WatchlistEntry, version uint64) {
	// the last signal and the flow generation advance together
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.triggered && version < s.lastVersion {
		s.log.Debug().Uint64("version", version).Uint64("latest", s.lastVersion).Msg("ignoring stale watchlist version")
		return
	}
	s.lastVersion = version

	ids, key := s.memo.Rank(entries, version)
	s.topGenres = ids
	if s.triggered && key == s.lastSignal {
		return
	}
	s.triggered = true
	s.lastSignal = key

	if key == "" {
		s.forYou.Reset("", []domain.Anime{})
		s.log.Debug().Msg("no genre signal, cleared picks")
		return
	}

	s.log.Debug().Str("genres", key).Uint64("version", version).Msg("refreshing picks")

	s.forYou.Start(ctx, key, func(ctx context.Context, _ *flow.Token[[]domain.Anime]) ([]domain.Anime, error) {
		return s.catalog.ByGenres(ctx, key, 1)
	})
}

func (s *Service) ForYouState() flow.State[[]domain.Anime] {
	return s.forYou.State()
}

// TopGenres returns the genre ids behind the current picks
func (s *Service) TopGenres() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]int{}, s.topGenres...)
}

// Select loads the full record of id, then its related anime. Both steps
// belong to the same generation; choosing another anime drops them.
func (s *Service) Select(ctx context.Context, id int) {
	s.selection.Start(ctx, strconv.Itoa(id), func(ctx context.Context, tok *flow.Token[domain.Selection]) (domain.Selection, error) {
		detail, err := s.catalog.Details(ctx, id)
		if err != nil {
			return domain.Selection{}, err
		}

		sel := domain.Selection{Anime: detail, Related: []domain.Anime{}}
		if !tok.Publish(sel) {
			return sel, nil
		}

		related, err := s.catalog.Recommendations(ctx, id)
		if err != nil {
			return sel, err
		}

		if len(related) > RelatedLimit {
			related = related[:RelatedLimit]
		}
		sel.Related = related

		return sel, nil
	})
}

func (s *Service) SelectionState() flow.State[domain.Selection] {
	return s.selection.State()
}

// Bind makes every watchlist change re-derive the picks and triggers once
// for the current contents.
func (s *Service) Bind(ctx context.Context, wl *watchlist.Service) {
	s.mu.Lock()
	s.watchlist = wl
	s.mu.Unlock()

	wl.OnChange(func(entries []domain.WatchlistEntry, version uint64) {
		s.Recommend(ctx, entries, version)
	})

	entries, version := wl.Snapshot(ctx)
	s.Recommend(ctx, entries, version)
}

// Annotate marks which of items are saved. Without a bound watchlist nothing is.
func (s *Service) Annotate(ctx context.Context, items []domain.Anime) []Item {
	s.mu.Lock()
	wl := s.watchlist
	s.mu.Unlock()

	out := make([]Item, 0, len(items))
	for _, a := range items {
		item := Item{Anime: a}
		if wl != nil {
			item.Saved = wl.Contains(ctx, a.MalID)
		}
		out = append(out, item)
	}
	return out
}

// Wait blocks until every started request has settled
func (s *Service) Wait() {
	s.search.Wait()
	s.forYou.Wait()
	s.selection.Wait()
}
