// Package ranker derives the user's top genres from the watchlist.
package ranker

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/varoOP/shinkrorec/internal/domain"
)

// DefaultTopK is the number of genres used to drive recommendations
const DefaultTopK = 3

// Rank counts genre ids across entries and returns the k most frequent.
// Ties keep the order in which the genre was first seen while scanning the
// entries in stored order. Rank has no side effects.
func Rank(entries []domain.WatchlistEntry, k int) []int {
	if k <= 0 || len(entries) == 0 {
		return []int{}
	}

	counts := make(map[int]int)
	var order []int
	for _, e := range entries {
		for _, g := range e.Genres {
			if _, seen := counts[g.MalID]; !seen {
				order = append(order, g.MalID)
			}
			counts[g.MalID]++
		}
	}

	// order is in first-occurrence order, a stable sort keeps it for ties
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > k {
		order = order[:k]
	}

	return append([]int{}, order...)
}

// Key renders ids as the canonical signal key, e.g. "1,4"
func Key(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// Memo caches the last ranking for a watchlist version.
// It recomputes only when the version it is asked about changes.
type Memo struct {
	k int

	mu      sync.Mutex
	valid   bool
	version uint64
	ids     []int
	key     string
}

func NewMemo(k int) *Memo {
	if k <= 0 {
		k = DefaultTopK
	}
	return &Memo{k: k}
}

// Rank returns the top genre ids and their key for the entries at version
func (m *Memo) Rank(entries []domain.WatchlistEntry, version uint64) ([]int, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.valid || m.version != version {
		m.ids = Rank(entries, m.k)
		m.key = Key(m.ids)
		m.version = version
		m.valid = true
	}

	return append([]int{}, m.ids...), m.key
}
