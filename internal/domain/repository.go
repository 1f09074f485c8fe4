package domain

import (
	"context"

	"github.com/pkg/errors"
)

// ErrKeyNotFound is returned by a KeyValueStore when the key has never been written
var ErrKeyNotFound = errors.New("key not found")

const (
	// WatchlistKey holds the JSON array of WatchlistEntry
	WatchlistKey = "watchlist"
	// ReviewKeyPrefix is followed by the anime id, e.g. "reviews:42"
	ReviewKeyPrefix = "reviews:"
)

// KeyValueStore defines the durable medium behind the persistent store
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// CatalogClient defines the remote anime catalog
type CatalogClient interface {
	Search(ctx context.Context, query string, page int) ([]Anime, error)
	ByGenres(ctx context.Context, genres string, page int) ([]Anime, error)
	Details(ctx context.Context, id int) (*Anime, error)
	Recommendations(ctx context.Context, id int) ([]Anime, error)
}

// ExportFormat selects the encoding of a watchlist file
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatYAML ExportFormat = "yaml"
)

// WatchlistArchive reads and writes watchlist files outside the store
type WatchlistArchive interface {
	Get(ctx context.Context, path string) ([]WatchlistEntry, error)
	Store(ctx context.Context, path string, format ExportFormat, entries []WatchlistEntry) error
}
