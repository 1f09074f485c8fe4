package domain

import "strings"

// UntitledPlaceholder is shown when an anime has no usable title
const UntitledPlaceholder = "Untitled"

// GenreTag is a catalog genre. Identity is MalID, Name is display only.
type GenreTag struct {
	MalID int    `json:"mal_id" yaml:"mal_id"`
	Name  string `json:"name" yaml:"name"`
}

// ImageSet holds the urls for one image format
type ImageSet struct {
	ImageURL      string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	SmallImageURL string `json:"small_image_url,omitempty" yaml:"small_image_url,omitempty"`
	LargeImageURL string `json:"large_image_url,omitempty" yaml:"large_image_url,omitempty"`
}

// Images mirrors the jikan images object
type Images struct {
	JPG  ImageSet `json:"jpg" yaml:"jpg"`
	WebP ImageSet `json:"webp" yaml:"webp"`
}

// Thumbnail returns the best small image url
func (i Images) Thumbnail() string {
	if i.JPG.ImageURL != "" {
		return i.JPG.ImageURL
	}
	return i.WebP.ImageURL
}

// Large returns the best large image url, falling back to the thumbnail
func (i Images) Large() string {
	if i.JPG.LargeImageURL != "" {
		return i.JPG.LargeImageURL
	}
	if i.WebP.LargeImageURL != "" {
		return i.WebP.LargeImageURL
	}
	return i.Thumbnail()
}

// Anime stores information about an anime as returned by the catalog.
// Synopsis, Year, Status and URL are only populated by the full detail endpoint.
type Anime struct {
	MalID         int        `json:"mal_id"`
	URL           string     `json:"url,omitempty"`
	Title         string     `json:"title"`
	TitleEnglish  string     `json:"title_english,omitempty"`
	TitleJapanese string     `json:"title_japanese,omitempty"`
	Images        Images     `json:"images"`
	Score         *float64   `json:"score"`
	Type          *string    `json:"type"`
	Episodes      *int       `json:"episodes"`
	Genres        []GenreTag `json:"genres"`
	Synopsis      string     `json:"synopsis,omitempty"`
	Year          *int       `json:"year,omitempty"`
	Status        string     `json:"status,omitempty"`
}

// DisplayTitle resolves the title using primary, English, native, then the placeholder
func (a Anime) DisplayTitle() string {
	for _, t := range []string{a.Title, a.TitleEnglish, a.TitleJapanese} {
		if strings.TrimSpace(t) != "" {
			return t
		}
	}
	return UntitledPlaceholder
}

// WatchlistEntry is the reduced snapshot of an Anime kept in the watchlist.
// It is captured when the anime is saved and never re-synced.
type WatchlistEntry struct {
	MalID    int        `json:"mal_id" yaml:"mal_id"`
	Title    string     `json:"title" yaml:"title"`
	Images   Images     `json:"images" yaml:"images"`
	Score    *float64   `json:"score" yaml:"score"`
	Type     *string    `json:"type" yaml:"type"`
	Episodes *int       `json:"episodes" yaml:"episodes"`
	Genres   []GenreTag `json:"genres" yaml:"genres"`
}

// GenreIDs returns the genre ids of the entry in stored order
func (e WatchlistEntry) GenreIDs() []int {
	ids := make([]int, 0, len(e.Genres))
	for _, g := range e.Genres {
		ids = append(ids, g.MalID)
	}
	return ids
}

// AsAnime widens the snapshot back into an Anime so it can be toggled or rendered
func (e WatchlistEntry) AsAnime() Anime {
	return Anime{
		MalID:    e.MalID,
		Title:    e.Title,
		Images:   e.Images,
		Score:    e.Score,
		Type:     e.Type,
		Episodes: e.Episodes,
		Genres:   e.Genres,
	}
}

// Selection is the result of the detail flow: the full record and its related anime
type Selection struct {
	Anime   *Anime  `json:"anime"`
	Related []Anime `json:"related"`
}
