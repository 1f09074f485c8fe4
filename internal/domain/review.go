package domain

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Review is one entry of the per-anime review log. Reviews are never edited.
type Review struct {
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}
