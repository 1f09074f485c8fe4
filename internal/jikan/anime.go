package jikan

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/varoOP/shinkrorec/internal/domain"
)

const (
	// PageSize is the number of results requested per page
	PageSize = 24
	// MinDiscoveryScore filters genre discovery to well rated anime
	MinDiscoveryScore = 7
)

type listResponse struct {
	Data []domain.Anime `json:"data"`
}

type detailResponse struct {
	Data *domain.Anime `json:"data"`
}

type recommendationsResponse struct {
	Data []json.RawMessage `json:"data"`
}

type recommendation struct {
	Entry *domain.Anime `json:"entry"`
}

// AnimeURL is the public MyAnimeList page of an anime
func AnimeURL(id int) string {
	return fmt.Sprintf("https://myanimelist.net/anime/%d", id)
}

func baseQuery(page int) url.Values {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("sfw", "true")
	q.Set("order_by", "score")
	q.Set("sort", "desc")
	q.Set("limit", strconv.Itoa(PageSize))
	q.Set("page", strconv.Itoa(page))
	return q
}

// Search finds anime by free text, best scored first
func (c *Client) Search(ctx context.Context, query string, page int) ([]domain.Anime, error) {
	q := baseQuery(page)
	q.Set("q", query)

	a, err := c.list(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search anime")
	}

	return a, nil
}

// ByGenres lists well rated anime having the comma separated genre ids
func (c *Client) ByGenres(ctx context.Context, genres string, page int) ([]domain.Anime, error) {
	q := baseQuery(page)
	q.Set("genres", genres)
	q.Set("min_score", strconv.Itoa(MinDiscoveryScore))

	a, err := c.list(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "failed to discover anime by genres")
	}

	return a, nil
}

func (c *Client) list(ctx context.Context, q url.Values) ([]domain.Anime, error) {
	body, err := c.get(ctx, "/anime", q)
	if err != nil {
		return nil, err
	}

	resp := &listResponse{}
	if err := json.Unmarshal(body, resp); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}

	if resp.Data == nil {
		return []domain.Anime{}, nil
	}

	return resp.Data, nil
}

// Details returns the full record of one anime
func (c *Client) Details(ctx context.Context, id int) (*domain.Anime, error) {
	body, err := c.get(ctx, fmt.Sprintf("/anime/%d/full", id), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch anime %d", id)
	}

	resp := &detailResponse{}
	if err := json.Unmarshal(body, resp); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}

	if resp.Data == nil {
		return nil, errors.Errorf("anime %d: empty detail response", id)
	}

	return resp.Data, nil
}

// Recommendations returns the anime users recommend alongside id.
// Entries that are missing or do not decode are dropped.
func (c *Client) Recommendations(ctx context.Context, id int) ([]domain.Anime, error) {
	body, err := c.get(ctx, fmt.Sprintf("/anime/%d/recommendations", id), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch recommendations for %d", id)
	}

	resp := &recommendationsResponse{}
	if err := json.Unmarshal(body, resp); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}

	related := make([]domain.Anime, 0, len(resp.Data))
	for _, raw := range resp.Data {
		var r recommendation
		if err := json.Unmarshal(raw, &r); err != nil {
			c.log.Debug().Err(err).Int("mal_id", id).Msg("skipping malformed recommendation")
			continue
		}
		if r.Entry == nil || r.Entry.MalID <= 0 {
			continue
		}
		related = append(related, *r.Entry)
	}

	return related, nil
}
