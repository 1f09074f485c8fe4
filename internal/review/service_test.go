package review

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varoOP/shinkrorec/internal/domain"
	"github.com/varoOP/shinkrorec/internal/kvstore"
)

type clock struct {
	t time.Time
}

func (c *clock) Now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newService(kv domain.KeyValueStore) (*Service, *clock) {
	c := &clock{t: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)}
	s := NewService(zerolog.Nop(), kvstore.New(zerolog.Nop(), kv)).WithClock(c.Now)
	return s, c
}

func TestService_ListEmpty(t *testing.T) {
	s, _ := newService(kvstore.NewMemory())

	reviews := s.List(context.Background(), 1)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)
}

func TestService_AddNewestFirst(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(kvstore.NewMemory())

	ok, err := s.Add(ctx, 7, 4, "  solid  ")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Add(ctx, 7, 2, "")
	require.NoError(t, err)
	require.True(t, ok)

	reviews := s.List(ctx, 7)
	require.Len(t, reviews, 2)
	assert.Equal(t, 2, reviews[0].Rating)
	assert.Equal(t, "", reviews[0].Comment)
	assert.Equal(t, 4, reviews[1].Rating)
	assert.Equal(t, "solid", reviews[1].Comment)
	assert.True(t, reviews[0].CreatedAt.After(reviews[1].CreatedAt))

	assert.Empty(t, s.List(ctx, 8), "logs are scoped per anime")
}

func TestService_AddRejectsEmpty(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(kvstore.NewMemory())

	ok, err := s.Add(ctx, 1, 0, "   ")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s.List(ctx, 1))
}

func TestService_AddClampsRating(t *testing.T) {
	tests := []struct {
		name    string
		rating  int
		comment string
		want    int
	}{
		{name: "zero with comment", rating: 0, comment: "meh", want: 1},
		{name: "negative", rating: -3, comment: "", want: 1},
		{name: "in range", rating: 3, comment: "", want: 3},
		{name: "too high", rating: 9, comment: "", want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s, _ := newService(kvstore.NewMemory())

			ok, err := s.Add(ctx, 1, tt.rating, tt.comment)
			require.NoError(t, err)
			require.True(t, ok)

			reviews := s.List(ctx, 1)
			require.Len(t, reviews, 1)
			assert.Equal(t, tt.want, reviews[0].Rating)
		})
	}
}

func TestService_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()

	first, _ := newService(kv)
	_, err := first.Add(ctx, 3, 5, "masterpiece")
	require.NoError(t, err)

	second, _ := newService(kv)
	reviews := second.List(ctx, 3)
	require.Len(t, reviews, 1)
	assert.Equal(t, "masterpiece", reviews[0].Comment)
	assert.Equal(t, time.Date(2024, 4, 1, 12, 1, 0, 0, time.UTC), reviews[0].CreatedAt)
}

func TestService_StoredLayout(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	s, _ := newService(kv)

	_, err := s.Add(ctx, 42, 4, "good")
	require.NoError(t, err)

	raw, err := kv.Get(ctx, "reviews:42")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"rating":4,"comment":"good","createdAt":"2024-04-01T12:01:00Z"}]`, string(raw))
}

func TestService_MalformedLogStartsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	require.NoError(t, kv.Set(ctx, Key(9), []byte(`{"not":"a list"}`)))

	s, _ := newService(kv)
	assert.Empty(t, s.List(ctx, 9))

	ok, err := s.Add(ctx, 9, 3, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, s.List(ctx, 9), 1)
}
