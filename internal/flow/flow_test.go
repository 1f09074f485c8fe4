package flow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gate returns a fetch that blocks until the returned channel receives a result
func gate[T any]() (FetchFunc[T], chan<- result[T]) {
	ch := make(chan result[T], 1)
	return func(ctx context.Context, tok *Token[T]) (T, error) {
		r := <-ch
		return r.data, r.err
	}, ch
}

type result[T any] struct {
	data T
	err  error
}

func TestGeneration(t *testing.T) {
	var g Generation
	assert.Equal(t, uint64(0), g.Current())

	first := g.Next()
	assert.True(t, g.IsCurrent(first))

	second := g.Next()
	assert.Greater(t, second, first)
	assert.False(t, g.IsCurrent(first))
	assert.True(t, g.IsCurrent(second))
}

func TestFlow_Success(t *testing.T) {
	f := New(zerolog.Nop(), "test", []string{})

	fetch, done := gate[[]string]()
	gen := f.Start(context.Background(), "q", fetch)

	st := f.State()
	assert.True(t, st.Loading)
	assert.Equal(t, "", st.Err)
	assert.Equal(t, "q", st.Key)
	assert.Equal(t, gen, st.Generation)

	done <- result[[]string]{data: []string{"a"}}
	f.Wait()

	st = f.State()
	assert.False(t, st.Loading)
	assert.Equal(t, []string{"a"}, st.Data)
	assert.Equal(t, uint64(0), f.Discarded())
}

func TestFlow_ErrorKeepsData(t *testing.T) {
	f := New(zerolog.Nop(), "test", []string{"old"})

	f.Start(context.Background(), "q", func(ctx context.Context, tok *Token[[]string]) ([]string, error) {
		return nil, errors.New("HTTP 500: boom")
	})
	f.Wait()

	st := f.State()
	assert.False(t, st.Loading)
	assert.Equal(t, "HTTP 500: boom", st.Err)
	assert.Equal(t, []string{"old"}, st.Data)
}

func TestFlow_NewStartClearsError(t *testing.T) {
	f := New(zerolog.Nop(), "test", 0)

	f.Start(context.Background(), "a", func(ctx context.Context, tok *Token[int]) (int, error) {
		return 0, errors.New("failed")
	})
	f.Wait()
	require.Equal(t, "failed", f.State().Err)

	fetch, done := gate[int]()
	f.Start(context.Background(), "a", fetch)
	assert.Equal(t, "", f.State().Err)

	done <- result[int]{data: 7}
	f.Wait()
	assert.Equal(t, 7, f.State().Data)
}

// The earlier request resolves last and must not overwrite the newer one.
func TestFlow_OutOfOrderCompletion(t *testing.T) {
	f := New(zerolog.Nop(), "test", "")

	settled := make(chan State[string], 4)
	f.Subscribe(func(st State[string]) {
		if !st.Loading {
			settled <- st
		}
	})

	fetchA, doneA := gate[string]()
	fetchB, doneB := gate[string]()

	f.Start(context.Background(), "1,4", fetchA)
	genB := f.Start(context.Background(), "1", fetchB)

	doneB <- result[string]{data: "for 1"}
	first := <-settled
	assert.Equal(t, "for 1", first.Data)

	doneA <- result[string]{data: "for 1,4"}
	f.Wait()

	st := f.State()
	assert.Equal(t, "for 1", st.Data)
	assert.Equal(t, "1", st.Key)
	assert.Equal(t, genB, st.Generation)
	assert.False(t, st.Loading)
	assert.Equal(t, uint64(1), f.Discarded())
}

// A superseded request settling first must leave loading to the newer one.
func TestFlow_StaleSettleDoesNotClearLoading(t *testing.T) {
	f := New(zerolog.Nop(), "test", "")

	fetchA, doneA := gate[string]()
	fetchB, doneB := gate[string]()

	f.Start(context.Background(), "a", fetchA)
	f.Start(context.Background(), "b", fetchB)

	doneA <- result[string]{err: errors.New("stale failure")}
	require.Eventually(t, func() bool { return f.Discarded() == 1 }, time.Second, time.Millisecond)

	st := f.State()
	assert.True(t, st.Loading)
	assert.Equal(t, "", st.Err)
	assert.Equal(t, "", st.Data)

	doneB <- result[string]{data: "b"}
	f.Wait()

	st = f.State()
	assert.False(t, st.Loading)
	assert.Equal(t, "b", st.Data)
}

func TestFlow_ResetSupersedes(t *testing.T) {
	f := New(zerolog.Nop(), "test", []int{})

	fetch, done := gate[[]int]()
	f.Start(context.Background(), "1", fetch)

	f.Reset("", []int{})
	st := f.State()
	assert.False(t, st.Loading)
	assert.Empty(t, st.Data)

	done <- result[[]int]{data: []int{1, 2, 3}}
	f.Wait()

	assert.Empty(t, f.State().Data)
	assert.Equal(t, uint64(1), f.Discarded())
}

func TestFlow_TokenPublish(t *testing.T) {
	f := New(zerolog.Nop(), "test", "")

	step := make(chan struct{})
	var published bool
	f.Start(context.Background(), "x", func(ctx context.Context, tok *Token[string]) (string, error) {
		published = tok.Publish("partial")
		step <- struct{}{}
		<-step
		return "final", nil
	})

	<-step
	st := f.State()
	assert.Equal(t, "partial", st.Data)
	assert.True(t, st.Loading)

	step <- struct{}{}
	f.Wait()

	assert.True(t, published)
	assert.Equal(t, "final", f.State().Data)
}

func TestFlow_TokenInvalidAfterSupersede(t *testing.T) {
	f := New(zerolog.Nop(), "test", "")

	started := make(chan struct{})
	proceed := make(chan struct{})
	var valid, published bool
	f.Start(context.Background(), "x", func(ctx context.Context, tok *Token[string]) (string, error) {
		close(started)
		<-proceed
		valid = tok.Valid()
		published = tok.Publish("late")
		return "late", nil
	})

	<-started
	f.Reset("y", "current")
	close(proceed)
	f.Wait()

	assert.False(t, valid)
	assert.False(t, published)
	assert.Equal(t, "current", f.State().Data)
}

func TestFlow_ClearOnStart(t *testing.T) {
	f := New(zerolog.Nop(), "test", "initial", WithClearOnStart())

	fetch, done := gate[string]()
	f.Start(context.Background(), "x", fetch)
	assert.Equal(t, "", f.State().Data)

	done <- result[string]{data: "x"}
	f.Wait()
	assert.Equal(t, "x", f.State().Data)
}

func TestFlow_SubscribeSeesCommitOrder(t *testing.T) {
	f := New(zerolog.Nop(), "test", 0)

	var mu sync.Mutex
	var seen []State[int]
	f.Subscribe(func(st State[int]) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	f.Start(context.Background(), "k", func(ctx context.Context, tok *Token[int]) (int, error) {
		return 42, nil
	})
	f.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.True(t, seen[0].Loading)
	assert.False(t, seen[1].Loading)
	assert.Equal(t, 42, seen[1].Data)
}
