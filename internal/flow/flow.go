// Package flow runs asynchronous fetches whose results are committed only
// while they belong to the latest trigger.
package flow

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Generation hands out monotonically increasing tokens
type Generation struct {
	n atomic.Uint64
}

// Next advances the generation and returns the new value
func (g *Generation) Next() uint64 {
	return g.n.Add(1)
}

func (g *Generation) Current() uint64 {
	return g.n.Load()
}

// IsCurrent reports whether gen is the latest handed out
func (g *Generation) IsCurrent(gen uint64) bool {
	return g.n.Load() == gen
}

// State is the tri-state result observed by callers.
// Err is empty when the last settled fetch succeeded.
type State[T any] struct {
	Loading    bool
	Err        string
	Data       T
	Key        string
	Generation uint64
}

// FetchFunc does the work of one generation
type FetchFunc[T any] func(ctx context.Context, tok *Token[T]) (T, error)

// Token is handed to a FetchFunc so multi-step fetches can check whether they
// were superseded and publish intermediate data.
type Token[T any] struct {
	flow *Flow[T]
	gen  uint64
}

// Valid reports whether the generation is still current
func (t *Token[T]) Valid() bool {
	return t.flow.gen.IsCurrent(t.gen)
}

func (t *Token[T]) Generation() uint64 {
	return t.gen
}

// Publish replaces Data while keeping the flow loading. It is a no-op once
// the generation is superseded and reports whether data was written.
func (t *Token[T]) Publish(data T) bool {
	return t.flow.publish(t.gen, data)
}

type Option func(*options)

type options struct {
	clearOnStart bool
}

// WithClearOnStart resets Data to the zero value whenever a new fetch starts
func WithClearOnStart() Option {
	return func(o *options) {
		o.clearOnStart = true
	}
}

// Flow is a generation-guarded async effect. Every Start supersedes the
// previous one. A superseded fetch still runs to completion but its result,
// its error and its end of loading are dropped.
type Flow[T any] struct {
	log  zerolog.Logger
	opts options
	gen  Generation

	mu    sync.Mutex
	state State[T]

	// emitMu keeps subscriber calls in commit order
	emitMu sync.Mutex
	subs   []func(State[T])

	wg        sync.WaitGroup
	discarded atomic.Uint64
}

func New[T any](log zerolog.Logger, name string, initial T, opts ...Option) *Flow[T] {
	f := &Flow[T]{
		log:   log.With().Str("module", "flow").Str("flow", name).Logger(),
		state: State[T]{Data: initial},
	}
	for _, o := range opts {
		o(&f.opts)
	}
	return f
}

// Subscribe registers fn to receive every state change in commit order.
// fn runs on the committing goroutine and must not call back into the flow.
func (f *Flow[T]) Subscribe(fn func(State[T])) {
	f.emitMu.Lock()
	defer f.emitMu.Unlock()

	f.subs = append(f.subs, fn)
}

// State returns the current state
func (f *Flow[T]) State() State[T] {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state
}

// Start begins a new generation bound to key and runs fetch in a goroutine
func (f *Flow[T]) Start(ctx context.Context, key string, fetch FetchFunc[T]) uint64 {
	f.mu.Lock()
	gen := f.gen.Next()
	f.state.Loading = true
	f.state.Err = ""
	f.state.Key = key
	f.state.Generation = gen
	if f.opts.clearOnStart {
		var zero T
		f.state.Data = zero
	}
	f.emitLocked()

	f.log.Trace().Str("key", key).Uint64("generation", gen).Msg("started")

	tok := &Token[T]{flow: f, gen: gen}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()

		data, err := fetch(ctx, tok)
		f.commit(gen, data, err)
	}()

	return gen
}

// Reset commits data for key synchronously, superseding anything in flight
func (f *Flow[T]) Reset(key string, data T) uint64 {
	f.mu.Lock()
	gen := f.gen.Next()
	f.state = State[T]{
		Data:       data,
		Key:        key,
		Generation: gen,
	}
	f.emitLocked()

	return gen
}

// Wait blocks until every started fetch has returned
func (f *Flow[T]) Wait() {
	f.wg.Wait()
}

// Discarded counts results dropped because they were superseded
func (f *Flow[T]) Discarded() uint64 {
	return f.discarded.Load()
}

func (f *Flow[T]) commit(gen uint64, data T, err error) {
	f.mu.Lock()
	if !f.gen.IsCurrent(gen) {
		f.mu.Unlock()
		f.discarded.Add(1)
		f.log.Debug().Uint64("generation", gen).Err(err).Msg("discarding stale result")
		return
	}

	f.state.Loading = false
	if err != nil {
		f.state.Err = err.Error()
		f.log.Warn().Err(err).Str("key", f.state.Key).Msg("fetch failed")
	} else {
		f.state.Data = data
	}
	f.emitLocked()
}

func (f *Flow[T]) publish(gen uint64, data T) bool {
	f.mu.Lock()
	if !f.gen.IsCurrent(gen) {
		f.mu.Unlock()
		return false
	}

	f.state.Data = data
	f.emitLocked()
	return true
}

// emitLocked is called with mu held and releases it before notifying
func (f *Flow[T]) emitLocked() {
	st := f.state
	f.emitMu.Lock()
	f.mu.Unlock()
	defer f.emitMu.Unlock()

	for _, fn := range f.subs {
		fn(st)
	}
}
