// Package cache holds the keyed projections the board engine publishes.
//
// Values are replaced wholesale by Set and by background refetches; they are
// never patched in place. Readers always see the last value written, including
// while a refetch for the same key is in flight.
package cache

import (
	"context"
	"sync"

	"clarity-board/internal/logging"

	"golang.org/x/sync/singleflight"
)

// Fetcher loads the authoritative value for a key.
type Fetcher[V any] func(ctx context.Context, key Key) (V, error)

type entry[V any] struct {
	value   V
	present bool
	stale   bool

	// Outstanding background refetches by sequence number. A response whose
	// sequence is no longer present was superseded and is dropped.
	refetches map[uint64]context.CancelFunc
	idle      chan struct{}

	// gen changes whenever in-flight fetches are superseded. A Load that
	// started under an older gen does not publish its result.
	gen uint64

	subs map[chan struct{}]struct{}
}

// Accessor is a keyed projection cache with background refetch.
// It is safe for concurrent use.
type Accessor[V any] struct {
	fetch  Fetcher[V]
	log    *logging.Logger
	flight singleflight.Group

	mu      sync.Mutex
	entries map[Key]*entry[V]
	seq     uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*options)

type options struct {
	log *logging.Logger
}

func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.log = l }
}

func New[V any](fetch Fetcher[V], opts ...Option) *Accessor[V] {
	o := options{log: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Accessor[V]{
		fetch:   fetch,
		log:     o.log.WithComponent("cache"),
		entries: map[Key]*entry[V]{},
		ctx:     ctx,
		cancel:  cancel,
	}
}

// entryLocked returns the entry for key, creating it. Callers hold a.mu.
func (a *Accessor[V]) entryLocked(key Key) *entry[V] {
	e := a.entries[key]
	if e == nil {
		e = &entry[V]{
			refetches: map[uint64]context.CancelFunc{},
			subs:      map[chan struct{}]struct{}{},
		}
		a.entries[key] = e
	}
	return e
}

func (a *Accessor[V]) Get(key Key) (V, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e := a.entries[key]
	if e == nil || !e.present {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Stale reports whether key was invalidated and has not been refreshed since.
func (a *Accessor[V]) Stale(key Key) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	e := a.entries[key]
	return e != nil && e.stale
}

// Set atomically replaces the value for key and notifies subscribers.
func (a *Accessor[V]) Set(key Key, v V) {
	a.mu.Lock()
	a.setLocked(a.entryLocked(key), v)
	a.mu.Unlock()
}

func (a *Accessor[V]) setLocked(e *entry[V], v V) {
	e.value = v
	e.present = true
	e.stale = false
	a.notifyLocked(e)
}

// supersedeLocked cancels every outstanding fetch for e and reports how many
// background refetches were dropped.
func (a *Accessor[V]) supersedeLocked(e *entry[V]) int {
	a.seq++
	e.gen = a.seq
	n := len(e.refetches)
	for seq, cancel := range e.refetches {
		cancel()
		delete(e.refetches, seq)
	}
	if e.idle != nil {
		close(e.idle)
		e.idle = nil
	}
	return n
}

// Load fetches key and stores the result, deduplicating concurrent loads of
// the same key. It blocks until the fetch completes. When CancelRefetch ran
// while the fetch was in flight and a value is published, the response is
// dropped and Load returns the published value instead.
func (a *Accessor[V]) Load(ctx context.Context, key Key) (V, error) {
	v, err, _ := a.flight.Do(key.String(), func() (any, error) {
		a.mu.Lock()
		gen := a.entryLocked(key).gen
		a.mu.Unlock()

		v, err := a.fetch(ctx, key)
		if err != nil {
			return v, err
		}

		a.mu.Lock()
		defer a.mu.Unlock()
		e := a.entryLocked(key)
		if e.gen != gen && e.present {
			a.log.Debug("load superseded", "key", key.String())
			return e.value, nil
		}
		a.setLocked(e, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Invalidate marks key stale and starts a background refetch. Readers keep
// seeing the current value until the refetch resolves. Each refetch response
// is applied when it arrives, so the last one to settle wins.
func (a *Accessor[V]) Invalidate(key Key) {
	a.mu.Lock()
	if a.ctx.Err() != nil {
		a.mu.Unlock()
		return
	}
	e := a.entryLocked(key)
	e.stale = true
	a.seq++
	seq := a.seq
	ctx, cancel := context.WithCancel(a.ctx)
	if len(e.refetches) == 0 {
		e.idle = make(chan struct{})
	}
	e.refetches[seq] = cancel
	a.wg.Add(1)
	a.mu.Unlock()

	go a.refetch(ctx, key, seq)
}

func (a *Accessor[V]) refetch(ctx context.Context, key Key, seq uint64) {
	defer a.wg.Done()
	v, err := a.fetch(ctx, key)

	a.mu.Lock()
	defer a.mu.Unlock()
	e := a.entries[key]
	if e == nil {
		return
	}
	cancel, live := e.refetches[seq]
	if !live {
		a.log.Debug("refetch superseded", "key", key.String(), "seq", seq)
		return
	}
	cancel()
	delete(e.refetches, seq)
	if len(e.refetches) == 0 {
		close(e.idle)
		e.idle = nil
	}
	if err != nil {
		a.log.Warn("refetch failed", "key", key.String(), "error", err.Error())
		return
	}
	e.value = v
	e.present = true
	e.stale = len(e.refetches) > 0
	a.notifyLocked(e)
}

// CancelRefetch supersedes every outstanding fetch for key, including a Load
// in flight. Their responses, if any still arrive, are discarded. It returns
// the number of background refetches dropped.
func (a *Accessor[V]) CancelRefetch(key Key) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	e := a.entries[key]
	if e == nil {
		return 0
	}
	return a.supersedeLocked(e)
}

// Refetching reports the number of outstanding refetches for key.
func (a *Accessor[V]) Refetching(key Key) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e := a.entries[key]; e != nil {
		return len(e.refetches)
	}
	return 0
}

// WaitIdle blocks until key has no outstanding refetch or ctx is done.
func (a *Accessor[V]) WaitIdle(ctx context.Context, key Key) error {
	for {
		a.mu.Lock()
		var idle chan struct{}
		if e := a.entries[key]; e != nil {
			idle = e.idle
		}
		a.mu.Unlock()
		if idle == nil {
			return nil
		}
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Evict drops the value for key and supersedes its refetches. Subscribers stay
// registered and are notified.
func (a *Accessor[V]) Evict(key Key) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e := a.entries[key]
	if e == nil {
		return
	}
	a.supersedeLocked(e)
	var zero V
	e.value = zero
	e.present = false
	e.stale = false
	a.notifyLocked(e)
	if len(e.subs) == 0 {
		delete(a.entries, key)
	}
}

// Keys lists keys that currently hold a value.
func (a *Accessor[V]) Keys() []Key {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Key, 0, len(a.entries))
	for k, e := range a.entries {
		if e.present {
			out = append(out, k)
		}
	}
	return out
}

// Subscribe returns a channel that receives a signal whenever key's value is
// replaced. Signals coalesce; receivers should re-read with Get.
func (a *Accessor[V]) Subscribe(key Key) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 8)
	a.mu.Lock()
	e := a.entryLocked(key)
	e.subs[ch] = struct{}{}
	a.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			if e := a.entries[key]; e != nil {
				delete(e.subs, ch)
			}
			a.mu.Unlock()
			close(ch)
		})
	}
}

func (a *Accessor[V]) notifyLocked(e *entry[V]) {
	for ch := range e.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close cancels all background refetches and waits for them to return.
func (a *Accessor[V]) Close() {
	a.mu.Lock()
	a.cancel()
	a.mu.Unlock()
	a.wg.Wait()
}
