// ABOUTME: Keyed async cache with TTL expiry, negative-result TTL, and request coalescing.
// ABOUTME: Memoizes fetcher callbacks so concurrent callers share one in-flight fetch per key.

package cache

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"
)

// ErrFetchAborted is returned to coalesced waiters when the fetch for their
// key terminated without settling (the fetcher panicked). The panic itself
// propagates to the caller that dispatched the fetch.
var ErrFetchAborted = errors.New("cache: fetch aborted before settling")

// Options configure a Cache. They are fixed at construction; there is no
// runtime reconfiguration.
type Options[V any] struct {
	// TTL is how long a successfully cached value remains valid.
	TTL time.Duration

	// NegativeTTL is how long a cached negative value remains valid,
	// allowing faster retry of "not found" results. Zero means TTL.
	NegativeTTL time.Duration

	// IsNegative classifies a fetched value as negative for TTL selection.
	// Nil means "the value is nil" (pointer, interface, map, slice, func or
	// channel). Callers that need to distinguish present-but-zero values
	// must supply their own predicate.
	IsNegative func(V) bool

	// Clock supplies timestamps. Nil means time.Now. Injectable for
	// deterministic tests.
	Clock func() time.Time

	// OnHit and OnMiss are observability callbacks invoked with the key on
	// each lookup outcome. They run outside the cache lock and must not
	// panic. Joining a fetch already in flight counts as a hit.
	OnHit  func(key string)
	OnMiss func(key string)
}

// entry is a completed fetch result. Entries are replaced, never mutated.
type entry[V any] struct {
	value      V
	recordedAt time.Time
}

// pending is a fetch in flight for one key, shared by all coalesced waiters.
// val and err are written exactly once before done is closed.
type pending[V any] struct {
	done chan struct{}
	val  V
	err  error
}

func (p *pending[V]) wait(ctx context.Context) (V, error) {
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Cache is a keyed asynchronous cache with TTL expiry and in-flight request
// coalescing. Construct with New; the zero value is not usable.
type Cache[V any] struct {
	ttl        time.Duration
	negTTL     time.Duration
	isNegative func(V) bool
	clock      func() time.Time
	onHit      func(string)
	onMiss     func(string)

	mu      sync.Mutex
	entries map[string]entry[V]
	pending map[string]*pending[V]

	// gen is bumped by Clear so a fetch that settles afterwards cannot
	// resurrect an entry for a cleared key.
	gen uint64
}

// New constructs a cache from the provided options, applying defaults for
// unset optional fields.
func New[V any](opts Options[V]) *Cache[V] {
	negTTL := opts.NegativeTTL
	if negTTL <= 0 {
		negTTL = opts.TTL
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	isNegative := opts.IsNegative
	if isNegative == nil {
		isNegative = isNilValue[V]
	}
	return &Cache[V]{
		ttl:        opts.TTL,
		negTTL:     negTTL,
		isNegative: isNegative,
		clock:      clock,
		onHit:      opts.OnHit,
		onMiss:     opts.OnMiss,
		entries:    make(map[string]entry[V]),
		pending:    make(map[string]*pending[V]),
	}
}

// Get returns the value for key, fetching it with fetch on a miss.
//
// A cached value younger than its TTL is returned without invoking fetch.
// If a fetch for key is already in flight, Get waits for its result instead
// of dispatching another; all waiters receive the identical value or error.
// Otherwise fetch runs exactly once in the calling goroutine; a successful
// value is cached with a timestamp taken after the fetch resolved, and a
// fetch error is propagated without being cached.
//
// ctx only bounds waiting on a fetch dispatched by another caller. The
// caller that dispatched the fetch runs it to completion, and an abandoned
// wait does not cancel the fetch for the remaining waiters.
func (c *Cache[V]) Get(ctx context.Context, key string, fetch func() (V, error)) (V, error) {
	c.mu.Lock()
	now := c.clock()

	if ent, ok := c.entries[key]; ok && now.Sub(ent.recordedAt) < c.ttlFor(ent.value) {
		c.mu.Unlock()
		if c.onHit != nil {
			c.onHit(key)
		}
		return ent.value, nil
	}

	if p, ok := c.pending[key]; ok {
		c.mu.Unlock()
		if c.onHit != nil {
			c.onHit(key)
		}
		return p.wait(ctx)
	}

	// Register the pending slot before releasing the lock so callers
	// arriving during the fetch coalesce instead of dispatching again.
	p := &pending[V]{done: make(chan struct{})}
	c.pending[key] = p
	gen := c.gen
	c.mu.Unlock()

	if c.onMiss != nil {
		c.onMiss(key)
	}
	return c.fetch(key, p, gen, fetch)
}

// fetch runs the fetcher for key and settles p. The pending slot is removed
// on every exit path, including a panicking fetcher.
func (c *Cache[V]) fetch(key string, p *pending[V], gen uint64, fetch func() (V, error)) (V, error) {
	settled := false
	defer func() {
		if !settled {
			p.err = ErrFetchAborted
		}
		c.mu.Lock()
		// Clear may have dropped the slot, or a later fetch may own it.
		if cur, ok := c.pending[key]; ok && cur == p {
			delete(c.pending, key)
		}
		c.mu.Unlock()
		close(p.done)
	}()

	val, err := fetch()

	if err == nil {
		c.mu.Lock()
		if gen == c.gen {
			c.entries[key] = entry[V]{value: val, recordedAt: c.clock()}
		}
		c.mu.Unlock()
	}

	p.val, p.err = val, err
	settled = true
	return val, err
}

// Peek returns the cached value for key without checking TTL validity and
// without side effects: no callbacks fire and no fetch is triggered.
func (c *Cache[V]) Peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ent, ok := c.entries[key]
	return ent.value, ok
}

// Len returns the number of completed entries currently cached, including
// expired ones that have not been superseded.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear empties both mappings. In-flight fetches are not canceled; their
// waiters still receive the result, but the eventual completion is discarded
// rather than written back as an entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
	c.pending = make(map[string]*pending[V])
	c.gen++
}

func (c *Cache[V]) ttlFor(v V) time.Duration {
	if c.isNegative(v) {
		return c.negTTL
	}
	return c.ttl
}

// isNilValue is the default negative predicate: nil pointers, interfaces,
// maps, slices, funcs and channels are negative; everything else is not.
func isNilValue[V any](v V) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
