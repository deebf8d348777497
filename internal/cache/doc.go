// Package cache provides a keyed asynchronous cache with TTL expiry and
// in-flight request coalescing.
//
// # Overview
//
// The cache memoizes expensive or rate-limited lookups (such as resolving a
// messaging identifier to a remote profile) keyed by an opaque string. It
// keeps two independent mappings: completed entries (key -> value plus the
// time it was recorded) and pending fetches (key -> the fetch currently in
// flight). Concurrent callers asking for the same missing key share exactly
// one underlying fetch.
//
// # Lookup behavior
//
// Get resolves in three steps, atomically with respect to both mappings:
//
//  1. A fresh entry (younger than its TTL) is returned immediately.
//  2. A fetch already in flight for the key is joined; every waiter receives
//     the identical value or the identical error.
//  3. Otherwise the supplied fetcher runs once. On success the value is
//     recorded; the pending slot is removed on every exit path.
//
// Fetch errors propagate to all coalesced callers and are never cached, so
// the next Get retries. Callers that want failures cached briefly should
// catch inside the fetcher and return a sentinel value classified negative
// by Options.IsNegative.
//
// # Negative TTL
//
// Values classified negative ("not found") expire after Options.NegativeTTL
// instead of Options.TTL, allowing faster retry of empty results:
//
//	c := cache.New(cache.Options[*profile.Profile]{
//	    TTL:         5 * time.Minute,
//	    NegativeTTL: 30 * time.Second,
//	})
//
// # Concurrency
//
// All methods are safe for concurrent use. A single mutex guards both
// mappings; only the fetch itself runs outside the lock. A coalesced waiter
// may abandon waiting via its context, which neither cancels the underlying
// fetch nor affects other waiters.
//
// # Non-goals
//
// There is no eviction beyond TTL expiry, no size bound, no persistence,
// and no retry of failed fetches.
package cache
