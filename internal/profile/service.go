// ABOUTME: Resolution service combining pinned overrides, the TTL cache, and the upstream resolver.
// ABOUTME: Tracks hit/miss counters through the cache's observability callbacks.

package profile

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/converge-cv/profile-gateway/internal/cache"
	"github.com/converge-cv/profile-gateway/internal/store"
)

// PinStore is the subset of the store the service needs.
type PinStore interface {
	GetPinnedProfile(ctx context.Context, address string) (*store.PinnedProfile, error)
}

// Stats is a snapshot of resolution counters.
type Stats struct {
	Lookups int64 `json:"lookups"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// Service resolves addresses to profiles. Pinned profiles are served
// directly from the store; everything else goes through the TTL cache with
// the upstream resolver as the fetcher, so concurrent lookups for the same
// address share one upstream request.
type Service struct {
	pins     PinStore
	resolver Resolver
	cache    *cache.Cache[*Profile]
	logger   *slog.Logger

	lookups atomic.Int64
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewService creates a resolution service. negativeTTL of zero falls back to
// ttl, matching the cache's own default.
func NewService(pins PinStore, resolver Resolver, ttl, negativeTTL time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		pins:     pins,
		resolver: resolver,
		logger:   logger.With("component", "profiles"),
	}
	s.cache = cache.New(cache.Options[*Profile]{
		TTL:         ttl,
		NegativeTTL: negativeTTL,
		Clock:       time.Now,
		OnHit: func(key string) {
			s.hits.Add(1)
			s.logger.Debug("cache hit", "address", key)
		},
		OnMiss: func(key string) {
			s.misses.Add(1)
			s.logger.Debug("cache miss", "address", key)
		},
	})
	return s
}

// Resolve returns the profile for address, or nil when no profile exists.
//
// Pinned profiles are authoritative and bypass the cache entirely. Remote
// lookups are memoized; a nil result from the upstream is cached under the
// negative TTL. Upstream errors propagate and are not cached.
func (s *Service) Resolve(ctx context.Context, address string) (*Profile, error) {
	s.lookups.Add(1)

	pin, err := s.pins.GetPinnedProfile(ctx, address)
	switch {
	case err == nil:
		return fromPin(pin), nil
	case !errors.Is(err, store.ErrNotFound):
		// A broken store must not take resolution down with it
		s.logger.Warn("pin lookup failed, falling back to remote", "address", address, "error", err)
	}

	// The fetch must survive this caller abandoning its wait, so it runs on
	// a context detached from cancellation.
	fetchCtx := context.WithoutCancel(ctx)
	return s.cache.Get(ctx, address, func() (*Profile, error) {
		return s.resolver.Resolve(fetchCtx, address)
	})
}

// Peek returns the cached profile for address without triggering a fetch or
// checking TTL validity. Pinned profiles are not consulted.
func (s *Service) Peek(address string) (*Profile, bool) {
	return s.cache.Peek(address)
}

// Invalidate empties the resolution cache. In-flight lookups finish but
// their results are discarded.
func (s *Service) Invalidate() {
	s.cache.Clear()
	s.logger.Info("resolution cache cleared")
}

// CacheStats returns a snapshot of the resolution counters.
func (s *Service) CacheStats() Stats {
	return Stats{
		Lookups: s.lookups.Load(),
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Entries: s.cache.Len(),
	}
}

// fromPin converts a stored pin to a Profile.
func fromPin(pin *store.PinnedProfile) *Profile {
	return &Profile{
		Address:     pin.Address,
		Handle:      pin.Handle,
		DisplayName: pin.DisplayName,
		AvatarURL:   pin.AvatarURL,
		Bio:         pin.Bio,
		Source:      SourcePinned,
	}
}
