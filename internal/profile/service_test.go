// ABOUTME: Tests for the resolution service: pin precedence, caching, negative results, stats.
// ABOUTME: Uses an in-memory pin store fake and a counting resolver fake.

package profile

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converge-cv/profile-gateway/internal/store"
)

// fakePins is an in-memory PinStore.
type fakePins struct {
	pins map[string]*store.PinnedProfile
	err  error
}

func (f *fakePins) GetPinnedProfile(_ context.Context, address string) (*store.PinnedProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	pin, ok := f.pins[address]
	if !ok {
		return nil, store.ErrNotFound
	}
	return pin, nil
}

// fakeResolver returns canned profiles and counts calls.
type fakeResolver struct {
	profiles map[string]*Profile
	err      error
	calls    atomic.Int32
}

func (f *fakeResolver) Resolve(_ context.Context, address string) (*Profile, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[address], nil
}

func newTestService(pins *fakePins, resolver *fakeResolver) *Service {
	if pins == nil {
		pins = &fakePins{pins: map[string]*store.PinnedProfile{}}
	}
	return NewService(pins, resolver, time.Minute, time.Second, nil)
}

func TestService_Resolve_Remote(t *testing.T) {
	resolver := &fakeResolver{profiles: map[string]*Profile{
		"0xabc": {Address: "0xabc", Handle: "alice.eth", Source: SourceRemote},
	}}
	svc := newTestService(nil, resolver)

	p, err := svc.Resolve(context.Background(), "0xabc")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "alice.eth", p.Handle)
	assert.Equal(t, int32(1), resolver.calls.Load())

	// Second lookup is served from cache
	p, err = svc.Resolve(context.Background(), "0xabc")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int32(1), resolver.calls.Load())
}

func TestService_Resolve_PinnedBypassesCache(t *testing.T) {
	pins := &fakePins{pins: map[string]*store.PinnedProfile{
		"0xabc": {Address: "0xabc", DisplayName: "Alice (pinned)"},
	}}
	resolver := &fakeResolver{}
	svc := newTestService(pins, resolver)

	p, err := svc.Resolve(context.Background(), "0xabc")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Alice (pinned)", p.DisplayName)
	assert.Equal(t, SourcePinned, p.Source)
	assert.Equal(t, int32(0), resolver.calls.Load(), "pinned profiles must not hit the resolver")

	_, ok := svc.Peek("0xabc")
	assert.False(t, ok, "pinned profiles must not populate the cache")
}

func TestService_Resolve_PinStoreFailureFallsBack(t *testing.T) {
	pins := &fakePins{err: errors.New("db locked")}
	resolver := &fakeResolver{profiles: map[string]*Profile{
		"0xabc": {Address: "0xabc", Source: SourceRemote},
	}}
	svc := newTestService(pins, resolver)

	p, err := svc.Resolve(context.Background(), "0xabc")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int32(1), resolver.calls.Load())
}

func TestService_Resolve_NegativeResult(t *testing.T) {
	resolver := &fakeResolver{profiles: map[string]*Profile{}}
	svc := newTestService(nil, resolver)

	p, err := svc.Resolve(context.Background(), "0xunknown")
	require.NoError(t, err)
	assert.Nil(t, p)

	// The nil result is cached: no second resolver call
	p, err = svc.Resolve(context.Background(), "0xunknown")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, int32(1), resolver.calls.Load())
}

func TestService_Resolve_ErrorNotCached(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("upstream down")}
	svc := newTestService(nil, resolver)

	_, err := svc.Resolve(context.Background(), "0xabc")
	require.Error(t, err)

	resolver.err = nil
	resolver.profiles = map[string]*Profile{"0xabc": {Address: "0xabc", Source: SourceRemote}}

	p, err := svc.Resolve(context.Background(), "0xabc")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int32(2), resolver.calls.Load())
}

func TestService_Invalidate(t *testing.T) {
	resolver := &fakeResolver{profiles: map[string]*Profile{
		"0xabc": {Address: "0xabc", Source: SourceRemote},
	}}
	svc := newTestService(nil, resolver)

	_, err := svc.Resolve(context.Background(), "0xabc")
	require.NoError(t, err)

	svc.Invalidate()

	_, ok := svc.Peek("0xabc")
	assert.False(t, ok)

	_, err = svc.Resolve(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, int32(2), resolver.calls.Load())
}

func TestService_CacheStats(t *testing.T) {
	resolver := &fakeResolver{profiles: map[string]*Profile{
		"0xabc": {Address: "0xabc", Source: SourceRemote},
	}}
	svc := newTestService(nil, resolver)

	_, _ = svc.Resolve(context.Background(), "0xabc") // miss
	_, _ = svc.Resolve(context.Background(), "0xabc") // hit
	_, _ = svc.Resolve(context.Background(), "0xabc") // hit

	stats := svc.CacheStats()
	assert.Equal(t, int64(3), stats.Lookups)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestService_Peek(t *testing.T) {
	resolver := &fakeResolver{profiles: map[string]*Profile{
		"0xabc": {Address: "0xabc", Handle: "alice.eth", Source: SourceRemote},
	}}
	svc := newTestService(nil, resolver)

	_, ok := svc.Peek("0xabc")
	assert.False(t, ok)

	_, err := svc.Resolve(context.Background(), "0xabc")
	require.NoError(t, err)

	p, ok := svc.Peek("0xabc")
	require.True(t, ok)
	assert.Equal(t, "alice.eth", p.Handle)
	assert.Equal(t, int32(1), resolver.calls.Load(), "peek must not trigger a fetch")
}
