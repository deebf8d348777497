// Package profile resolves messaging addresses to public profiles.
//
// # Resolution order
//
// The Service answers each lookup from the first of:
//
//  1. A pinned profile in the store (operator-curated, authoritative,
//     never expires, bypasses the cache).
//  2. The in-memory resolution cache (internal/cache).
//  3. The upstream profile API via HTTPResolver, whose result is then
//     cached.
//
// # Negative results
//
// An upstream 404 means "this address has no profile". The resolver converts
// it to a nil Profile rather than an error, so the cache records it under
// the shorter negative TTL and the gateway can answer repeat lookups for
// unknown addresses without hammering the upstream. Transport and 5xx
// failures stay errors and are never cached.
//
// # Upstream environments
//
// BaseURLFor maps the well-known environment names (local, dev, production)
// to their base URLs; an explicit upstream.base_url in the config overrides
// the preset.
package profile
