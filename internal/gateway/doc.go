// Package gateway orchestrates the profile-gateway server.
//
// # Overview
//
// The Gateway owns the HTTP server, the resolution service, the store, and
// the optional Tailscale node. It is created once from the loaded config and
// driven by Run until the process context ends.
//
// # HTTP API
//
// Public endpoints:
//
//   - GET /api/profiles/{address} - resolve a profile (cache-backed; 404
//     when the address has no profile, 502 when the upstream fails)
//   - GET /api/profiles/{address}/peek - read the cache without fetching,
//     ignoring TTL expiry
//   - GET /api/stats - resolution counters and cache size
//   - GET /healthz - liveness check
//
// Admin endpoints (bearer token or JWT, see internal/auth):
//
//   - POST /api/admin/cache/clear - drop all cached resolutions
//   - GET /api/admin/pins - list pinned profiles
//   - PUT /api/admin/pins/{address} - create or update a pin
//   - DELETE /api/admin/pins/{address} - remove a pin
//
// # Listeners
//
// By default the gateway serves plain HTTP on server.http_addr. With
// tailscale.enabled it joins the tailnet via tsnet instead and serves on
// :80, on :443 with Tailscale-provisioned certs (tailscale.https), or
// publicly via Funnel (tailscale.funnel).
//
// # Lifecycle
//
//	gw := gateway.New(cfg, st, profiles, logger)
//	err := gw.Run(ctx) // blocks; shuts down gracefully when ctx ends
//
// Shutdown stops the HTTP server, closes the Tailscale node, and closes the
// store.
package gateway
