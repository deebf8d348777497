// ABOUTME: HTTP API handlers for profile resolution, cache introspection, and admin operations.
// ABOUTME: Admin routes are guarded by bearer-token authentication.

package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/converge-cv/profile-gateway/internal/auth"
	"github.com/converge-cv/profile-gateway/internal/profile"
	"github.com/converge-cv/profile-gateway/internal/store"
)

// errorResponse is the JSON body for all error replies.
type errorResponse struct {
	Error string `json:"error"`
}

// statsResponse is the JSON response for GET /api/stats.
type statsResponse struct {
	profile.Stats
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// pinRequest is the JSON request body for PUT /api/admin/pins/{address}.
type pinRequest struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Bio         string `json:"bio"`
}

// pinResponse is the JSON representation of a stored pin.
type pinResponse struct {
	Address     string `json:"address"`
	Handle      string `json:"handle,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Bio         string `json:"bio,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// routes builds the HTTP handler tree.
func (g *Gateway) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", g.handleHealthz)
	mux.HandleFunc("GET /api/profiles/{address}", g.handleResolveProfile)
	mux.HandleFunc("GET /api/profiles/{address}/peek", g.handlePeekProfile)
	mux.HandleFunc("GET /api/stats", g.handleStats)

	admin := http.NewServeMux()
	admin.HandleFunc("POST /api/admin/cache/clear", g.handleCacheClear)
	admin.HandleFunc("GET /api/admin/pins", g.handleListPins)
	admin.HandleFunc("PUT /api/admin/pins/{address}", g.handleUpsertPin)
	admin.HandleFunc("DELETE /api/admin/pins/{address}", g.handleDeletePin)
	mux.Handle("/api/admin/", auth.Middleware(g.authn)(g.logPrincipal(admin)))

	return g.requestLogger(mux)
}

// requestLogger assigns each request an id and logs its outcome.
func (g *Gateway) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		g.logger.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// logPrincipal runs after the auth middleware, so the authenticated principal
// is on the request context by the time it logs.
func (g *Gateway) logPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if principal, ok := auth.PrincipalFromContext(r.Context()); ok {
			g.logger.Info("admin request", "method", r.Method, "path", r.URL.Path, "principal", principal)
		}
		next.ServeHTTP(w, r)
	})
}

// statusWriter records the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (g *Gateway) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleResolveProfile answers GET /api/profiles/{address}. A negative
// (cached or fresh) result is a 404; upstream failures are a 502 and are
// never cached, so the next request retries.
func (g *Gateway) handleResolveProfile(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	p, err := g.profiles.Resolve(r.Context(), address)
	if err != nil {
		g.logger.Warn("resolution failed", "address", address, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "upstream lookup failed"})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "profile not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handlePeekProfile answers GET /api/profiles/{address}/peek: a best-effort
// synchronous read of the cache that never triggers an upstream fetch and
// ignores TTL expiry.
func (g *Gateway) handlePeekProfile(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	p, ok := g.profiles.Peek(address)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not cached"})
		return
	}
	if p == nil {
		// A cached negative entry
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "profile not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		Stats:         g.profiles.CacheStats(),
		UptimeSeconds: int64(time.Since(g.startedAt).Seconds()),
	})
}

func (g *Gateway) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	g.profiles.Invalidate()
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (g *Gateway) handleListPins(w http.ResponseWriter, r *http.Request) {
	pins, err := g.store.ListPinnedProfiles(r.Context())
	if err != nil {
		g.logger.Error("listing pins failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "listing pins failed"})
		return
	}

	out := make([]pinResponse, 0, len(pins))
	for _, pin := range pins {
		out = append(out, toPinResponse(pin))
	}
	writeJSON(w, http.StatusOK, map[string][]pinResponse{"pins": out})
}

func (g *Gateway) handleUpsertPin(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	pin := &store.PinnedProfile{
		Address:     address,
		Handle:      req.Handle,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		Bio:         req.Bio,
	}
	if err := g.store.UpsertPinnedProfile(r.Context(), pin); err != nil {
		g.logger.Error("upserting pin failed", "address", address, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "saving pin failed"})
		return
	}

	saved, err := g.store.GetPinnedProfile(r.Context(), address)
	if err != nil {
		g.logger.Error("reading back pin failed", "address", address, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "saving pin failed"})
		return
	}
	writeJSON(w, http.StatusOK, toPinResponse(saved))
}

func (g *Gateway) handleDeletePin(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	err := g.store.DeletePinnedProfile(r.Context(), address)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "pin not found"})
		return
	}
	if err != nil {
		g.logger.Error("deleting pin failed", "address", address, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "deleting pin failed"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toPinResponse(pin *store.PinnedProfile) pinResponse {
	return pinResponse{
		Address:     pin.Address,
		Handle:      pin.Handle,
		DisplayName: pin.DisplayName,
		AvatarURL:   pin.AvatarURL,
		Bio:         pin.Bio,
		CreatedAt:   pin.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   pin.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("encoding response failed", "error", err)
	}
}
