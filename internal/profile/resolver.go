// ABOUTME: HTTP resolver fetching profiles from the upstream profile API.
// ABOUTME: Converts upstream 404s into nil profiles so they are cached negatively.

package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Resolver resolves a messaging address to a profile. A nil profile with a
// nil error means the address has no profile upstream.
type Resolver interface {
	Resolve(ctx context.Context, address string) (*Profile, error)
}

// HTTPResolver resolves profiles against an upstream HTTP API.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPResolver creates a resolver for the given upstream base URL.
func NewHTTPResolver(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With("component", "resolver"),
	}
}

// Resolve fetches the profile for address from the upstream API.
//
// A 404 response is not an error: it returns (nil, nil), the sentinel the
// resolution cache classifies as negative so "no such profile" is cached
// under the shorter negative TTL. Any other upstream failure is returned as
// an error and is never cached.
func (r *HTTPResolver) Resolve(ctx context.Context, address string) (*Profile, error) {
	reqURL := r.baseURL + "/profiles/" + url.PathEscape(address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching profile for %s: %w", address, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		r.logger.Debug("no upstream profile", "address", address)
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("upstream returned %d for %s", resp.StatusCode, address)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding profile for %s: %w", address, err)
	}

	p.Address = address
	p.Source = SourceRemote
	return &p, nil
}
