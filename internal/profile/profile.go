// ABOUTME: Profile type and upstream environment presets for identifier resolution.
// ABOUTME: Profiles are what the resolution cache memoizes.

package profile

import "fmt"

// Profile sources
const (
	SourceRemote = "remote"
	SourcePinned = "pinned"
)

// Upstream environment names
const (
	EnvLocal      = "local"
	EnvDev        = "dev"
	EnvProduction = "production"
)

// apiURLs maps well-known upstream environments to their base URLs.
var apiURLs = map[string]string{
	EnvLocal:      "http://localhost:5555",
	EnvDev:        "https://dev.xmtp.network",
	EnvProduction: "https://production.xmtp.network",
}

// BaseURLFor returns the base URL for a well-known upstream environment.
func BaseURLFor(env string) (string, error) {
	url, ok := apiURLs[env]
	if !ok {
		return "", fmt.Errorf("unknown upstream environment %q (want local, dev, or production)", env)
	}
	return url, nil
}

// Profile is the public identity attached to a messaging address.
type Profile struct {
	Address     string `json:"address"`
	Handle      string `json:"handle,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Bio         string `json:"bio,omitempty"`

	// Source is "remote" for upstream lookups and "pinned" for
	// operator-curated overrides.
	Source string `json:"source,omitempty"`
}
