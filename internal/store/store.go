// ABOUTME: Store interface and record types for profile-gateway persistence.
// ABOUTME: Covers pinned profile overrides and bcrypt-hashed admin tokens.

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// PinnedProfile is an operator-curated profile override. Pinned profiles are
// served before any remote lookup and never expire.
type PinnedProfile struct {
	Address     string
	Handle      string
	DisplayName string
	AvatarURL   string
	Bio         string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AdminToken is a bearer credential for the admin API. Only the bcrypt hash
// of the token secret is persisted; the secret itself is shown once at
// creation time.
type AdminToken struct {
	ID         string
	Name       string
	TokenHash  string
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// Store defines the persistence operations used by the gateway.
type Store interface {
	// UpsertPinnedProfile inserts or replaces the pin for p.Address.
	UpsertPinnedProfile(ctx context.Context, p *PinnedProfile) error

	// GetPinnedProfile returns the pin for address, or ErrNotFound.
	GetPinnedProfile(ctx context.Context, address string) (*PinnedProfile, error)

	// DeletePinnedProfile removes the pin for address, or ErrNotFound.
	DeletePinnedProfile(ctx context.Context, address string) error

	// ListPinnedProfiles returns all pins ordered by address.
	ListPinnedProfiles(ctx context.Context) ([]*PinnedProfile, error)

	// CreateAdminToken persists a new admin token record.
	CreateAdminToken(ctx context.Context, t *AdminToken) error

	// GetAdminToken returns the token record for id, or ErrNotFound.
	GetAdminToken(ctx context.Context, id string) (*AdminToken, error)

	// TouchAdminToken records when the token was last used.
	TouchAdminToken(ctx context.Context, id string, when time.Time) error

	// ListAdminTokens returns all token records ordered by creation time.
	ListAdminTokens(ctx context.Context) ([]*AdminToken, error)

	// DeleteAdminToken revokes the token with the given id, or ErrNotFound.
	DeleteAdminToken(ctx context.Context, id string) error

	// Close releases the underlying database handle.
	Close() error
}
