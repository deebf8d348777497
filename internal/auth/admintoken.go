// ABOUTME: Admin bearer tokens backed by bcrypt hashes in the store.
// ABOUTME: Generates id.secret tokens and verifies them in constant time.

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/converge-cv/profile-gateway/internal/store"
)

// dummyHash is compared against when the token id is unknown, so lookups for
// missing and existing ids take the same time.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// tokenSecretBytes is the entropy of a generated admin token secret.
const tokenSecretBytes = 32

// TokenStore is the subset of the store the authenticator needs.
type TokenStore interface {
	GetAdminToken(ctx context.Context, id string) (*store.AdminToken, error)
	TouchAdminToken(ctx context.Context, id string, when time.Time) error
}

// GeneratedToken is the result of minting a new admin token. Token is the
// only copy of the secret; Record holds the hash for persistence.
type GeneratedToken struct {
	Token  string
	Record *store.AdminToken
}

// GenerateAdminToken mints a new admin bearer token of the form "id.secret".
// The returned record stores the bcrypt hash of the secret; the plaintext
// token is shown once and cannot be recovered.
func GenerateAdminToken(name string) (*GeneratedToken, error) {
	raw := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generating token secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing token secret: %w", err)
	}

	id := uuid.NewString()
	return &GeneratedToken{
		Token: id + "." + secret,
		Record: &store.AdminToken{
			ID:        id,
			Name:      name,
			TokenHash: string(hash),
			CreatedAt: time.Now().UTC(),
		},
	}, nil
}

// Authenticator validates admin API credentials. It accepts stored admin
// tokens ("id.secret") and JWTs signed with the gateway secret.
type Authenticator struct {
	tokens TokenStore
	jwt    *JWTVerifier
}

// NewAuthenticator creates an authenticator. jwt may be nil when no
// jwt_secret is configured, in which case only stored tokens are accepted.
func NewAuthenticator(tokens TokenStore, jwt *JWTVerifier) *Authenticator {
	return &Authenticator{tokens: tokens, jwt: jwt}
}

// Authenticate validates a bearer credential and returns the principal it
// belongs to: the admin token name, or the JWT subject.
func (a *Authenticator) Authenticate(ctx context.Context, credential string) (string, error) {
	parts := strings.Split(credential, ".")
	switch len(parts) {
	case 2:
		return a.authenticateStoredToken(ctx, parts[0], parts[1])
	case 3:
		if a.jwt == nil {
			return "", ErrInvalidToken
		}
		return a.jwt.Verify(credential)
	default:
		return "", ErrInvalidToken
	}
}

func (a *Authenticator) authenticateStoredToken(ctx context.Context, id, secret string) (string, error) {
	tok, err := a.tokens.GetAdminToken(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Constant timing for unknown ids
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(secret))
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("looking up admin token: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(tok.TokenHash), []byte(secret)); err != nil {
		return "", ErrInvalidToken
	}

	// Best effort; a failed touch must not reject the request
	_ = a.tokens.TouchAdminToken(ctx, id, time.Now().UTC())

	return tok.Name, nil
}
