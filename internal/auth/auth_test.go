// ABOUTME: Tests for JWT verification, admin token generation, and the HTTP middleware.
// ABOUTME: Uses an in-memory token store fake.

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converge-cv/profile-gateway/internal/store"
)

// fakeTokenStore is an in-memory TokenStore.
type fakeTokenStore struct {
	tokens  map[string]*store.AdminToken
	touched map[string]time.Time
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{
		tokens:  make(map[string]*store.AdminToken),
		touched: make(map[string]time.Time),
	}
}

func (f *fakeTokenStore) GetAdminToken(_ context.Context, id string) (*store.AdminToken, error) {
	tok, ok := f.tokens[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return tok, nil
}

func (f *fakeTokenStore) TouchAdminToken(_ context.Context, id string, when time.Time) error {
	f.touched[id] = when
	return nil
}

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret-at-least-32-bytes-long"))

	token, err := v.Generate("admin", time.Hour)
	require.NoError(t, err)

	sub, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", sub)
}

func TestJWTVerifier_Expired(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret-at-least-32-bytes-long"))

	token, err := v.Generate("admin", -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTVerifier_WrongSecret(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret-at-least-32-bytes-long"))
	other := NewJWTVerifier([]byte("a-completely-different-secret-here"))

	token, err := other.Generate("admin", time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateAdminToken(t *testing.T) {
	gen, err := GenerateAdminToken("ops")
	require.NoError(t, err)

	parts := strings.Split(gen.Token, ".")
	require.Len(t, parts, 2)
	assert.Equal(t, gen.Record.ID, parts[0])
	assert.Equal(t, "ops", gen.Record.Name)
	assert.NotContains(t, gen.Record.TokenHash, parts[1], "hash must not embed the secret")
}

func TestAuthenticator_StoredToken(t *testing.T) {
	gen, err := GenerateAdminToken("ops")
	require.NoError(t, err)

	tokens := newFakeTokenStore()
	tokens.tokens[gen.Record.ID] = gen.Record

	a := NewAuthenticator(tokens, nil)

	principal, err := a.Authenticate(context.Background(), gen.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops", principal)
	assert.Contains(t, tokens.touched, gen.Record.ID, "successful auth should touch last_used_at")
}

func TestAuthenticator_StoredToken_BadSecret(t *testing.T) {
	gen, err := GenerateAdminToken("ops")
	require.NoError(t, err)

	tokens := newFakeTokenStore()
	tokens.tokens[gen.Record.ID] = gen.Record

	a := NewAuthenticator(tokens, nil)

	_, err = a.Authenticate(context.Background(), gen.Record.ID+".wrong-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticator_UnknownID(t *testing.T) {
	a := NewAuthenticator(newFakeTokenStore(), nil)

	_, err := a.Authenticate(context.Background(), "nope.secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticator_JWT(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret-at-least-32-bytes-long"))
	a := NewAuthenticator(newFakeTokenStore(), v)

	token, err := v.Generate("ci", time.Hour)
	require.NoError(t, err)

	principal, err := a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "ci", principal)
}

func TestAuthenticator_JWTDisabled(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret-at-least-32-bytes-long"))
	token, err := v.Generate("ci", time.Hour)
	require.NoError(t, err)

	a := NewAuthenticator(newFakeTokenStore(), nil)
	_, err = a.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticator_Garbage(t *testing.T) {
	a := NewAuthenticator(newFakeTokenStore(), nil)

	_, err := a.Authenticate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	gen, err := GenerateAdminToken("ops")
	require.NoError(t, err)

	tokens := newFakeTokenStore()
	tokens.tokens[gen.Record.ID] = gen.Record

	a := NewAuthenticator(tokens, nil)

	var gotPrincipal string
	handler := Middleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrincipal, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Basic abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer nope.secret")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+gen.Token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "ops", gotPrincipal)
	})
}
