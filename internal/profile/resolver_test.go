// ABOUTME: Tests for the HTTP resolver against a stub upstream profile API.
// ABOUTME: Covers success, 404-as-negative, upstream failures, and path escaping.

package profile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPResolver_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/profiles/0xabc123", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"handle":"alice.eth","display_name":"Alice","avatar_url":"https://example.com/a.png"}`))
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL, time.Second, nil)

	p, err := r.Resolve(context.Background(), "0xabc123")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "0xabc123", p.Address)
	assert.Equal(t, "alice.eth", p.Handle)
	assert.Equal(t, "Alice", p.DisplayName)
	assert.Equal(t, SourceRemote, p.Source)
}

func TestHTTPResolver_NotFoundIsNegative(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL, time.Second, nil)

	p, err := r.Resolve(context.Background(), "0xunknown")
	require.NoError(t, err, "404 must not be an error, it is the negative sentinel")
	assert.Nil(t, p)
}

func TestHTTPResolver_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL, time.Second, nil)

	_, err := r.Resolve(context.Background(), "0xabc123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPResolver_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL, time.Second, nil)

	_, err := r.Resolve(context.Background(), "0xabc123")
	assert.Error(t, err)
}

func TestHTTPResolver_EscapesAddress(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		http.NotFound(w, r)
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL, time.Second, nil)

	_, err := r.Resolve(context.Background(), "weird/handle")
	require.NoError(t, err)
	assert.Equal(t, "/profiles/weird%2Fhandle", gotPath)
}

func TestHTTPResolver_ContextCanceled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	r := NewHTTPResolver(srv.URL, time.Minute, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Resolve(ctx, "0xabc123")
	assert.Error(t, err)
}

func TestBaseURLFor(t *testing.T) {
	for _, env := range []string{EnvLocal, EnvDev, EnvProduction} {
		url, err := BaseURLFor(env)
		require.NoError(t, err)
		assert.NotEmpty(t, url)
	}

	_, err := BaseURLFor("staging")
	assert.Error(t, err)
}
