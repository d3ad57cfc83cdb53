package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxd/pkg/config"
)

func withSigningKeys(t *testing.T, keys ...string) {
	t.Helper()
	rc := &config.RuntimeConfig{SigningKeys: map[string]struct{}{}}
	for _, k := range keys {
		rc.SigningKeys[k] = struct{}{}
	}
	config.SetRuntime(rc)
	t.Cleanup(func() { config.SetRuntime(&config.RuntimeConfig{SigningKeys: map[string]struct{}{}}) })
}

func TestSignAndVerify(t *testing.T) {
	withSigningKeys(t, "secret")

	sig := SignIdentity("alice")
	require.NotEmpty(t, sig)
	assert.True(t, VerifyIdentity("alice", sig))
	assert.False(t, VerifyIdentity("bob", sig))
	assert.False(t, VerifyIdentity("alice", "deadbeef"))
}

func TestVerifyWithNoKeys(t *testing.T) {
	withSigningKeys(t)
	assert.Empty(t, SignIdentity("alice"))
	assert.False(t, VerifyIdentity("alice", "anything"))
}

func resolveThrough(t *testing.T, decorate func(*http.Request)) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seen string
	h := ResolveIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	if decorate != nil {
		decorate(req)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr, seen
}

func TestResolveIdentityAnonymous(t *testing.T) {
	withSigningKeys(t, "secret")
	rr, seen := resolveThrough(t, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, seen)
}

func TestResolveIdentityValid(t *testing.T) {
	withSigningKeys(t, "secret")
	sig := SignIdentity("alice")
	rr, seen := resolveThrough(t, func(r *http.Request) {
		r.Header.Set("X-User-ID", "alice")
		r.Header.Set("X-User-Signature", sig)
	})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "alice", seen)
}

func TestResolveIdentityPartialHeaders(t *testing.T) {
	withSigningKeys(t, "secret")
	rr, _ := resolveThrough(t, func(r *http.Request) {
		r.Header.Set("X-User-ID", "alice")
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestResolveIdentityBadSignature(t *testing.T) {
	withSigningKeys(t, "secret")
	rr, _ := resolveThrough(t, func(r *http.Request) {
		r.Header.Set("X-User-ID", "alice")
		r.Header.Set("X-User-Signature", "deadbeef")
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
