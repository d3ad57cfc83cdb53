package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"voxd/pkg/config"
	"voxd/pkg/logger"
	"voxd/pkg/utils"

	"go.uber.org/zap"
)

// SecConfig mirrors the security-related configuration used to drive
// identity verification, CORS and rate limiting behavior.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
}

type ctxIdentityKey struct{}

// SignIdentity mints the HMAC proof handed to a client at login. The client
// presents it on later requests as X-User-Signature.
func SignIdentity(identity string) string {
	for k := range config.GetSigningKeys() {
		mac := hmac.New(sha256.New, []byte(k))
		mac.Write([]byte(identity))
		return hex.EncodeToString(mac.Sum(nil))
	}
	return ""
}

// VerifyIdentity verifies the signature against all configured signing keys.
func VerifyIdentity(identity, sig string) bool {
	for k := range config.GetSigningKeys() {
		mac := hmac.New(sha256.New, []byte(k))
		mac.Write([]byte(identity))
		expected := hex.EncodeToString(mac.Sum(nil))
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return true
		}
	}
	return false
}

// ResolveIdentity verifies the signed identity headers and injects the
// verified identity into the request context. Requests without identity
// headers pass through as anonymous; a present-but-invalid signature is
// rejected.
func ResolveIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		sig := strings.TrimSpace(r.Header.Get("X-User-Signature"))

		if userID == "" && sig == "" {
			// anonymous caller: memory-only sessions, nothing persisted
			next.ServeHTTP(w, r)
			return
		}
		if userID == "" || sig == "" {
			logger.Warn("missing_identity_headers", zap.String("path", r.URL.Path), zap.String("remote", r.RemoteAddr))
			utils.JSONError(w, http.StatusUnauthorized, "missing identity headers")
			return
		}
		if len(config.GetSigningKeys()) == 0 {
			logger.Error("no_signing_keys_configured")
			utils.JSONError(w, http.StatusInternalServerError, "server misconfigured: no signing secrets available")
			return
		}
		if !VerifyIdentity(userID, sig) {
			logger.Warn("invalid_identity_signature", zap.String("user", userID))
			utils.JSONError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
		ctx := context.WithValue(r.Context(), ctxIdentityKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext returns the verified identity or empty string for
// anonymous callers.
func IdentityFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxIdentityKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
