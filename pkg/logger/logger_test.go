package logger

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestHeadersMasksIdentityProofs(t *testing.T) {
	req := httptest.NewRequest("GET", "/v1/sessions", nil)
	req.Header.Set("X-User-ID", "alice")
	req.Header.Set("X-User-Signature", "deadbeefcafe")
	req.Header.Set("Authorization", "Bearer secret-token")
	req.Header.Set("Content-Type", "application/json")

	headers := RequestHeaders(req)
	assert.Contains(t, headers, "X-User-Id=alice")
	assert.Contains(t, headers, "X-User-Signature=<masked>")
	assert.Contains(t, headers, "Authorization=<masked>")
	assert.Contains(t, headers, "Content-Type=application/json")
	for _, h := range headers {
		assert.NotContains(t, h, "deadbeefcafe")
		assert.NotContains(t, h, "secret-token")
	}
}

func TestLogRequestEmitsMaskedEntry(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Log = zap.New(core)
	t.Cleanup(func() { Log = nil })

	req := httptest.NewRequest("POST", "/v1/auth/login", nil)
	req.Header.Set("X-User-Signature", "deadbeefcafe")
	LogRequest(req)

	entries := logs.FilterMessage("incoming_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/v1/auth/login", fields["path"])
	headers, ok := fields["headers"].([]interface{})
	require.True(t, ok)
	for _, h := range headers {
		assert.NotContains(t, h.(string), "deadbeefcafe")
	}
}

func TestLogRequestNilLoggerIsSafe(t *testing.T) {
	Log = nil
	LogRequest(httptest.NewRequest("GET", "/healthz", nil))
}
