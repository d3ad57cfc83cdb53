package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxd/pkg/models"
)

func upstream(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func replyBody(text string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{
				"content": map[string]interface{}{
					"parts": []interface{}{map[string]string{"text": text}},
				},
			},
		},
	})
	return string(b)
}

func testRelay(endpoint string) *Relay {
	r := New(endpoint, "test-key")
	r.Interval = time.Millisecond
	return r
}

func oneTurn(content string) []Turn {
	return []Turn{{Role: models.RoleUser, Content: content}}
}

func TestSendMessageSuccess(t *testing.T) {
	srv := upstream(t, 200, replyBody("Hello there"))

	got, err := testRelay(srv.URL).SendMessage(context.Background(), oneTurn("hi"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", got)
}

func TestSendMessageStreamsGrowingPrefixes(t *testing.T) {
	const reply = "Hello world"
	srv := upstream(t, 200, replyBody(reply))

	var partials []string
	got, err := testRelay(srv.URL).SendMessage(context.Background(), oneTurn("hi"), func(p string) {
		partials = append(partials, p)
	})
	require.NoError(t, err)
	assert.Equal(t, reply, got)

	require.NotEmpty(t, partials)
	assert.Equal(t, reply, partials[len(partials)-1], "last partial must be the full reply")
	for i, p := range partials {
		assert.NotEmpty(t, p)
		assert.True(t, strings.HasPrefix(reply, p))
		if i > 0 {
			assert.Greater(t, len(p), len(partials[i-1]), "prefixes must strictly grow")
		}
	}
}

func TestShortReplySingleChunk(t *testing.T) {
	srv := upstream(t, 200, replyBody("ok"))

	var partials []string
	_, err := testRelay(srv.URL).SendMessage(context.Background(), oneTurn("hi"), func(p string) {
		partials = append(partials, p)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, partials)
}

func TestMissingCredential(t *testing.T) {
	r := New("http://unused.invalid", "   ")
	_, err := r.SendMessage(context.Background(), oneTurn("hi"), nil)
	require.Error(t, err)
	assert.Equal(t, KindMissingCredential, KindOf(err))
}

func TestEmptyHistory(t *testing.T) {
	srv := upstream(t, 200, replyBody("x"))
	_, err := testRelay(srv.URL).SendMessage(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Equal(t, KindMalformedRequest, KindOf(err))
}

func TestStatusTaxonomy(t *testing.T) {
	cases := []struct {
		status int
		kind   Kind
	}{
		{400, KindMalformedRequest},
		{401, KindInvalidCredential},
		{403, KindForbidden},
		{429, KindRateLimited},
		{500, KindUnknown},
	}
	for _, tc := range cases {
		srv := upstream(t, tc.status, `{"error":"nope"}`)
		_, err := testRelay(srv.URL).SendMessage(context.Background(), oneTurn("hi"), nil)
		require.Error(t, err, "status %d", tc.status)
		assert.Equal(t, tc.kind, KindOf(err), "status %d", tc.status)
	}
}

func TestDistinctUserMessagesPerKind(t *testing.T) {
	seen := map[string]Kind{}
	for _, status := range []int{400, 401, 403, 429} {
		srv := upstream(t, status, "")
		_, err := testRelay(srv.URL).SendMessage(context.Background(), oneTurn("hi"), nil)
		require.Error(t, err)
		re := err.(*Error)
		prev, dup := seen[re.UserMessage()]
		assert.False(t, dup, "message for %v reused by %v", re.Kind, prev)
		seen[re.UserMessage()] = re.Kind
	}
}

func TestUnexpectedShape(t *testing.T) {
	for _, body := range []string{`{"candidates":[]}`, `{"candidates":[{"content":{"parts":[]}}]}`, `not json`} {
		srv := upstream(t, 200, body)
		_, err := testRelay(srv.URL).SendMessage(context.Background(), oneTurn("hi"), nil)
		require.Error(t, err, "body %q", body)
		assert.Equal(t, KindUnexpectedShape, KindOf(err), "body %q", body)
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := testRelay(srv.URL).SendMessage(context.Background(), oneTurn("hi"), nil)
	require.Error(t, err)
	assert.Equal(t, KindNetworkFailure, KindOf(err))
}

func TestLastTurnOnlyByDefault(t *testing.T) {
	var captured genRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(replyBody("ok")))
	}))
	t.Cleanup(srv.Close)

	history := []Turn{
		{Role: models.RoleUser, Content: "first"},
		{Role: models.RoleAssistant, Content: "reply"},
		{Role: models.RoleUser, Content: "second"},
	}
	_, err := testRelay(srv.URL).SendMessage(context.Background(), history, nil)
	require.NoError(t, err)
	require.Len(t, captured.Contents, 1)
	assert.Equal(t, "second", captured.Contents[0].Parts[0].Text)
}

func TestIncludeHistorySendsWholeTranscript(t *testing.T) {
	var captured genRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(replyBody("ok")))
	}))
	t.Cleanup(srv.Close)

	r := testRelay(srv.URL)
	r.IncludeHistory = true
	history := []Turn{
		{Role: models.RoleUser, Content: "first"},
		{Role: models.RoleAssistant, Content: "reply"},
	}
	_, err := r.SendMessage(context.Background(), history, nil)
	require.NoError(t, err)
	require.Len(t, captured.Contents, 2)
	assert.Equal(t, "user", captured.Contents[0].Role)
	assert.Equal(t, "model", captured.Contents[1].Role)
}

func TestPing(t *testing.T) {
	srv := upstream(t, 200, replyBody("API is working!"))
	assert.NoError(t, testRelay(srv.URL).Ping(context.Background()))

	bad := upstream(t, 401, "")
	err := testRelay(bad.URL).Ping(context.Background())
	assert.Equal(t, KindInvalidCredential, KindOf(err))
}
