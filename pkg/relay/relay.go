// Package relay translates an in-app conversation into a Generative
// Language API call and back. The upstream exchange is a single blocking
// request/response; incremental delivery to the caller is simulated
// client-side by replaying the finished reply as growing prefixes.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"voxd/pkg/logger"
	"voxd/pkg/models"
)

// DefaultEndpoint is the generateContent endpoint of the hosted Gemini
// model. The credential travels as a query-string parameter.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent"

const (
	defaultChunkChars = 3
	defaultInterval   = 30 * time.Millisecond
)

// Turn is one {role, content} entry of the conversation history, oldest
// first.
type Turn struct {
	Role    models.Role `json:"role"`
	Content string      `json:"content"`
}

// PartialFunc receives progressively longer prefixes of the assistant reply.
// The sequence is strictly growing and always ends with the full text.
type PartialFunc func(prefix string)

// Relay issues conversation requests against a fixed external endpoint.
type Relay struct {
	Endpoint string
	APIKey   string
	Client   *http.Client

	// IncludeHistory sends the whole transcript upstream. The default
	// matches the historical behavior of transmitting only the final turn.
	IncludeHistory bool

	// Simulated streaming pacing; zero values fall back to the defaults.
	ChunkChars int
	Interval   time.Duration
}

// New builds a relay with the default HTTP client and pacing.
func New(endpoint, apiKey string) *Relay {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Relay{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Wire shapes of the generateContent exchange.
type genRequest struct {
	Contents []genContent `json:"contents"`
}

type genContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []genPart `json:"parts"`
}

type genPart struct {
	Text string `json:"text"`
}

type genResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// buildRequest shapes the upstream body. Unless IncludeHistory is set only
// the final entry of the history is transmitted.
func (r *Relay) buildRequest(history []Turn) genRequest {
	if r.IncludeHistory {
		out := genRequest{}
		for _, t := range history {
			role := "user"
			if t.Role == models.RoleAssistant {
				role = "model"
			}
			out.Contents = append(out.Contents, genContent{Role: role, Parts: []genPart{{Text: t.Content}}})
		}
		return out
	}
	last := history[len(history)-1]
	return genRequest{Contents: []genContent{{Parts: []genPart{{Text: last.Content}}}}}
}

// SendMessage relays the conversation and returns the assistant reply text.
// When onPartial is non-nil the reply is additionally played back through it
// as growing prefixes at a fixed cadence before SendMessage returns. All
// failures are typed *Error values from the taxonomy in errors.go.
func (r *Relay) SendMessage(ctx context.Context, history []Turn, onPartial PartialFunc) (string, error) {
	if strings.TrimSpace(r.APIKey) == "" {
		return "", newError(KindMissingCredential, "AI API key not configured. Set relay.api_key or VOXD_RELAY_API_KEY.")
	}
	if len(history) == 0 {
		return "", newError(KindMalformedRequest, "Invalid request. Please check your message format.")
	}

	body, err := json.Marshal(r.buildRequest(history))
	if err != nil {
		return "", &Error{Kind: KindMalformedRequest, Message: "Invalid request. Please check your message format.", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint+"?key="+r.APIKey, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindMalformedRequest, Message: "Invalid request. Please check your message format.", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		requests.WithLabelValues(string(KindNetworkFailure)).Inc()
		logger.Warn("relay_network_failure", zap.Error(err))
		return "", &Error{Kind: KindNetworkFailure, Message: "Network error. Please check your internet connection.", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		rerr := statusError(resp.StatusCode, strings.TrimSpace(string(raw)))
		requests.WithLabelValues(string(rerr.Kind)).Inc()
		logger.Warn("relay_upstream_error", zap.Int("status", resp.StatusCode), zap.String("kind", string(rerr.Kind)))
		return "", rerr
	}

	var out genResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		requests.WithLabelValues(string(KindUnexpectedShape)).Inc()
		return "", &Error{Kind: KindUnexpectedShape, Message: "Unexpected response format from AI service.", Cause: err}
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		requests.WithLabelValues(string(KindUnexpectedShape)).Inc()
		return "", newError(KindUnexpectedShape, "Unexpected response format from AI service.")
	}
	content := out.Candidates[0].Content.Parts[0].Text

	requests.WithLabelValues("ok").Inc()
	upstreamDuration.Observe(time.Since(start).Seconds())
	logger.Debug("relay_response", zap.Int("chars", len(content)), zap.Duration("took", time.Since(start)))

	if onPartial != nil {
		r.playback(content, onPartial)
	}
	return content, nil
}

// playback replays content as strictly growing prefixes ending with the full
// string. Prefix boundaries are rune-aligned. The cadence delays are pure UI
// pacing; the final persisted message is always the complete text.
func (r *Relay) playback(content string, onPartial PartialFunc) {
	step := r.ChunkChars
	if step <= 0 {
		step = defaultChunkChars
	}
	interval := r.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	runes := []rune(content)
	for i := step; i < len(runes); i += step {
		onPartial(string(runes[:i]))
		time.Sleep(interval)
	}
	onPartial(content)
}

// Ping issues a fixed connectivity probe and reports the typed failure, if
// any. Useful for verifying credentials at startup or from the API.
func (r *Relay) Ping(ctx context.Context) error {
	_, err := r.SendMessage(ctx, []Turn{{Role: models.RoleUser, Content: `Say "API is working!"`}}, nil)
	return err
}
