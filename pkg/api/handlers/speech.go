package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"voxd/pkg/speech"
	"voxd/pkg/utils"
)

type speechHandler struct {
	bridge *speech.Bridge
}

// RegisterSpeech registers the synthesis and recognition endpoints. On hosts
// without speech tooling the endpoints respond normally but do nothing,
// mirroring the bridge's no-op degradation.
func RegisterSpeech(r *mux.Router, b *speech.Bridge) {
	h := &speechHandler{bridge: b}
	r.HandleFunc("/speech/speak", h.speak).Methods(http.MethodPost)
	r.HandleFunc("/speech/stop", h.stopSpeaking).Methods(http.MethodPost)
	r.HandleFunc("/speech/listen", h.listen).Methods(http.MethodGet)
	r.HandleFunc("/speech/voices", h.voices).Methods(http.MethodGet)
	r.HandleFunc("/speech/status", h.status).Methods(http.MethodGet)
}

type speakRequest struct {
	Text   string  `json:"text"`
	Rate   float64 `json:"rate,omitempty"`
	Pitch  float64 `json:"pitch,omitempty"`
	Volume float64 `json:"volume,omitempty"`
}

func (h *speechHandler) speak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		utils.JSONError(w, http.StatusBadRequest, "text required")
		return
	}
	h.bridge.Speak(req.Text, speech.SpeakOptions{Rate: req.Rate, Pitch: req.Pitch, Volume: req.Volume})
	_ = utils.JSONWrite(w, http.StatusAccepted, map[string]bool{"speaking": h.bridge.CanSpeak()})
}

func (h *speechHandler) stopSpeaking(w http.ResponseWriter, r *http.Request) {
	h.bridge.StopSpeaking()
	w.WriteHeader(http.StatusNoContent)
}

type transcriptEvent struct {
	text  string
	final bool
}

// listen runs a recognition session over SSE: transcript events while the
// engine produces text, then a single end or error event. Whether the run
// actually started is decided by the bridge itself, so concurrent listen
// requests cannot both claim it; the loser gets a 409 without any callbacks
// registered. Closing the request (client disconnect) stops the engine.
func (h *speechHandler) listen(w http.ResponseWriter, r *http.Request) {
	if !h.bridge.CanListen() {
		utils.JSONError(w, http.StatusNotImplemented, "speech recognition not available on this host")
		return
	}

	results := make(chan transcriptEvent, 16)
	done := make(chan error, 1)
	started := h.bridge.StartListening(
		func(transcript string, final bool) {
			results <- transcriptEvent{text: transcript, final: final}
		},
		func() { done <- nil },
		func(err error) { done <- err },
	)
	if !started {
		utils.JSONError(w, http.StatusConflict, "already listening")
		return
	}

	sse := newSSEWriter(w)
	for {
		select {
		case ev := <-results:
			sse.event("transcript", map[string]interface{}{"text": ev.text, "final": ev.final})
		case err := <-done:
			if err != nil {
				sse.event("error", map[string]string{"message": err.Error()})
				return
			}
			sse.event("end", map[string]string{})
			return
		case <-r.Context().Done():
			h.bridge.StopListening()
			// drain remaining results so the engine goroutine can finish
			for {
				select {
				case <-results:
				case <-done:
					return
				}
			}
		}
	}
}

func (h *speechHandler) voices(w http.ResponseWriter, r *http.Request) {
	voices := h.bridge.Voices()
	if voices == nil {
		voices = []speech.Voice{}
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"voices": voices})
}

func (h *speechHandler) status(w http.ResponseWriter, r *http.Request) {
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{
		"can_speak":  h.bridge.CanSpeak(),
		"can_listen": h.bridge.CanListen(),
		"listening":  h.bridge.State() == speech.Listening,
	})
}
