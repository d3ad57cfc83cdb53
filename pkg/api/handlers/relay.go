package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"voxd/pkg/relay"
	"voxd/pkg/utils"
)

type relayHandler struct {
	relay *relay.Relay
}

// RegisterRelay registers the upstream connectivity probe.
func RegisterRelay(r *mux.Router, rl *relay.Relay) {
	h := &relayHandler{relay: rl}
	r.HandleFunc("/relay/ping", h.ping).Methods(http.MethodGet)
}

func (h *relayHandler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.relay.Ping(r.Context()); err != nil {
		kind := relay.KindOf(err)
		_ = utils.JSONWrite(w, statusForRelayError(err), map[string]string{
			"status": "error",
			"kind":   string(kind),
			"error":  failureText(err),
		})
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}
