package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"voxd/pkg/auth"
	"voxd/pkg/logger"
	"voxd/pkg/models"
	"voxd/pkg/relay"
	"voxd/pkg/session"
	"voxd/pkg/utils"
)

type sessionHandler struct {
	sessions *session.Manager
	relay    *relay.Relay
}

// RegisterSessions registers the chat session and message endpoints.
func RegisterSessions(r *mux.Router, sessions *session.Manager, rl *relay.Relay) {
	h := &sessionHandler{sessions: sessions, relay: rl}

	r.HandleFunc("/sessions", h.list).Methods(http.MethodGet)
	r.HandleFunc("/sessions", h.create).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", h.update).Methods(http.MethodPatch)
	r.HandleFunc("/sessions/{id}", h.delete).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/messages", h.sendMessage).Methods(http.MethodPost)

	// Sending without a session creates one implicitly.
	r.HandleFunc("/messages", h.sendMessage).Methods(http.MethodPost)
}

// storeFor resolves the caller's session store; writes an error and returns
// nil when the store cannot be loaded.
func (h *sessionHandler) storeFor(w http.ResponseWriter, r *http.Request) *session.Store {
	st, err := h.sessions.For(auth.IdentityFromContext(r.Context()))
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return nil
	}
	return st
}

func (h *sessionHandler) list(w http.ResponseWriter, r *http.Request) {
	st := h.storeFor(w, r)
	if st == nil {
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Sessions []models.ChatSession `json:"sessions"`
	}{Sessions: st.Sessions()})
}

func (h *sessionHandler) create(w http.ResponseWriter, r *http.Request) {
	st := h.storeFor(w, r)
	if st == nil {
		return
	}
	sess, err := st.Create()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, sess)
}

func (h *sessionHandler) get(w http.ResponseWriter, r *http.Request) {
	st := h.storeFor(w, r)
	if st == nil {
		return
	}
	sess, ok := st.Get(mux.Vars(r)["id"])
	if !ok {
		utils.JSONError(w, http.StatusNotFound, "session not found")
		return
	}
	st.SetCurrent(sess.ID)
	_ = utils.JSONWrite(w, http.StatusOK, sess)
}

func (h *sessionHandler) update(w http.ResponseWriter, r *http.Request) {
	st := h.storeFor(w, r)
	if st == nil {
		return
	}
	id := mux.Vars(r)["id"]
	var patch models.SessionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	// message history is append-only through the messages endpoint
	patch.Messages = nil
	if err := st.Update(id, patch); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sess, ok := st.Get(id)
	if !ok {
		utils.JSONError(w, http.StatusNotFound, "session not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, sess)
}

func (h *sessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	st := h.storeFor(w, r)
	if st == nil {
		return
	}
	if err := st.Delete(mux.Vars(r)["id"]); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sendRequest struct {
	Content string `json:"content"`
}

type sendResponse struct {
	SessionID string         `json:"session_id"`
	Message   models.Message `json:"message"`
	Failed    bool           `json:"failed,omitempty"`
}

// sendMessage appends the user message, relays the conversation upstream and
// appends the assistant reply. With ?stream=1 the reply is delivered as SSE
// partial events before the final message. A relay failure still appends an
// assistant-role message describing it, so the transcript always reflects
// what happened.
func (h *sessionHandler) sendMessage(w http.ResponseWriter, r *http.Request) {
	st := h.storeFor(w, r)
	if st == nil {
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		utils.JSONError(w, http.StatusBadRequest, "content required")
		return
	}

	id, explicit := mux.Vars(r)["id"]
	var sess models.ChatSession
	if explicit {
		var ok bool
		sess, ok = st.Get(id)
		if !ok {
			utils.JSONError(w, http.StatusNotFound, "session not found")
			return
		}
	} else {
		var err error
		sess, err = st.Create()
		if err != nil {
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	st.SetCurrent(sess.ID)

	userMsg := models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   req.Content,
		Timestamp: time.Now().UTC(),
	}
	if err := st.AddMessage(sess.ID, userMsg); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	current, _ := st.Get(sess.ID)
	history := make([]relay.Turn, 0, len(current.Messages))
	for _, m := range current.Messages {
		history = append(history, relay.Turn{Role: m.Role, Content: m.Content})
	}

	streaming := r.URL.Query().Get("stream") == "1"
	var sse *sseWriter
	var onPartial relay.PartialFunc
	if streaming {
		sse = newSSEWriter(w)
		onPartial = func(prefix string) {
			sse.event("partial", map[string]string{"text": prefix})
		}
	}

	reply, err := h.relay.SendMessage(r.Context(), history, onPartial)
	failed := err != nil
	content := reply
	if failed {
		kind := relay.KindOf(err)
		logger.Warn("relay_failed", zap.String("session", sess.ID), zap.String("kind", string(kind)))
		content = failureText(err)
	}

	assistantMsg := models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	if aerr := st.AddMessage(sess.ID, assistantMsg); aerr != nil {
		logger.Error("assistant_message_persist_failed", zap.String("session", sess.ID), zap.Error(aerr))
	}

	out := sendResponse{SessionID: sess.ID, Message: assistantMsg, Failed: failed}
	if streaming {
		sse.event("done", out)
		return
	}
	if failed {
		_ = utils.JSONWrite(w, statusForRelayError(err), out)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, out)
}

// failureText is the transcript-visible description of a relay failure.
func failureText(err error) string {
	if re, ok := err.(*relay.Error); ok {
		return re.UserMessage()
	}
	return "Something went wrong. Please try again."
}

func statusForRelayError(err error) int {
	switch relay.KindOf(err) {
	case relay.KindRateLimited:
		return http.StatusTooManyRequests
	case relay.KindMalformedRequest:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
