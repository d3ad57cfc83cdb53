package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"voxd/pkg/auth"
	"voxd/pkg/models"
	"voxd/pkg/session"
	"voxd/pkg/utils"
)

type authHandler struct {
	provider auth.Provider
	sessions *session.Manager
}

// RegisterAuth registers the identity endpoints. The provider is an external
// collaborator; these handlers only translate HTTP to its contract.
func RegisterAuth(r *mux.Router, p auth.Provider, sessions *session.Manager) {
	h := &authHandler{provider: p, sessions: sessions}
	r.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
	r.HandleFunc("/auth/me", h.me).Methods(http.MethodGet)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Email == "" || c.Password == "" {
		utils.JSONError(w, http.StatusBadRequest, "email and password required")
		return
	}
	if err := h.provider.Register(c.Email, c.Password); err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			utils.JSONError(w, http.StatusConflict, err.Error())
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, map[string]string{
		"message": "Account created successfully! Please sign in.",
	})
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Email == "" || c.Password == "" {
		utils.JSONError(w, http.StatusBadRequest, "email and password required")
		return
	}
	u, err := h.provider.Login(c.Email, c.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			utils.JSONError(w, http.StatusUnauthorized, err.Error())
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// The signature is the client's identity proof for later requests.
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{
		"user":      u,
		"signature": auth.SignIdentity(u.Username),
	})
}

func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.provider.Logout(); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// drop the cached session store; the persisted copy is untouched
	if id := auth.IdentityFromContext(r.Context()); id != "" {
		h.sessions.Evict(id)
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}

// me answers from the verified identity of this request. Anonymous callers
// get a null user; whatever identity was persisted by earlier logins is
// theirs alone and never echoed to others.
func (h *authHandler) me(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	if id == "" {
		_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"user": nil})
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{
		"user": models.User{Username: id, Email: id},
	})
}
