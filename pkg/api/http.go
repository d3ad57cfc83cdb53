package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"voxd/pkg/api/handlers"
	"voxd/pkg/auth"
	"voxd/pkg/relay"
	"voxd/pkg/session"
	"voxd/pkg/speech"
)

// Deps carries the collaborators the API serves. Handlers receive them
// explicitly instead of reaching into process-wide state.
type Deps struct {
	Sessions *session.Manager
	Relay    *relay.Relay
	Speech   *speech.Bridge
	Auth     auth.Provider
}

// Router builds the /v1 API router with identity resolution applied.
func Router(d Deps) http.Handler {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()

	handlers.RegisterAuth(v1, d.Auth, d.Sessions)
	handlers.RegisterSessions(v1, d.Sessions, d.Relay)
	handlers.RegisterSpeech(v1, d.Speech)
	handlers.RegisterRelay(v1, d.Relay)

	return auth.ResolveIdentity(r)
}
