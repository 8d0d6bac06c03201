package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yourorg/browse-api/internal/authn"
	"github.com/yourorg/browse-api/internal/coords"
	"github.com/yourorg/browse-api/internal/events"
	"github.com/yourorg/browse-api/internal/session"
	"github.com/yourorg/browse-api/market"
)

// Deps carries everything the v1 handlers need.
type Deps struct {
	Sessions *session.Manager
	Market   *market.Client
	Resolver *coords.Resolver
	Broker   *events.Broker
	Auth     *authn.Verifier
	Log      *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}

func errJSON(w http.ResponseWriter, _ *http.Request, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code, "detail": detail})
}

// loadSession resolves the {sessionID} URL param to a live session, writing
// the error response itself when there is none.
func (d Deps) loadSession(w http.ResponseWriter, req *http.Request) (*session.Session, bool) {
	id := chi.URLParam(req, "sessionID")
	s, err := d.Sessions.Get(id)
	if err != nil {
		errJSON(w, req, http.StatusNotFound, "session_not_found", "no live session with id "+id)
		return nil, false
	}
	return s, true
}
