package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/browse-api/internal/authn"
	"github.com/yourorg/browse-api/internal/session"
)

type openSessionRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Avatar  string `json:"avatar"`
	Program string `json:"program"`
	Year    string `json:"year"`
}

func RegisterSessions(r chi.Router, d Deps) {
	r.Post("/session", func(w http.ResponseWriter, req *http.Request) {
		owner, token, ok := d.resolveOwner(w, req)
		if !ok {
			return
		}
		s, err := d.Sessions.Open(req.Context(), owner, token)
		if err != nil {
			d.logger().Error("session open failed", "user", owner.Email, "err", err)
			errJSON(w, req, http.StatusBadGateway, "market_unavailable", err.Error())
			return
		}
		cards, filter, favs := s.View()
		render.Status(req, http.StatusCreated)
		render.JSON(w, req, map[string]any{
			"ok":         true,
			"session_id": s.ID,
			"user":       s.Owner,
			"filters":    filter,
			"favorites":  favs,
			"listings":   cards,
		})
	})

	r.Delete("/session/{sessionID}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "sessionID")
		if err := d.Sessions.Close(id); err != nil {
			errJSON(w, req, http.StatusNotFound, "session_not_found", "no live session with id "+id)
			return
		}
		render.JSON(w, req, map[string]any{"ok": true, "session_id": id})
	})
}

// resolveOwner builds the session owner from the bearer token when a
// verifier is configured, or from the request body otherwise. The raw
// token, when present, is forwarded on the session's upstream writes.
func (d Deps) resolveOwner(w http.ResponseWriter, req *http.Request) (session.User, string, bool) {
	header := req.Header.Get("Authorization")

	if d.Auth != nil && d.Auth.Enabled() {
		id, token, err := d.Auth.FromAuthHeader(header)
		if err != nil {
			code := "invalid_token"
			if errors.Is(err, authn.ErrNoToken) {
				code = "missing_token"
			}
			errJSON(w, req, http.StatusUnauthorized, code, err.Error())
			return session.User{}, "", false
		}
		return session.User{
			Name:    id.Name,
			Email:   id.Email,
			Avatar:  id.Avatar,
			Program: id.Program,
			Year:    id.Year,
		}, token, true
	}

	var body openSessionRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		errJSON(w, req, http.StatusBadRequest, "invalid_json", err.Error())
		return session.User{}, "", false
	}
	if strings.TrimSpace(body.Email) == "" {
		errJSON(w, req, http.StatusBadRequest, "email_required", "email is required to open a session")
		return session.User{}, "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == header {
		token = ""
	}
	return session.User{
		Name:    body.Name,
		Email:   body.Email,
		Avatar:  body.Avatar,
		Program: body.Program,
		Year:    body.Year,
	}, token, true
}
