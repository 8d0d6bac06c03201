package v1

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/browse-api/internal/session"
)

func RegisterFavorites(r chi.Router, d Deps) {
	r.Post("/session/{sessionID}/favorites/{listingID}/toggle", func(w http.ResponseWriter, req *http.Request) {
		s, ok := d.loadSession(w, req)
		if !ok {
			return
		}
		listingID := chi.URLParam(req, "listingID")
		saved, err := d.Sessions.ToggleFavorite(req.Context(), s, listingID)
		if err != nil {
			if errors.Is(err, session.ErrUnknownListing) {
				errJSON(w, req, http.StatusNotFound, "listing_not_found", "no listing "+listingID+" in this session")
				return
			}
			// the optimistic flip has already been rolled back
			d.logger().Warn("favorite toggle failed", "session", s.ID, "listing", listingID, "err", err)
			errJSON(w, req, http.StatusBadGateway, "favorite_sync_failed", err.Error())
			return
		}
		render.JSON(w, req, map[string]any{"ok": true, "listing_id": listingID, "saved": saved})
	})
}
