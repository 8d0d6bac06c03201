package v1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/browse-api/internal/session"
)

type hoverRequest struct {
	Entered bool `json:"entered"`
}

func RegisterMap(r chi.Router, d Deps) {
	r.Route("/session/{sessionID}/markers", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			s, ok := d.loadSession(w, req)
			if !ok {
				return
			}
			render.JSON(w, req, map[string]any{"ok": true, "markers": s.Markers()})
		})

		r.Post("/{listingID}/click", func(w http.ResponseWriter, req *http.Request) {
			s, ok := d.loadSession(w, req)
			if !ok {
				return
			}
			listingID := chi.URLParam(req, "listingID")
			if err := s.MarkerClick(listingID); err != nil {
				mapListingErr(w, req, listingID, err)
				return
			}
			_, filter, _ := s.View()
			render.JSON(w, req, map[string]any{
				"ok":      true,
				"popup":   s.PopupStateOf(listingID),
				"filters": filter,
			})
		})

		r.Post("/{listingID}/hover", func(w http.ResponseWriter, req *http.Request) {
			s, ok := d.loadSession(w, req)
			if !ok {
				return
			}
			var body hoverRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
				errJSON(w, req, http.StatusBadRequest, "invalid_json", err.Error())
				return
			}
			listingID := chi.URLParam(req, "listingID")
			if err := s.MarkerHover(listingID, body.Entered); err != nil {
				mapListingErr(w, req, listingID, err)
				return
			}
			render.JSON(w, req, map[string]any{"ok": true, "popup": s.PopupStateOf(listingID)})
		})

		r.Post("/{listingID}/popup/close", func(w http.ResponseWriter, req *http.Request) {
			s, ok := d.loadSession(w, req)
			if !ok {
				return
			}
			listingID := chi.URLParam(req, "listingID")
			s.ClosePopup(listingID)
			render.JSON(w, req, map[string]any{"ok": true, "popup": s.PopupStateOf(listingID)})
		})
	})
}

func mapListingErr(w http.ResponseWriter, req *http.Request, listingID string, err error) {
	if errors.Is(err, session.ErrUnknownListing) {
		errJSON(w, req, http.StatusNotFound, "listing_not_found", "no listing "+listingID+" in this session")
		return
	}
	errJSON(w, req, http.StatusInternalServerError, "internal", err.Error())
}
