package v1

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/browse-api/market"
)

type sendMessageRequest struct {
	Text string `json:"text"`
}

// RegisterMessages exposes a listing's message thread scoped to the
// session owner: reads only return messages the owner is a party to, and
// sends are always stamped with the owner as sender and the listing's
// poster as recipient.
func RegisterMessages(r chi.Router, d Deps) {
	r.Route("/session/{sessionID}/listings/{listingID}/messages", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			s, ok := d.loadSession(w, req)
			if !ok {
				return
			}
			listingID := chi.URLParam(req, "listingID")
			raw, err := d.Market.FetchMessages(req.Context(), listingID)
			if err != nil {
				upstreamErr(w, req, err)
				return
			}
			msgs, err := market.MapMessages(raw)
			if err != nil {
				errJSON(w, req, http.StatusBadGateway, "bad_upstream_payload", err.Error())
				return
			}
			mine := make([]market.Message, 0, len(msgs))
			for _, m := range msgs {
				if m.SenderName == s.Owner.Name || m.RecipientName == s.Owner.Name {
					mine = append(mine, m)
				}
			}
			render.JSON(w, req, map[string]any{"ok": true, "listing_id": listingID, "messages": mine})
		})

		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			s, ok := d.loadSession(w, req)
			if !ok {
				return
			}
			listingID := chi.URLParam(req, "listingID")
			card, found := s.Listing(listingID)
			if !found {
				errJSON(w, req, http.StatusNotFound, "listing_not_found", "no listing "+listingID+" in this session")
				return
			}

			var body sendMessageRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				errJSON(w, req, http.StatusBadRequest, "invalid_json", err.Error())
				return
			}
			if strings.TrimSpace(body.Text) == "" {
				errJSON(w, req, http.StatusBadRequest, "text_required", "message text must not be empty")
				return
			}

			msg := market.Message{
				FromUser:      true,
				SenderName:    s.Owner.Name,
				RecipientName: card.Poster.Name,
				Text:          body.Text,
			}
			sent, err := d.Market.SendMessage(req.Context(), listingID, msg)
			if err != nil {
				upstreamErr(w, req, err)
				return
			}
			render.Status(req, http.StatusCreated)
			render.JSON(w, req, map[string]any{"ok": true, "listing_id": listingID, "message": sent})
		})

		r.Delete("/{messageID}", func(w http.ResponseWriter, req *http.Request) {
			if _, ok := d.loadSession(w, req); !ok {
				return
			}
			listingID := chi.URLParam(req, "listingID")
			messageID := chi.URLParam(req, "messageID")
			if err := d.Market.DeleteMessage(req.Context(), listingID, messageID); err != nil {
				upstreamErr(w, req, err)
				return
			}
			render.JSON(w, req, map[string]any{"ok": true, "listing_id": listingID, "message_id": messageID})
		})
	})
}
