package v1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/browse-api/geocode"
	"github.com/yourorg/browse-api/market"
)

const maxListingBody = 16 << 20 // images travel base64-encoded

// RegisterListings exposes the marketplace CRUD as a passthrough. Writes
// forward the caller's bearer token untouched; creates and updates get
// their location geocoded on the way through, the way the web client did
// before posting.
func RegisterListings(r chi.Router, d Deps) {
	r.Route("/listings", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			raw, err := d.Market.FetchListings(req.Context())
			if err != nil {
				upstreamErr(w, req, err)
				return
			}
			cards, err := market.MapListings(raw)
			if err != nil {
				errJSON(w, req, http.StatusBadGateway, "bad_upstream_payload", err.Error())
				return
			}
			render.JSON(w, req, map[string]any{"ok": true, "count": len(cards), "listings": cards})
		})

		r.Get("/{listingID}", func(w http.ResponseWriter, req *http.Request) {
			raw, err := d.Market.FetchListing(req.Context(), chi.URLParam(req, "listingID"))
			if err != nil {
				upstreamErr(w, req, err)
				return
			}
			card, err := market.MapListing(raw)
			if err != nil {
				errJSON(w, req, http.StatusBadGateway, "bad_upstream_payload", err.Error())
				return
			}
			render.JSON(w, req, map[string]any{"ok": true, "listing": card})
		})

		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			body, ok := d.readListingBody(w, req)
			if !ok {
				return
			}
			raw, err := d.Market.CreateListing(req.Context(), bearerToken(req), body)
			if err != nil {
				upstreamErr(w, req, err)
				return
			}
			card, err := market.MapListing(raw)
			if err != nil {
				errJSON(w, req, http.StatusBadGateway, "bad_upstream_payload", err.Error())
				return
			}
			d.Sessions.UpsertListing(card)
			render.Status(req, http.StatusCreated)
			render.JSON(w, req, map[string]any{"ok": true, "listing": card})
		})

		r.Put("/{listingID}", func(w http.ResponseWriter, req *http.Request) {
			body, ok := d.readListingBody(w, req)
			if !ok {
				return
			}
			raw, err := d.Market.UpdateListing(req.Context(), bearerToken(req), chi.URLParam(req, "listingID"), body)
			if err != nil {
				upstreamErr(w, req, err)
				return
			}
			card, err := market.MapListing(raw)
			if err != nil {
				errJSON(w, req, http.StatusBadGateway, "bad_upstream_payload", err.Error())
				return
			}
			d.Sessions.UpsertListing(card)
			render.JSON(w, req, map[string]any{"ok": true, "listing": card})
		})

		r.Delete("/{listingID}", func(w http.ResponseWriter, req *http.Request) {
			listingID := chi.URLParam(req, "listingID")
			if err := d.Market.DeleteListing(req.Context(), bearerToken(req), listingID); err != nil {
				upstreamErr(w, req, err)
				return
			}
			d.Sessions.DropListing(listingID)
			render.JSON(w, req, map[string]any{"ok": true, "listing_id": listingID})
		})
	})
}

// readListingBody decodes a create or update payload and fills in lat/lng
// from the geocoder when the caller did not send coordinates. A location
// the geocoder cannot place is not an error; the listing just ships
// without a pin.
func (d Deps) readListingBody(w http.ResponseWriter, req *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(io.LimitReader(req.Body, maxListingBody))
	if err != nil {
		errJSON(w, req, http.StatusBadRequest, "unreadable_body", err.Error())
		return nil, false
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		errJSON(w, req, http.StatusBadRequest, "invalid_json", err.Error())
		return nil, false
	}

	if typ, ok := fields["type"].(string); ok && !market.ValidCategory(typ) {
		errJSON(w, req, http.StatusUnprocessableEntity, "invalid_category", "unknown category "+typ)
		return nil, false
	}
	if price, ok := fields["price"].(float64); ok && price < 0 {
		errJSON(w, req, http.StatusUnprocessableEntity, "invalid_price", "price must not be negative")
		return nil, false
	}

	_, hasLat := fields["lat"]
	_, hasLng := fields["lng"]
	loc, _ := fields["location"].(string)
	if d.Resolver != nil && (!hasLat || !hasLng) && strings.TrimSpace(loc) != "" {
		pt, err := d.Resolver.Lookup(req.Context(), loc)
		switch {
		case errors.Is(err, geocode.ErrNoResult):
		case err != nil:
			d.logger().Warn("listing geocode failed", "location", loc, "err", err)
		default:
			fields["lat"] = pt.Lat
			fields["lng"] = pt.Lon
		}
	}

	out, err := json.Marshal(fields)
	if err != nil {
		errJSON(w, req, http.StatusInternalServerError, "internal", err.Error())
		return nil, false
	}
	return out, true
}

func bearerToken(req *http.Request) string {
	header := req.Header.Get("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == header {
		return ""
	}
	return token
}

func upstreamErr(w http.ResponseWriter, req *http.Request, err error) {
	if errors.Is(err, market.ErrNotFound) {
		errJSON(w, req, http.StatusNotFound, "not_found", err.Error())
		return
	}
	errJSON(w, req, http.StatusBadGateway, "market_unavailable", err.Error())
}
