package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/browse-api/geocode"
)

// RegisterGeocode exposes the cached geocoder directly, mostly for the
// create-listing form's address preview.
func RegisterGeocode(r chi.Router, d Deps) {
	r.Get("/geocode", func(w http.ResponseWriter, req *http.Request) {
		q := strings.TrimSpace(req.URL.Query().Get("q"))
		if q == "" {
			errJSON(w, req, http.StatusBadRequest, "query_required", "q is required")
			return
		}
		pt, err := d.Resolver.Lookup(req.Context(), q)
		if err != nil {
			if errors.Is(err, geocode.ErrNoResult) {
				errJSON(w, req, http.StatusNotFound, "no_result", "no coordinates found for "+q)
				return
			}
			errJSON(w, req, http.StatusBadGateway, "geocoder_unavailable", err.Error())
			return
		}
		render.JSON(w, req, map[string]any{
			"ok":     true,
			"query":  q,
			"coords": [2]float64{pt.Lat, pt.Lon},
			"lat":    pt.Lat,
			"lon":    pt.Lon,
		})
	})
}
