package v1

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/browse-api/internal/session"
)

// FilterPatch updates only the fields it carries; absent fields keep their
// current value. ClearLocation drops the clicked-location filter, since a
// JSON null for location cannot be told apart from an absent field.
type FilterPatch struct {
	Search        *string `json:"search"`
	Category      *string `json:"category"`
	PriceLimit    *int    `json:"price_limit"`
	SavedOnly     *bool   `json:"saved_only"`
	SortBy        *string `json:"sort"`
	Location      *string `json:"location"`
	ClearLocation bool    `json:"clear_location"`
}

func (p FilterPatch) apply(f session.FilterState) (session.FilterState, error) {
	if p.Search != nil {
		f.Search = *p.Search
	}
	if p.Category != nil {
		if !session.ValidFilterCategory(*p.Category) {
			return f, fmt.Errorf("unknown category %q", *p.Category)
		}
		f.Category = *p.Category
	}
	if p.PriceLimit != nil {
		if *p.PriceLimit < 0 {
			return f, fmt.Errorf("price_limit must not be negative, got %d", *p.PriceLimit)
		}
		f.PriceLimit = *p.PriceLimit
	}
	if p.SavedOnly != nil {
		f.SavedOnly = *p.SavedOnly
	}
	if p.SortBy != nil {
		if !session.ValidSort(*p.SortBy) {
			return f, fmt.Errorf("unknown sort %q", *p.SortBy)
		}
		f.SortBy = *p.SortBy
	}
	if p.Location != nil {
		loc := *p.Location
		f.Location = &loc
	}
	if p.ClearLocation {
		f.Location = nil
	}
	return f, nil
}

func RegisterView(r chi.Router, d Deps) {
	r.Get("/session/{sessionID}/view", func(w http.ResponseWriter, req *http.Request) {
		s, ok := d.loadSession(w, req)
		if !ok {
			return
		}
		cards, filter, favs := s.View()
		render.JSON(w, req, map[string]any{
			"ok":        true,
			"filters":   filter,
			"favorites": favs,
			"count":     len(cards),
			"listings":  cards,
		})
	})

	r.Put("/session/{sessionID}/filters", func(w http.ResponseWriter, req *http.Request) {
		s, ok := d.loadSession(w, req)
		if !ok {
			return
		}
		var patch FilterPatch
		if err := json.NewDecoder(req.Body).Decode(&patch); err != nil {
			errJSON(w, req, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
		next, err := patch.apply(s.Filter())
		if err != nil {
			errJSON(w, req, http.StatusUnprocessableEntity, "invalid_filter", err.Error())
			return
		}
		s.SetFilter(next)
		cards, filter, _ := s.View()
		render.JSON(w, req, map[string]any{
			"ok":       true,
			"filters":  filter,
			"count":    len(cards),
			"listings": cards,
		})
	})

	r.Post("/session/{sessionID}/filters/clear", func(w http.ResponseWriter, req *http.Request) {
		s, ok := d.loadSession(w, req)
		if !ok {
			return
		}
		s.ClearFilters()
		cards, filter, _ := s.View()
		render.JSON(w, req, map[string]any{
			"ok":       true,
			"filters":  filter,
			"count":    len(cards),
			"listings": cards,
		})
	})
}
