package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"

	httpv1 "github.com/yourorg/browse-api/http/v1"
)

func BuildRouter(deps httpv1.Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(300, 1*time.Minute)) // protect the Nominatim quota
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"ok":true}`)) })

	httpv1.RegisterSessions(r, deps)
	httpv1.RegisterView(r, deps)
	httpv1.RegisterMap(r, deps)
	httpv1.RegisterFavorites(r, deps)
	httpv1.RegisterMessages(r, deps)
	httpv1.RegisterEvents(r, deps)
	httpv1.RegisterListings(r, deps)
	httpv1.RegisterGeocode(r, deps)

	return r
}
