package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/kalambet/folio/internal/profile"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds the dependencies of the HTTP API.
type Deps struct {
	Service *profile.Service
	// AllowedOrigins configures CORS; empty allows any origin.
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewHandler returns the REST API with every route mounted under /api.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handleHealth(deps))
		r.Get("/ready", handleReady(deps))
		r.Post("/create", handleCreate(deps))
		r.Patch("/update/{email}", handleUpdate(deps))
		r.Get("/profile", handleGetProfile(deps))
		r.Get("/search", handleSearchProjects(deps))
		r.Get("/skills", handleTopSkills(deps))
		r.Get("/find", handleFind(deps))
	})

	return r
}
