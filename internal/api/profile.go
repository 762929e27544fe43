package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/folio/internal/profile"
)

const readyTimeout = 2 * time.Second

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Service.Health())
	}
}

func handleReady(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := deps.Service.Ready(ctx); err != nil {
			deps.Logger.Warn("readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func handleCreate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req profile.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		p, err := deps.Service.Create(r.Context(), req)
		if err != nil {
			writeServiceError(w, r, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, Envelope{
			Success: true,
			Message: "Profile created successfully",
			Data:    p,
		})
	}
}

func handleUpdate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// chi routes on RawPath when the request carries one, so the param is
		// still escaped only in that case.
		email := chi.URLParam(r, "email")
		var err error
		if r.URL.RawPath != "" {
			email, err = url.PathUnescape(email)
		}
		if err != nil || email == "" {
			httpError(w, http.StatusBadRequest, "Invalid email")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
		if err != nil {
			httpError(w, http.StatusBadRequest, "Failed to read request body")
			return
		}

		patch, err := profile.ParsePatch(body)
		if err != nil {
			writeServiceError(w, r, deps.Logger, err)
			return
		}

		p, err := deps.Service.Update(r.Context(), email, patch)
		if err != nil {
			writeServiceError(w, r, deps.Logger, err)
			return
		}
		writeData(w, http.StatusOK, p)
	}
}

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Service.Get(r.Context())
		if err != nil {
			writeServiceError(w, r, deps.Logger, err)
			return
		}
		writeData(w, http.StatusOK, p)
	}
}

// handleSearchProjects accepts skills as a single value or repeated
// parameters (?skills=go&skills=sql).
func handleSearchProjects(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := deps.Service.ProjectsBySkills(r.Context(), r.URL.Query()["skills"])
		if err != nil {
			writeServiceError(w, r, deps.Logger, err)
			return
		}
		writeData(w, http.StatusOK, projects)
	}
}

func handleTopSkills(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skills, err := deps.Service.TopSkills(r.Context())
		if err != nil {
			writeServiceError(w, r, deps.Logger, err)
			return
		}
		writeData(w, http.StatusOK, skills)
	}
}

func handleFind(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			writeServiceError(w, r, deps.Logger, fmt.Errorf("%w: query parameter q is required", profile.ErrBadRequest))
			return
		}

		results, err := deps.Service.Search(r.Context(), q)
		if err != nil {
			writeServiceError(w, r, deps.Logger, err)
			return
		}
		writeData(w, http.StatusOK, results)
	}
}
