package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/folio/internal/profile"
)

// ErrOffline means the initial load failed. The view keeps no partial state;
// callers offer a manual retry.
var ErrOffline = errors.New("server unreachable")

// View is the client-side state of the portfolio page: the last loaded
// profile and the backend health.
type View struct {
	client *Client

	mu      sync.Mutex
	profile profile.Profile
	health  profile.Health
	loaded  bool
}

func NewView(c *Client) *View {
	return &View{client: c}
}

// Load fetches the profile and health concurrently. If either call fails the
// view is left unchanged and ErrOffline is returned.
func (v *View) Load(ctx context.Context) error {
	var (
		p profile.Profile
		h profile.Health
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = v.client.Profile(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		h, err = v.client.Health(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Debug("initial load failed", "base_url", v.client.BaseURL(), "error", err)
		return fmt.Errorf("%w: %v", ErrOffline, err)
	}
	if h.Status == "" {
		h.Status = "UP"
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.profile = p
	v.health = h
	v.loaded = true
	return nil
}

// Loaded reports whether a Load has succeeded.
func (v *View) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

func (v *View) Profile() profile.Profile {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.profile.Clone()
}

func (v *View) Health() profile.Health {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.health
}

// SearchResult is the outcome of View.Search.
type SearchResult struct {
	Projects []profile.Project
	// Local is set when the list was computed without the server, either
	// because the query was blank or because the request failed.
	Local bool
}

// Search filters projects by query. A blank query restores the full local
// list without a request. If the server search fails the last known
// projects are filtered locally by title or description.
func (v *View) Search(ctx context.Context, query string) SearchResult {
	local := v.Profile().Projects

	if strings.TrimSpace(query) == "" {
		return SearchResult{Projects: orEmpty(local), Local: true}
	}

	projects, err := v.client.SearchProjects(ctx, query)
	if err != nil {
		slog.Debug("search request failed, filtering locally", "query", query, "error", err)
		filtered := profile.FilterProjects(local, profile.CleanTerms([]string{query}), profile.FieldAny)
		return SearchResult{Projects: filtered, Local: true}
	}
	return SearchResult{Projects: orEmpty(projects)}
}

// Draft seeds an edit form from the current profile.
func (v *View) Draft() Draft {
	return NewDraft(v.Profile())
}

// Submit sends d to the server and, on success, merges the submitted fields
// into the local profile without refetching it.
func (v *View) Submit(ctx context.Context, d Draft) error {
	v.mu.Lock()
	email := v.profile.Email
	v.mu.Unlock()
	if email == "" {
		return errors.New("no profile loaded")
	}

	payload := d.Payload()
	if _, err := v.client.Update(ctx, email, payload); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.profile.Name = payload.Name
	v.profile.Education = payload.Education
	v.profile.Skills = payload.Skills
	return nil
}

func orEmpty(projects []profile.Project) []profile.Project {
	if projects == nil {
		return []profile.Project{}
	}
	return projects
}
