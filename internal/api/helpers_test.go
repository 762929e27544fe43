package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/storage"
)

var errStoreDown = errors.New("connection refused")

// downStore fails every call, as a store that lost its connection would.
type downStore struct{}

func (downStore) InsertProfile(context.Context, profile.Profile) error { return errStoreDown }
func (downStore) FindProfileByEmail(context.Context, string) (profile.Profile, error) {
	return profile.Profile{}, errStoreDown
}
func (downStore) FirstProfile(context.Context) (profile.Profile, error) {
	return profile.Profile{}, errStoreDown
}
func (downStore) UpdateProfile(context.Context, string, func(*profile.Profile) error) (profile.Profile, error) {
	return profile.Profile{}, errStoreDown
}
func (downStore) SearchProfiles(context.Context, string) ([]profile.Profile, error) {
	return nil, errStoreDown
}
func (downStore) Ping(context.Context) error { return errStoreDown }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestService returns a Service over an empty in-memory SQLite store.
func newTestService(t *testing.T) *profile.Service {
	t.Helper()
	store, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return profile.NewService(store)
}

// seedProfile creates the portfolio profile used across handler tests.
func seedProfile(t *testing.T, svc *profile.Service) profile.Profile {
	t.Helper()
	p, err := svc.Create(context.Background(), profile.CreateRequest{
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		Education: "Analytical Engine Institute",
		Skills:    []string{"Go", "React", "SQL", "Docker", "Kubernetes", "Rust"},
		Projects: []profile.Project{
			{Title: "Dashboard", Description: "Admin UI built with React and Go"},
			{Title: "React Native app", Description: "Mobile client"},
			{Title: "Pipeline", Description: "Docker based CI runners"},
		},
		Work:  []string{"Acme Corp"},
		Links: profile.Links{GitHub: "https://github.com/ada"},
	})
	if err != nil {
		t.Fatalf("seeding profile: %v", err)
	}
	return p
}
