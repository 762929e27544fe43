package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/folio/internal/api"
	"github.com/kalambet/folio/internal/client"
	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/storage"
)

var ctx = context.Background()

func init() {
	noColor = true
}

// newTestAPI serves the real API over an in-memory store and returns a
// client for it together with the service for seeding and assertions.
func newTestAPI(t *testing.T) (*client.Client, *profile.Service) {
	t.Helper()
	store, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := profile.NewService(store)
	srv := httptest.NewServer(api.NewHandler(api.Deps{
		Service: svc,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}))
	t.Cleanup(srv.Close)

	return client.New(srv.URL+"/api", 2*time.Second), svc
}

func seed(t *testing.T, svc *profile.Service) {
	t.Helper()
	_, err := svc.Create(ctx, profile.CreateRequest{
		Name:   "Ada Lovelace",
		Email:  "ada@example.com",
		Skills: []string{"Go", "React"},
		Projects: []profile.Project{
			{Title: "Dashboard", Description: "React admin panel"},
			{Title: "Scheduler", Description: "Go cron service", Links: profile.ProjectLinks{GitHub: "https://github.com/ada/scheduler"}},
		},
	})
	if err != nil {
		t.Fatalf("seeding: %v", err)
	}
}

func loadedView(t *testing.T, c *client.Client) *client.View {
	t.Helper()
	v := client.NewView(c)
	if err := v.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return v
}

func TestSearchProjects_Output(t *testing.T) {
	c, svc := newTestAPI(t)
	seed(t, svc)
	view := loadedView(t, c)

	var out bytes.Buffer
	searchProjects(ctx, &out, view, "cron")
	got := out.String()
	if !strings.Contains(got, "Scheduler") || strings.Contains(got, "Dashboard") {
		t.Errorf("output = %q, want only Scheduler", got)
	}
	if !strings.Contains(got, "https://github.com/ada/scheduler") {
		t.Errorf("output missing project link: %q", got)
	}

	out.Reset()
	searchProjects(ctx, &out, view, "cobol")
	if !strings.Contains(out.String(), "no matching projects") {
		t.Errorf("output = %q", out.String())
	}
}

func TestWatchSearch_OnlyLastQueryRuns(t *testing.T) {
	c, svc := newTestAPI(t)
	seed(t, svc)
	view := loadedView(t, c)

	in := strings.NewReader("r\nre\nreact\n")
	var out bytes.Buffer
	if err := watchSearch(ctx, in, &out, view, 50*time.Millisecond); err != nil {
		t.Fatalf("watchSearch: %v", err)
	}

	got := out.String()
	if n := strings.Count(got, "→ search"); n != 1 {
		t.Errorf("ran %d searches, want 1; output %q", n, got)
	}
	if !strings.Contains(got, `"react"`) || !strings.Contains(got, "Dashboard") {
		t.Errorf("output = %q, want react results", got)
	}
}

func TestSubmitDraft(t *testing.T) {
	c, svc := newTestAPI(t)
	seed(t, svc)

	skills := "Go, Rust,  "
	err := submitDraft(ctx, client.NewView(c), draftEdits{skills: &skills})
	if err != nil {
		t.Fatalf("submitDraft: %v", err)
	}

	p, err := svc.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(p.Skills, []string{"Go", "Rust"}) {
		t.Errorf("skills = %v", p.Skills)
	}
	if p.Name != "Ada Lovelace" {
		t.Errorf("name = %q, should be unchanged", p.Name)
	}
	if len(p.Projects) != 2 {
		t.Errorf("projects = %d, should be unchanged", len(p.Projects))
	}
}

func TestSubmitDraft_Offline(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	name := "x"
	err := submitDraft(ctx, client.NewView(client.New(url+"/api", time.Second)), draftEdits{name: &name})
	if err == nil || !strings.Contains(err.Error(), client.ErrOffline.Error()) {
		t.Errorf("error = %v, want offline", err)
	}
}

func TestChangedFields(t *testing.T) {
	before, err := editableFields(profile.Profile{
		Name:   "Ada",
		Email:  "ada@example.com",
		Skills: []string{"Go"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != len(profile.PatchFields) {
		t.Errorf("editable fields = %d, want %d", len(before), len(profile.PatchFields))
	}

	after := map[string]json.RawMessage{}
	for k, v := range before {
		after[k] = v
	}
	after["skills"] = json.RawMessage(`[ "Go",  "SQL" ]`)
	after["name"] = json.RawMessage(` "Ada" `)

	got := changedFields(before, after)
	if len(got) != 1 {
		t.Fatalf("changed = %v, want only skills", got)
	}
	if string(got["skills"]) != `[ "Go",  "SQL" ]` {
		t.Errorf("skills = %s", got["skills"])
	}
}

func TestCreateRequestFromFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "create"}
	addCreateFlags(cmd)
	err := cmd.ParseFlags([]string{
		"--name", "Ada",
		"--email", "ada@example.com",
		"--skills", "Go, ,SQL",
		"--work", "Acme",
		"--work", "Initech",
		"--github", "https://github.com/ada",
	})
	if err != nil {
		t.Fatal(err)
	}

	req, err := createRequestFromFlags(cmd)
	if err != nil {
		t.Fatalf("createRequestFromFlags: %v", err)
	}
	if !reflect.DeepEqual(req.Skills, []string{"Go", "SQL"}) {
		t.Errorf("skills = %v", req.Skills)
	}
	if !reflect.DeepEqual(req.Work, []string{"Acme", "Initech"}) {
		t.Errorf("work = %v", req.Work)
	}
	if req.Links.GitHub != "https://github.com/ada" {
		t.Errorf("github = %q", req.Links.GitHub)
	}
}

func TestCreateRequestFromFlags_FileWithOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	content := `{"name":"From File","email":"file@example.com","education":"MSc","projects":[{"title":"P","description":"D"}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{Use: "create"}
	addCreateFlags(cmd)
	if err := cmd.ParseFlags([]string{"--file", path, "--name", "From Flag"}); err != nil {
		t.Fatal(err)
	}

	req, err := createRequestFromFlags(cmd)
	if err != nil {
		t.Fatalf("createRequestFromFlags: %v", err)
	}
	if req.Name != "From Flag" || req.Email != "file@example.com" || req.Education != "MSc" {
		t.Errorf("req = %+v", req)
	}
	if len(req.Projects) != 1 {
		t.Errorf("projects = %+v", req.Projects)
	}
}

func TestCreateRequestFromFlags_MissingRequired(t *testing.T) {
	cmd := &cobra.Command{Use: "create"}
	addCreateFlags(cmd)
	if err := cmd.ParseFlags([]string{"--name", "Ada"}); err != nil {
		t.Fatal(err)
	}
	if _, err := createRequestFromFlags(cmd); err == nil {
		t.Fatal("expected error when email is missing")
	}
}

func TestPrintProfiles(t *testing.T) {
	var out bytes.Buffer
	printProfiles(&out, []profile.Profile{{Name: "Ada", Email: "ada@example.com", Skills: []string{"Go", "SQL"}}})
	want := "Ada <ada@example.com>\n  skills: Go, SQL\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

// captureStderr returns what fn writes to os.Stderr.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	orig := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = orig }()

	fn()
	w.Close()
	out, _ := io.ReadAll(r)
	return string(out)
}

func TestShowStatus(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	c, svc := newTestAPI(t)

	orig := newClient
	newClient = func(config.Config) *client.Client { return c }
	t.Cleanup(func() { newClient = orig })

	out := captureStderr(t, func() {
		if err := showStatus(ctx); err != nil {
			t.Errorf("showStatus: %v", err)
		}
	})
	if !strings.Contains(out, "Server: UP") || !strings.Contains(out, "Profile: none") {
		t.Errorf("status without profile = %q", out)
	}

	seed(t, svc)
	out = captureStderr(t, func() {
		if err := showStatus(ctx); err != nil {
			t.Errorf("showStatus: %v", err)
		}
	})
	if !strings.Contains(out, "Ada Lovelace <ada@example.com>, 2 projects") {
		t.Errorf("status with profile = %q", out)
	}
	if !strings.Contains(out, "Store: ready") {
		t.Errorf("status store line missing: %q", out)
	}
}

func TestRootCommands(t *testing.T) {
	paths := [][]string{
		{"serve"}, {"mcp"}, {"status"},
		{"profile", "show"}, {"profile", "create"}, {"profile", "edit"},
		{"projects", "search"}, {"skills"}, {"find"},
		{"config", "show"}, {"config", "set"}, {"config", "unset"},
	}
	for _, p := range paths {
		cmd, _, err := rootCmd.Find(p)
		if err != nil || cmd.Name() != p[len(p)-1] {
			t.Errorf("command %v not registered (got %v, %v)", p, cmd, err)
		}
	}
}
