package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/folio/internal/client"
	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/profile"
)

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show, create, or edit the portfolio profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := loadClient()
		if err != nil {
			return err
		}
		p, err := c.Profile(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

var profileCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the profile",
	Long: `Create the profile from flags or from a JSON file.

Examples:
  folio profile create --name "Ada Lovelace" --email ada@example.com --skills "Go, SQL"
  folio profile create --file ./profile.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := createRequestFromFlags(cmd)
		if err != nil {
			return err
		}

		c, _, err := loadClient()
		if err != nil {
			return err
		}
		p, err := c.Create(cmd.Context(), req)
		if err != nil {
			return err
		}
		printSuccess("Created profile %s (%s)", p.Email, p.ID)
		return nil
	},
}

func createRequestFromFlags(cmd *cobra.Command) (profile.CreateRequest, error) {
	var req profile.CreateRequest

	file, _ := cmd.Flags().GetString("file")
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return req, fmt.Errorf("reading file: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("invalid JSON in %s: %w", file, err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		req.Name, _ = flags.GetString("name")
	}
	if flags.Changed("email") {
		req.Email, _ = flags.GetString("email")
	}
	if flags.Changed("education") {
		req.Education, _ = flags.GetString("education")
	}
	if flags.Changed("skills") {
		s, _ := flags.GetString("skills")
		req.Skills = client.Draft{Skills: s}.Payload().Skills
	}
	if flags.Changed("work") {
		w, _ := flags.GetStringSlice("work")
		req.Work = w
	}
	if flags.Changed("github") {
		req.Links.GitHub, _ = flags.GetString("github")
	}
	if flags.Changed("linkedin") {
		req.Links.LinkedIn, _ = flags.GetString("linkedin")
	}
	if flags.Changed("portfolio") {
		req.Links.Portfolio, _ = flags.GetString("portfolio")
	}

	if req.Name == "" || req.Email == "" {
		return req, fmt.Errorf("--name and --email are required (or provide them in --file)")
	}
	return req, nil
}

var profileEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the profile",
	Long: `Edit the profile.

With --name, --education, or --skills the given fields are submitted directly.
Without flags the profile opens as JSON in $EDITOR and changed fields are sent.

Examples:
  folio profile edit --skills "Go, Rust, SQL"
  folio profile edit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := loadClient()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("name") || flags.Changed("education") || flags.Changed("skills") {
			name, _ := flags.GetString("name")
			education, _ := flags.GetString("education")
			skills, _ := flags.GetString("skills")
			return submitDraft(cmd.Context(), client.NewView(c), draftEdits{
				name:      optional(flags.Changed("name"), name),
				education: optional(flags.Changed("education"), education),
				skills:    optional(flags.Changed("skills"), skills),
			})
		}
		return editInEditor(cmd.Context(), c)
	},
}

type draftEdits struct {
	name, education, skills *string
}

func optional(set bool, v string) *string {
	if !set {
		return nil
	}
	return &v
}

// submitDraft loads the profile, applies edits to its draft, and submits it.
func submitDraft(ctx context.Context, view *client.View, edits draftEdits) error {
	if err := view.Load(ctx); err != nil {
		return err
	}
	d := view.Draft()
	if edits.name != nil {
		d.Name = *edits.name
	}
	if edits.education != nil {
		d.Education = *edits.education
	}
	if edits.skills != nil {
		d.Skills = *edits.skills
	}
	if err := view.Submit(ctx, d); err != nil {
		return err
	}
	printSuccess("Profile updated")
	return nil
}

func editInEditor(ctx context.Context, c *client.Client) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	p, err := c.Profile(ctx)
	if err != nil {
		return err
	}
	before, err := editableFields(p)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(before, "", "  ")
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp("", "folio-profile-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return err
	}
	tmpFile.Close()

	editorCmd := exec.Command(editor, tmpPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}

	edited, err := os.ReadFile(tmpPath)
	if err != nil {
		return err
	}
	var after map[string]json.RawMessage
	if err := json.Unmarshal(edited, &after); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	changes := changedFields(before, after)
	if len(changes) == 0 {
		printWarning("No changes")
		return nil
	}
	if _, err := c.Update(ctx, p.Email, changes); err != nil {
		return err
	}
	printSuccess("Profile updated (%s)", strings.Join(slices.Sorted(maps.Keys(changes)), ", "))
	return nil
}

// editableFields returns the patchable fields of p keyed by JSON name.
func editableFields(p profile.Profile) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(profile.PatchFields))
	for _, k := range profile.PatchFields {
		if v, ok := all[k]; ok {
			out[k] = v
		} else {
			out[k] = json.RawMessage(`""`)
		}
	}
	return out, nil
}

// changedFields returns the entries of after that differ from before.
// Keys absent from before are kept so the server can reject them.
func changedFields(before, after map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)
	for k, v := range after {
		if old, ok := before[k]; ok && jsonEqual(old, v) {
			continue
		}
		out[k] = v
	}
	return out
}

func jsonEqual(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

func addCreateFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("file", "", "JSON file with the profile")
	f.String("name", "", "full name")
	f.String("email", "", "email address")
	f.String("education", "", "education summary")
	f.String("skills", "", "comma-separated skills")
	f.StringSlice("work", nil, "work entries (repeatable)")
	f.String("github", "", "GitHub URL")
	f.String("linkedin", "", "LinkedIn URL")
	f.String("portfolio", "", "portfolio URL")
}

func init() {
	addCreateFlags(profileCreateCmd)

	e := profileEditCmd.Flags()
	e.String("name", "", "new name")
	e.String("education", "", "new education")
	e.String("skills", "", "comma-separated skills, replacing the current list")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileEditCmd)
}

// --- projects ---

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Browse the profile's projects",
}

var projectsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search projects by skill",
	Long: `Search projects by skill. With no query every project is listed.

With --watch, queries are read from stdin one per line and only the last
line typed within the debounce window is searched.

Examples:
  folio projects search react
  folio projects search --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cfg, err := loadClient()
		if err != nil {
			return err
		}
		view := client.NewView(c)
		if err := view.Load(cmd.Context()); err != nil {
			return err
		}

		watch, _ := cmd.Flags().GetBool("watch")
		if watch {
			return watchSearch(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), view, cfg.Client.Debounce)
		}
		searchProjects(cmd.Context(), cmd.OutOrStdout(), view, strings.Join(args, " "))
		return nil
	},
}

func searchProjects(ctx context.Context, w io.Writer, view *client.View, query string) {
	res := view.Search(ctx, query)
	if res.Local && strings.TrimSpace(query) != "" {
		printWarning("search unavailable, showing local matches")
	}
	printProjects(w, res.Projects)
}

// watchSearch runs a debounced search for each line read from in. When in
// is exhausted the last pending query runs immediately.
func watchSearch(ctx context.Context, in io.Reader, w io.Writer, view *client.View, delay time.Duration) error {
	d := client.NewDebouncer(delay)
	var mu sync.Mutex

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		query := scanner.Text()
		d.Trigger(func() {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(w, "%s %q\n", colorize(colorCyan, "→ search"), query)
			searchProjects(ctx, w, view, query)
		})
	}
	d.Flush()
	return scanner.Err()
}

func init() {
	projectsSearchCmd.Flags().Bool("watch", false, "read queries from stdin and search as you type")
	projectsCmd.AddCommand(projectsSearchCmd)
}

// --- skills ---

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: fmt.Sprintf("List the top %d skills", profile.TopSkillsLimit),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := loadClient()
		if err != nil {
			return err
		}
		skills, err := c.TopSkills(cmd.Context())
		if err != nil {
			return err
		}
		for i, s := range skills {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, s)
		}
		return nil
	},
}

// --- find ---

var findCmd = &cobra.Command{
	Use:   "find <query>",
	Short: "Find profiles by name, skill, or project text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := loadClient()
		if err != nil {
			return err
		}
		results, err := c.Find(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		printProfiles(cmd.OutOrStdout(), results)
		return nil
	},
}

func printProfiles(w io.Writer, results []profile.Profile) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no matching profiles")
		return
	}
	for _, p := range results {
		fmt.Fprintf(w, "%s <%s>\n", colorize(colorBold, p.Name), p.Email)
		if len(p.Skills) > 0 {
			fmt.Fprintf(w, "  skills: %s\n", strings.Join(p.Skills, ", "))
		}
		if len(p.Projects) > 0 {
			fmt.Fprintf(w, "  projects: %d\n", len(p.Projects))
		}
	}
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s  (%s)\n", colorize(colorBold, k.Key), k.Value, k.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value in the config file.\n\nValid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so the default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
