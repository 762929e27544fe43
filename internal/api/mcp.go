package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/folio/internal/profile"
)

// ProfileResourceURI is the MCP resource holding the portfolio profile.
const ProfileResourceURI = "portfolio://profile"

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Service *profile.Service
	Version string
}

// NewMCPServer creates an MCP server exposing the portfolio operations as
// tools and the profile document as a resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"folio",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("folio: read and search a developer portfolio profile."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("get_profile",
			mcp.WithDescription("Return the portfolio profile as JSON."),
		),
		mcpGetProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("search_projects",
			mcp.WithDescription("Filter the profile's projects by skills. Descriptions are matched first; titles only when no description matches."),
			mcp.WithArray("skills", mcp.Description("Skill terms to match, case-insensitive")),
		),
		mcpSearchProjects(deps),
	)

	s.AddTool(
		mcp.NewTool("top_skills",
			mcp.WithDescription(fmt.Sprintf("Return the first %d skills of the profile.", profile.TopSkillsLimit)),
		),
		mcpTopSkills(deps),
	)

	s.AddTool(
		mcp.NewTool("find_profiles",
			mcp.WithDescription("Find profiles whose name, skills, or projects contain the query text."),
			mcp.WithString("query", mcp.Description("Literal text to search for"), mcp.Required()),
		),
		mcpFindProfiles(deps),
	)

	s.AddTool(
		mcp.NewTool("update_profile",
			mcp.WithDescription("Partially update the profile identified by email."),
			mcp.WithString("email", mcp.Description("Email of the profile to update"), mcp.Required()),
			mcp.WithString("patch", mcp.Description("JSON object with any of: name, email, education, skills, projects, work, links"), mcp.Required()),
		),
		mcpUpdateProfile(deps),
	)

	s.AddResource(
		mcp.NewResource(
			ProfileResourceURI,
			"Portfolio Profile",
			mcp.WithResourceDescription("Current portfolio profile as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	return s
}

func mcpGetProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := deps.Service.Get(ctx)
		if err != nil {
			return mcpServiceError("get profile", err), nil
		}
		return mcpJSON(p)
	}
}

func mcpSearchProjects(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		skills := req.GetStringSlice("skills", nil)

		projects, err := deps.Service.ProjectsBySkills(ctx, skills)
		if err != nil {
			return mcpServiceError("search projects", err), nil
		}
		return mcpJSON(projects)
	}
}

func mcpTopSkills(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		skills, err := deps.Service.TopSkills(ctx)
		if err != nil {
			return mcpServiceError("top skills", err), nil
		}
		return mcpJSON(skills)
	}
}

func mcpFindProfiles(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil || query == "" {
			return mcpError("query is required"), nil
		}

		results, err := deps.Service.Search(ctx, query)
		if err != nil {
			return mcpServiceError("find profiles", err), nil
		}
		return mcpJSON(results)
	}
}

func mcpUpdateProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		email, err := req.RequireString("email")
		if err != nil || email == "" {
			return mcpError("email is required"), nil
		}
		raw, err := req.RequireString("patch")
		if err != nil {
			return mcpError("patch is required"), nil
		}

		patch, err := profile.ParsePatch([]byte(raw))
		if err != nil {
			return mcpServiceError("update profile", err), nil
		}
		p, err := deps.Service.Update(ctx, email, patch)
		if err != nil {
			return mcpServiceError("update profile", err), nil
		}
		return mcpJSON(p)
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		p, err := deps.Service.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}

		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// mcpServiceError reports domain errors verbatim and hides internal ones.
func mcpServiceError(op string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, profile.ErrNotFound),
		errors.Is(err, profile.ErrDuplicateProfile),
		errors.Is(err, profile.ErrEmptyUpdate):
		return mcpError(err.Error())
	case errors.Is(err, profile.ErrBadRequest):
		return mcpError(errorMessage(err))
	}
	return mcpError(fmt.Sprintf("%s failed: internal error", op))
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
