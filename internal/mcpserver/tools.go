// Package mcpserver registers MCP tools that expose the current content
// snapshot. It adapts the content and resolve packages to the MCP SDK's
// tool handler interface.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/formationhub/contentd/internal/content"
	cerrors "github.com/formationhub/contentd/internal/errors"
	"github.com/formationhub/contentd/internal/resolve"
	"github.com/formationhub/contentd/internal/search"
	"github.com/formationhub/contentd/internal/site"
)

// defaultLimit caps listings when the caller does not ask for a limit.
const defaultLimit = 50

// Deps are the values the tools read from. Tier is the subscription tier
// of every session served by the server the tools are registered on.
type Deps struct {
	Holder *content.Holder
	Site   *site.Site
	Tier   string
}

// RegisterTools adds all content tools to the given MCP server.
func RegisterTools(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "content_list_posts",
		Description: "List blog posts newest first with metadata (slug, title, description, date, tags, tier). No body. Optionally filter by tag.",
	}, listPostsHandler(d))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "content_list_tutorials",
		Description: "List learn hub tutorials newest first with metadata. Optionally filter by category and tag.",
	}, listTutorialsHandler(d))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "content_get_post",
		Description: "Fetch one blog post by slug, including its markdown body. Slugs are matched case-insensitively and may omit leading path segments. Bodies above the session's tier are withheld.",
	}, getPostHandler(d))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "content_get_tutorial",
		Description: "Fetch one tutorial by category and slug, including its markdown body. Bodies above the session's tier are withheld.",
	}, getTutorialHandler(d))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "content_search",
		Description: "Case-insensitive search across titles, slugs, tags and bodies. Title hits rank first, then tags, then body text with a snippet and line number. Bodies above the session's tier are not searched.",
	}, searchHandler(d))
}

// --- Input types ---
// The MCP SDK infers JSON schema from these struct types via jsonschema tags.

// ListPostsInput holds parameters for content_list_posts.
type ListPostsInput struct {
	Tag   string `json:"tag,omitempty" jsonschema:"only posts carrying this tag, case-insensitive"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of posts, defaults to 50"`
}

// ListTutorialsInput holds parameters for content_list_tutorials.
type ListTutorialsInput struct {
	Category string `json:"category,omitempty" jsonschema:"only tutorials in this category"`
	Tag      string `json:"tag,omitempty" jsonschema:"only tutorials carrying this tag, case-insensitive"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of tutorials, defaults to 50"`
}

// GetPostInput holds parameters for content_get_post.
type GetPostInput struct {
	Slug string `json:"slug" jsonschema:"required,post slug, e.g. how-to-register-a-company"`
}

// GetTutorialInput holds parameters for content_get_tutorial.
type GetTutorialInput struct {
	Category string `json:"category" jsonschema:"required,tutorial category, e.g. banking"`
	Slug     string `json:"slug" jsonschema:"required,tutorial slug within the category, e.g. open-account"`
}

// SearchInput holds parameters for content_search.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"required,search text"`
	Type       string `json:"type,omitempty" jsonschema:"restrict to post or tutorial"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of results, defaults to 20"`
}

// --- Results ---

// ListResult is returned by the listing tools.
type ListResult struct {
	PassID    string             `json:"pass_id"`
	Total     int                `json:"total"`
	Documents []content.Document `json:"documents"`
}

// GetResult is returned by the fetch tools. Body is empty when Locked.
type GetResult struct {
	Document content.Document `json:"document"`
	Locked   bool             `json:"locked"`
	Body     string           `json:"body,omitempty"`
}

// --- Handlers ---

func listPostsHandler(d Deps) mcp.ToolHandlerFor[ListPostsInput, *ListResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input ListPostsInput) (*mcp.CallToolResult, *ListResult, error) {
		snap := d.Holder.Load()
		result := list(snap.PassID, content.Filter(snap.Posts, "", input.Tag), input.Limit)
		return textResult(result), result, nil
	}
}

func listTutorialsHandler(d Deps) mcp.ToolHandlerFor[ListTutorialsInput, *ListResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input ListTutorialsInput) (*mcp.CallToolResult, *ListResult, error) {
		snap := d.Holder.Load()
		result := list(snap.PassID, content.Filter(snap.Tutorials, input.Category, input.Tag), input.Limit)
		return textResult(result), result, nil
	}
}

func getPostHandler(d Deps) mcp.ToolHandlerFor[GetPostInput, *GetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GetPostInput) (*mcp.CallToolResult, *GetResult, error) {
		snap := d.Holder.Load()
		doc, ok := resolve.Post(snap, input.Slug)
		if !ok {
			return nil, nil, fmt.Errorf("post %q: %w", input.Slug, cerrors.ErrDocumentNotFound)
		}
		result, err := get(ctx, d, snap, doc)
		if err != nil {
			return nil, nil, err
		}
		return textResult(result), result, nil
	}
}

func getTutorialHandler(d Deps) mcp.ToolHandlerFor[GetTutorialInput, *GetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GetTutorialInput) (*mcp.CallToolResult, *GetResult, error) {
		snap := d.Holder.Load()
		doc, ok := resolve.Tutorial(snap, input.Category, input.Slug)
		if !ok {
			return nil, nil, fmt.Errorf("tutorial %q in %q: %w", input.Slug, input.Category, cerrors.ErrDocumentNotFound)
		}
		result, err := get(ctx, d, snap, doc)
		if err != nil {
			return nil, nil, err
		}
		return textResult(result), result, nil
	}
}

func searchHandler(d Deps) mcp.ToolHandlerFor[SearchInput, *search.Result] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, *search.Result, error) {
		var kind content.Kind
		switch input.Type {
		case "":
		case "post", "tutorial":
			kind = content.Kind(input.Type)
		default:
			return nil, nil, fmt.Errorf("unknown type %q, want post or tutorial", input.Type)
		}

		result, err := search.Search(ctx, d.Holder.Load(), input.Query, search.Options{
			Limit:   input.MaxResults,
			Kind:    kind,
			CanRead: func(doc content.Document) bool { return d.Site.Allows(d.Tier, doc.Tier) },
		})
		if err != nil {
			return nil, nil, err
		}
		return textResult(result), result, nil
	}
}

func list(passID string, docs []content.Document, limit int) *ListResult {
	if limit <= 0 {
		limit = defaultLimit
	}
	total := len(docs)
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return &ListResult{PassID: passID, Total: total, Documents: docs}
}

func get(ctx context.Context, d Deps, snap *content.Snapshot, doc content.Document) (*GetResult, error) {
	if !d.Site.Allows(d.Tier, doc.Tier) {
		return &GetResult{Document: doc, Locked: true}, nil
	}
	body, err := snap.Body(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &GetResult{Document: doc, Body: body}, nil
}

// textResult builds a CallToolResult with JSON text content from any value.
// The SDK fills in the structured output alongside it.
func textResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("error marshaling result: %v", err)}},
			IsError: true,
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
