package mcp

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/dewco/dewsite/internal/config"
	"github.com/dewco/dewsite/internal/nav"
	"github.com/dewco/dewsite/internal/seo"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var contentListToolDef = mcp.NewTool("content_list",
	mcp.WithDescription("List portfolio projects, stories or testimonials in display order."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("kind",
		mcp.Required(),
		mcp.Description("Content kind"),
		mcp.Enum("portfolio", "story", "testimonial"),
	),
	mcp.WithNumber("limit", mcp.Description("Maximum items to return (default: all)")),
)

var contentResolveToolDef = mcp.NewTool("content_resolve",
	mcp.WithDescription("Resolve a portfolio project or story by slug or id, tolerating case, hyphen and underscore variants."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("kind",
		mcp.Required(),
		mcp.Description("Content kind"),
		mcp.Enum("portfolio", "story"),
	),
	mcp.WithString("id", mcp.Required(), mcp.Description("Slug or id as it appears in a URL")),
)

var pageMetaToolDef = mcp.NewTool("page_meta",
	mcp.WithDescription("Resolve a site path and return its page metadata and JSON-LD graph."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("path", mcp.Required(), mcp.Description("Site path, e.g. /stories/launch-day")),
	mcp.WithBoolean("include_head", mcp.Description("Also return the rendered <head> markup")),
)

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"content_list": {
		def:     contentListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleContentList },
	},
	"content_resolve": {
		def:     contentResolveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleContentResolve },
	},
	"page_meta": {
		def:     pageMetaToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePageMeta },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the content tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(source nav.ContentSource, cfg *config.Config, version string, log logrus.FieldLogger) *server.MCPServer {
	s := server.NewMCPServer(
		"dewsite",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(source, seo.NewSite(cfg), cfg, log)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run starts the MCP server using stdio transport.
func Run(source nav.ContentSource, cfg *config.Config, version string, log logrus.FieldLogger) error {
	s := NewServer(source, cfg, version, log)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
