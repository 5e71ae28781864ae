package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/dewco/dewsite/internal/config"
	"github.com/dewco/dewsite/internal/content"
	"github.com/dewco/dewsite/internal/errors"
	"github.com/dewco/dewsite/internal/head"
	"github.com/dewco/dewsite/internal/nav"
	"github.com/dewco/dewsite/internal/seo"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	source nav.ContentSource
	nav    *nav.Navigator
	log    logrus.FieldLogger
}

// NewHandlers creates a new Handlers instance. Tool calls resolve through
// their own navigator without a head document, so concurrent calls never
// supersede each other.
func NewHandlers(source nav.ContentSource, site *seo.Site, cfg *config.Config, log logrus.FieldLogger) *Handlers {
	opts := []nav.Option{nav.WithLogger(log)}
	if t := cfg.FetchTimeout(); t > 0 {
		opts = append(opts, nav.WithTimeout(t))
	}
	return &Handlers{
		source: source,
		nav:    nav.NewNavigator(source, site, opts...),
		log:    log,
	}
}

// ContentListRequest represents the arguments for content_list.
type ContentListRequest struct {
	Kind  string `json:"kind"`
	Limit int    `json:"limit,omitempty"`
}

// ContentListResponse is the result of content_list.
type ContentListResponse struct {
	Kind         content.Kind          `json:"kind"`
	Count        int                   `json:"count"`
	Items        []content.Item        `json:"items,omitempty"`
	Testimonials []content.Testimonial `json:"testimonials,omitempty"`
}

// ContentResolveRequest represents the arguments for content_resolve.
type ContentResolveRequest struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// ContentResolveResponse is the result of content_resolve.
type ContentResolveResponse struct {
	Path     string          `json:"path"`
	Detail   *content.Detail `json:"detail,omitempty"`
	Summary  *content.Item   `json:"summary,omitempty"`
	Previous *content.Item   `json:"previous,omitempty"`
	Next     *content.Item   `json:"next,omitempty"`
	Warning  string          `json:"warning,omitempty"`
}

// PageMetaRequest represents the arguments for page_meta.
type PageMetaRequest struct {
	Path        string `json:"path"`
	IncludeHead bool   `json:"include_head,omitempty"`
}

// PageMetaResponse is the result of page_meta.
type PageMetaResponse struct {
	Path     string       `json:"path"`
	Page     seo.PageType `json:"page"`
	Redirect string       `json:"redirect,omitempty"`
	NotFound bool         `json:"not_found"`
	Meta     seo.PageMeta `json:"meta"`
	JSONLD   *seo.Graph   `json:"jsonld"`
	Head     string       `json:"head,omitempty"`
	Warning  string       `json:"warning,omitempty"`
}

// HandleContentList handles the content_list tool call.
func (h *Handlers) HandleContentList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ContentListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	kind, ok := content.ParseKind(input.Kind)
	if !ok {
		return errorResult(errors.NewInvalidRequest(fmt.Sprintf("unknown kind %q", input.Kind))), nil
	}
	if input.Limit < 0 {
		return errorResult(errors.NewInvalidRequest("limit must not be negative")), nil
	}

	out := ContentListResponse{Kind: kind}
	if kind == content.KindTestimonial {
		ts, err := h.source.ListTestimonials(ctx)
		if err != nil {
			return errorResult(err), nil
		}
		if input.Limit > 0 && len(ts) > input.Limit {
			ts = ts[:input.Limit]
		}
		out.Testimonials = ts
		out.Count = len(ts)
		return successResult(out)
	}

	items, err := h.source.ListSummaries(ctx, kind)
	if err != nil {
		return errorResult(err), nil
	}
	if input.Limit > 0 && len(items) > input.Limit {
		items = items[:input.Limit]
	}
	out.Items = items
	out.Count = len(items)
	return successResult(out)
}

// HandleContentResolve handles the content_resolve tool call. Resolution
// follows the detail page route, so the answer matches what the page at
// that URL would show.
func (h *Handlers) HandleContentResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ContentResolveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	kind, ok := content.ParseKind(input.Kind)
	if !ok || kind.BasePath() == "" {
		return errorResult(errors.NewInvalidRequest(fmt.Sprintf("kind must be portfolio or story, got %q", input.Kind))), nil
	}
	id := strings.Trim(strings.TrimSpace(input.ID), "/")
	if id == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	path := kind.BasePath() + "/" + id
	st := h.nav.Resolve(ctx, nav.ParseRoute(path))
	if st.NotFound() {
		if st.Err != nil && !errors.Is(st.Err, errors.ErrNotFound) {
			return errorResult(st.Err), nil
		}
		return errorResult(errors.NewNotFound(string(kind), id)), nil
	}

	out := ContentResolveResponse{
		Path:     st.Route.Path,
		Detail:   st.Detail,
		Summary:  st.Summary,
		Previous: st.Previous,
		Next:     st.Next,
	}
	if st.Err != nil {
		out.Warning = st.Err.Error()
	}
	return successResult(out)
}

// HandlePageMeta handles the page_meta tool call.
func (h *Handlers) HandlePageMeta(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PageMetaRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return errorResult(errors.NewInvalidRequest("path is required")), nil
	}

	route := nav.ParseRoute(input.Path)
	target := nav.FollowRedirects(input.Path)
	st := h.nav.Resolve(ctx, target)

	out := PageMetaResponse{
		Path:     target.Path,
		Page:     target.Page,
		NotFound: st.NotFound(),
		Meta:     st.Meta,
		JSONLD:   st.Graph,
	}
	if route.Redirect != "" {
		out.Redirect = target.Path
	}
	if st.Err != nil && !st.NotFound() {
		out.Warning = st.Err.Error()
	}
	if input.IncludeHead {
		doc := head.New()
		if err := doc.Apply(st.Meta, st.Graph); err != nil {
			return errorResult(errors.NewInternal(err)), nil
		}
		markup, err := doc.RenderHead()
		if err != nil {
			return errorResult(errors.NewInternal(err)), nil
		}
		out.Head = markup
	}
	return successResult(out)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var sErr *errors.SiteError
	if errors.As(err, &sErr) {
		message := sErr.Message
		if wrapped := err.Error(); wrapped != sErr.Error() {
			message = strings.TrimSuffix(wrapped, sErr.Error()) + sErr.Message
		}
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": message,
			"status":  sErr.Status,
		}
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	body, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(body)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
