package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"

	"github.com/dewco/dewsite/internal/content"
	"github.com/dewco/dewsite/internal/errors"
	"github.com/dewco/dewsite/internal/head"
	"github.com/dewco/dewsite/internal/nav"
	"github.com/dewco/dewsite/internal/seo"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "home", "about", "portfolio", "stories", "contact"
	Site    *seo.Site
}

// HomePageData is the template data for the home page.
type HomePageData struct {
	PageData
	Featured     []content.Item
	Testimonials []content.Testimonial
	Services     []ServiceView
}

// ServiceView is one service card on the home page.
type ServiceView struct {
	Name        string
	Description string
}

// StaticPageData is the template data for about, contact and terms.
type StaticPageData struct {
	PageData
	Heading     string
	Description string
	Email       string
}

// ListPageData is the template data for portfolio and story listings.
type ListPageData struct {
	PageData
	Heading string
	Intro   string
	Items   []content.Item
}

// DetailPageData is the template data for a portfolio or story detail page.
type DetailPageData struct {
	PageData
	Heading   string
	Headline  string
	Category  string
	Date      string
	Body      template.HTML
	Images    []content.Image
	TechStack []string
	Tags      []string
	Previous  *content.Item
	Next      *content.Item
	BackPath  string
	BackLabel string
}

// NotFoundPageData is the template data for the 404 page.
type NotFoundPageData struct {
	PageData
	Path string
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	site      *seo.Site
	version   string
	log       logrus.FieldLogger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, site *seo.Site, version string, log logrus.FieldLogger) *Renderer {
	funcMap := template.FuncMap{
		"detailPath": itemPath,
		"formatDate": formatDate,
		"year":       func() int { return time.Now().Year() },
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"home":     "home.html",
		"page":     "page.html",
		"list":     "list.html",
		"detail":   "detail.html",
		"notfound": "notfound.html",
		"error":    "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		site:      site,
		version:   version,
		log:       log,
	}
}

func (r *Renderer) pageData(title, navItem string) PageData {
	return PageData{Title: title, Version: r.version, Nav: navItem, Site: r.site}
}

// execute renders the layout of a named page into a buffer.
func (r *Renderer) execute(name string, data any) (*bytes.Buffer, error) {
	t, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, fmt.Errorf("execute template %q: %w", name, err)
	}
	return &buf, nil
}

// renderDocument renders a page and reconciles its head with meta and the
// JSON-LD graph before writing it.
func (r *Renderer) renderDocument(w http.ResponseWriter, status int, name string, data any, meta seo.PageMeta, g *seo.Graph) {
	buf, err := r.execute(name, data)
	if err != nil {
		r.log.WithError(err).Error("render page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	doc, err := head.Parse(buf)
	if err != nil {
		r.log.WithError(err).Error("parse rendered page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if err := doc.Apply(meta, g); err != nil {
		r.log.WithError(err).Error("apply page metadata")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var out bytes.Buffer
	if err := doc.Render(&out); err != nil {
		r.log.WithError(err).Error("serialise page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(out.Bytes())
}

// renderPageStatus renders a named page template without metadata
// reconciliation.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	buf, err := r.execute(name, data)
	if err != nil {
		r.log.WithError(err).Error("render page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var sErr *errors.SiteError
	if !stderrors.As(err, &sErr) {
		sErr = errors.NewInternal(err)
	}

	status := sErr.Status
	message := sErr.Message
	if status >= http.StatusInternalServerError {
		r.log.WithError(err).WithField("path", req.URL.Path).Error("request error")
	}

	// JSON request
	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{"error": errorBody(sErr)})
		return
	}

	r.renderPageStatus(w, status, "error", ErrorPageData{
		PageData:   r.pageData(fmt.Sprintf("Error %d", status), ""),
		StatusCode: status,
		Message:    message,
	})
}

func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(req.URL.Path, "/api/")
}

func errorBody(e *errors.SiteError) map[string]any {
	body := map[string]any{
		"code":    string(e.Code),
		"message": e.Message,
		"status":  e.Status,
	}
	if len(e.Details) > 0 {
		body["details"] = e.Details
	}
	return body
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark. Raw HTML in
// the source is not passed through.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// itemPath is nav.DetailPath for an item or an item pointer.
func itemPath(v any) string {
	switch it := v.(type) {
	case content.Item:
		return nav.DetailPath(it)
	case *content.Item:
		if it != nil {
			return nav.DetailPath(*it)
		}
	}
	return ""
}

// formatDate renders an ISO date as "Jan 2, 2006"; anything else is shown as is.
func formatDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return s
}
