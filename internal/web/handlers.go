package web

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dewco/dewsite/internal/content"
	"github.com/dewco/dewsite/internal/errors"
	"github.com/dewco/dewsite/internal/nav"
	"github.com/dewco/dewsite/internal/seo"
	"github.com/dewco/dewsite/internal/sitemap"
)

// Handlers contains HTTP route handlers for the public site.
type Handlers struct {
	source   Source
	site     *seo.Site
	nav      *nav.Navigator
	sitemap  *sitemap.Generator
	renderer *Renderer
	log      logrus.FieldLogger
}

// bodyPaths are the detail fields holding the long-form body, in priority order.
var bodyPaths = []string{"content", "body", "description", "overview"}

// HandlePage handles GET for every site route.
func (h *Handlers) HandlePage(w http.ResponseWriter, r *http.Request) {
	route := nav.ParseRoute(r.URL.Path)
	if route.Redirect != "" {
		status := http.StatusMovedPermanently
		if route.Redirect == "/" {
			status = http.StatusFound
		}
		http.Redirect(w, r, route.Redirect, status)
		return
	}

	st := h.nav.Resolve(r.Context(), route)
	if st.Err != nil && !errors.Is(st.Err, errors.ErrNotFound) {
		h.log.WithError(st.Err).WithField("path", r.URL.Path).Warn("serving degraded page")
	}

	if st.NotFound() {
		h.renderer.renderDocument(w, http.StatusNotFound, "notfound", NotFoundPageData{
			PageData: h.renderer.pageData(st.Meta.Title, ""),
			Path:     r.URL.Path,
		}, st.Meta, st.Graph)
		return
	}

	name, data := h.pageFor(st)
	h.renderer.renderDocument(w, http.StatusOK, name, data, st.Meta, st.Graph)
}

// pageFor picks the template and builds its data for a resolved state.
func (h *Handlers) pageFor(st nav.State) (string, any) {
	page := st.Route.Page
	switch {
	case page == seo.PageHome:
		data := HomePageData{
			PageData:     h.renderer.pageData(st.Meta.Title, "home"),
			Featured:     st.Items,
			Testimonials: st.Testimonials,
		}
		for _, s := range h.site.Services {
			data.Services = append(data.Services, ServiceView{Name: s.Name, Description: s.Description})
		}
		return "home", data

	case page.IsListing():
		cfg := seo.ConfigFor(page)
		return "list", ListPageData{
			PageData: h.renderer.pageData(st.Meta.Title, navItem(page)),
			Heading:  cfg.Title,
			Intro:    cfg.Description,
			Items:    st.Items,
		}

	case page.IsDetail():
		return "detail", h.detailData(st)
	}

	cfg := seo.ConfigFor(page)
	return "page", StaticPageData{
		PageData:    h.renderer.pageData(st.Meta.Title, navItem(page)),
		Heading:     cfg.Title,
		Description: cfg.Description,
		Email:       h.site.Email,
	}
}

func (h *Handlers) detailData(st nav.State) DetailPageData {
	kind := st.Route.Page.Kind()
	data := DetailPageData{
		PageData:  h.renderer.pageData(st.Meta.Title, navItem(st.Route.Page)),
		Previous:  st.Previous,
		Next:      st.Next,
		BackPath:  kind.BasePath(),
		BackLabel: kind.Label(),
	}

	if s := st.Summary; s != nil {
		data.Heading = s.Title
		data.Headline = s.Headline
		data.Category = s.Category
		data.Date = s.Date
		data.Images = s.Images
		data.Tags = s.Tags
	}

	if d := st.Detail; d != nil {
		f := d.Fields
		if t := f.FirstString(seo.TitlePaths...); t != "" {
			data.Heading = t
		}
		if hl := f.FirstString("headline", "tagline"); hl != "" && hl != data.Heading {
			data.Headline = hl
		}
		if c := f.FirstString("category", "meta.section"); c != "" {
			data.Category = c
		}
		if dt := f.FirstString(seo.PublishedPaths...); dt != "" {
			data.Date = dt
		}
		if imgs := d.Images(); len(imgs) > 0 {
			data.Images = imgs
		}
		data.Images = append(data.Images, d.BodyImages()...)
		data.TechStack = d.TechStack()
		if tags := d.Tags(); len(tags) > 0 {
			data.Tags = tags
		}
		data.Body = renderMarkdown(bodyMarkdown(f))
	}
	return data
}

// bodyMarkdown returns the detail body as markdown. A list of paragraphs
// is joined with blank lines.
func bodyMarkdown(f content.Record) string {
	for _, p := range bodyPaths {
		if s := f.String(p); strings.TrimSpace(s) != "" {
			return s
		}
		if paras := f.Strings(p); len(paras) > 0 {
			return strings.Join(paras, "\n\n")
		}
	}
	return ""
}

func navItem(p seo.PageType) string {
	switch p {
	case seo.PagePortfolioList, seo.PagePortfolioDetail:
		return "portfolio"
	case seo.PageStoryList, seo.PageStoryDetail:
		return "stories"
	case seo.PageAbout:
		return "about"
	case seo.PageContact:
		return "contact"
	}
	return ""
}

// metaResponse is the body of GET /api/meta.
type metaResponse struct {
	Meta   seo.PageMeta   `json:"meta"`
	JSONLD *seo.Graph     `json:"jsonld"`
	State  nav.State      `json:"state"`
	Error  map[string]any `json:"error,omitempty"`
}

// HandleMeta handles GET /api/meta?path= and returns the resolved metadata
// of a path without rendering it.
func (h *Handlers) HandleMeta(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("path is required"))
		return
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	st := h.nav.ResolvePath(r.Context(), path)
	resp := metaResponse{Meta: st.Meta, JSONLD: st.Graph, State: st}
	if st.Err != nil {
		var sErr *errors.SiteError
		if !errors.As(st.Err, &sErr) {
			sErr = errors.NewInternal(st.Err)
		}
		resp.Error = errorBody(sErr)
	}

	status := http.StatusOK
	if st.NotFound() {
		status = http.StatusNotFound
	}
	renderJSON(w, status, resp)
}

// HandleSitemap handles GET /sitemap.xml.
func (h *Handlers) HandleSitemap(w http.ResponseWriter, r *http.Request) {
	set, err := h.sitemap.Build(r.Context())
	if err != nil {
		var sErr *errors.SiteError
		if !errors.As(err, &sErr) {
			sErr = errors.NewInternal(err)
		}
		h.renderer.renderError(w, r, sErr)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = set.WriteTo(w)
}

// HandleRobots handles GET /robots.txt.
func (h *Handlers) HandleRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sitemap.Robots(h.site)))
}
