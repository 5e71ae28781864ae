// Package nav turns a requested path into a resolved page: route parsing,
// content lookup, metadata synthesis and, for live navigation, applying the
// result to a shared head document with last-navigation-wins ordering.
package nav

import (
	"strings"

	"github.com/dewco/dewsite/internal/content"
	"github.com/dewco/dewsite/internal/seo"
)

// Route is a parsed request path.
type Route struct {
	Page seo.PageType `json:"page"`
	// Path is the path as requested, query included.
	Path string `json:"path"`
	// Param is the raw detail identifier, lower-cased.
	Param string `json:"param,omitempty"`
	// Slug is Param normalised.
	Slug string `json:"slug,omitempty"`
	// Redirect is set when the path is an alias of another route.
	Redirect string `json:"redirect,omitempty"`
}

// staticPages maps a normalised single-segment path to its page.
var staticPages = map[string]seo.PageType{
	content.DefaultSlug: seo.PageHome,
	"about":             seo.PageAbout,
	"contact":           seo.PageContact,
	"terms":             seo.PageTerms,
	"portfolio":         seo.PagePortfolioList,
	"portfolio-details": seo.PagePortfolioDetail,
	"stories":           seo.PageStoryList,
}

// staticRedirects maps a normalised single-segment path to another path.
var staticRedirects = map[string]string{
	"story-details": "/stories",
}

// detailSections maps the first path segment of a detail route to its page.
var detailSections = map[string]seo.PageType{
	"portfolio": seo.PagePortfolioDetail,
	"stories":   seo.PageStoryDetail,
}

// detailAliases redirect legacy detail paths to /stories/{id}.
var detailAliases = map[string]string{
	"story":         "/stories/",
	"story-details": "/stories/",
}

// ParseRoute maps a request path to a route. Unknown paths redirect home;
// identifiers spanning more than one segment are not found.
func ParseRoute(rawPath string) Route {
	r := Route{Path: rawPath}
	if r.Path == "" {
		r.Path = "/"
	}

	p := strings.TrimSpace(rawPath)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	trimmed := strings.Trim(p, "/")

	first, rest, hasRest := strings.Cut(trimmed, "/")
	if !hasRest {
		key := content.NormalizeSlug(first)
		if page, ok := staticPages[key]; ok {
			r.Page = page
			return r
		}
		if to, ok := staticRedirects[key]; ok {
			r.Page = seo.PageStoryList
			r.Redirect = to
			return r
		}
		r.Page = seo.PageHome
		r.Redirect = "/"
		return r
	}

	section := strings.ToLower(first)
	param := strings.ToLower(strings.TrimSpace(rest))

	if page, ok := detailSections[section]; ok {
		r.Param = param
		if content.IsNested(param) {
			r.Page = seo.PageNotFound
			return r
		}
		r.Page = page
		r.Slug = content.NormalizeSlug(param)
		return r
	}
	if prefix, ok := detailAliases[section]; ok {
		r.Param = param
		if content.IsNested(param) {
			r.Page = seo.PageNotFound
			return r
		}
		r.Page = seo.PageStoryDetail
		r.Slug = content.NormalizeSlug(param)
		r.Redirect = prefix + rest
		return r
	}

	r.Page = seo.PageHome
	r.Redirect = "/"
	return r
}

// StaticPaths lists the paths of every page that needs no content record,
// in navigation order.
func StaticPaths() []string {
	return []string{"/", "/about", "/portfolio", "/stories", "/contact", "/terms"}
}

// DetailPath is the canonical path of an item's detail page.
func DetailPath(it content.Item) string {
	if it.Slug == "" {
		return it.Link
	}
	return it.Kind.BasePath() + "/" + it.Slug
}
