package nav

import (
	"testing"

	"github.com/dewco/dewsite/internal/content"
	"github.com/dewco/dewsite/internal/seo"
)

func TestParseRoute(t *testing.T) {
	tests := []struct {
		path     string
		page     seo.PageType
		slug     string
		redirect string
	}{
		{"/", seo.PageHome, "", ""},
		{"", seo.PageHome, "", ""},
		{"/index.html", seo.PageHome, "", ""},
		{"/about", seo.PageAbout, "", ""},
		{"/About.html", seo.PageAbout, "", ""},
		{"/contact/", seo.PageContact, "", ""},
		{"/terms?ref=footer", seo.PageTerms, "", ""},
		{"/portfolio", seo.PagePortfolioList, "", ""},
		{"/portfolio/", seo.PagePortfolioList, "", ""},
		{"/portfolio-details", seo.PagePortfolioDetail, "", ""},
		{"/stories", seo.PageStoryList, "", ""},
		{"/portfolio/Acme_Rebrand", seo.PagePortfolioDetail, "acme_rebrand", ""},
		{"/portfolio/acme-rebrand.html", seo.PagePortfolioDetail, "acme-rebrand", ""},
		{"/stories/launch-day/", seo.PageStoryDetail, "launch-day", ""},
		{"/story/launch-day", seo.PageStoryDetail, "launch-day", "/stories/launch-day"},
		{"/story-details/launch-day", seo.PageStoryDetail, "launch-day", "/stories/launch-day"},
		{"/story-details", seo.PageStoryList, "", "/stories"},
		{"/portfolio/a/b", seo.PageNotFound, "", ""},
		{"/nowhere", seo.PageHome, "", "/"},
		{"/blog/post", seo.PageHome, "", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r := ParseRoute(tt.path)
			if r.Page != tt.page {
				t.Errorf("Page = %q, want %q", r.Page, tt.page)
			}
			if r.Slug != tt.slug {
				t.Errorf("Slug = %q, want %q", r.Slug, tt.slug)
			}
			if r.Redirect != tt.redirect {
				t.Errorf("Redirect = %q, want %q", r.Redirect, tt.redirect)
			}
		})
	}
}

func TestParseRoute_KeepsRequestedPath(t *testing.T) {
	r := ParseRoute("/portfolio/Acme?x=1")
	if r.Path != "/portfolio/Acme?x=1" {
		t.Errorf("Path = %q", r.Path)
	}
	if r.Param != "acme" {
		t.Errorf("Param = %q", r.Param)
	}
}

func TestDetailPath(t *testing.T) {
	it := content.Item{Kind: content.KindStory, Slug: "launch-day", Link: "/legacy/launch"}
	if got := DetailPath(it); got != "/stories/launch-day" {
		t.Errorf("DetailPath = %q", got)
	}
	it.Slug = ""
	if got := DetailPath(it); got != "/legacy/launch" {
		t.Errorf("DetailPath without slug = %q", got)
	}
}

func TestStaticPaths(t *testing.T) {
	for _, p := range StaticPaths() {
		r := ParseRoute(p)
		if r.Redirect != "" || r.Page == seo.PageNotFound || r.Page.IsDetail() {
			t.Errorf("%s parses to %+v", p, r)
		}
	}
}
