package seo

import "github.com/dewco/dewsite/internal/content"

// PageType identifies which page template a route renders.
type PageType string

const (
	PageHome            PageType = "home"
	PageAbout           PageType = "about"
	PageContact         PageType = "contact"
	PageTerms           PageType = "terms"
	PagePortfolioList   PageType = "portfolio-list"
	PagePortfolioDetail PageType = "portfolio-detail"
	PageStoryList       PageType = "story-list"
	PageStoryDetail     PageType = "story-detail"
	PageNotFound        PageType = "not-found"
)

// IsDetail reports whether the page shows one content record.
func (p PageType) IsDetail() bool {
	return p == PagePortfolioDetail || p == PageStoryDetail
}

// IsListing reports whether the page enumerates a content list.
func (p PageType) IsListing() bool {
	return p == PagePortfolioList || p == PageStoryList
}

// Kind is the content kind behind a listing or detail page.
func (p PageType) Kind() content.Kind {
	switch p {
	case PagePortfolioList, PagePortfolioDetail:
		return content.KindPortfolio
	case PageStoryList, PageStoryDetail:
		return content.KindStory
	}
	return ""
}

// PageConfig is the fixed copy of a page type: the fallback title and
// description, extra keywords, and where the page sits in the breadcrumb.
type PageConfig struct {
	Title       string
	Description string
	Keywords    []string
	// Section is the breadcrumb parent; empty for top-level pages.
	Section     string
	SectionPath string
	Path        string
	WebPageType string
}

var pageConfigs = map[PageType]PageConfig{
	PageHome: {
		Path:        "/",
		WebPageType: "WebPage",
	},
	PageAbout: {
		Title:       "About",
		Description: "Meet DewCo, the product, design and automation studio of Dipankar Chowdhury, and the way we partner with founders from first idea to launch.",
		Keywords:    []string{"about DewCo", "innovation studio"},
		Path:        "/about",
		WebPageType: "AboutPage",
	},
	PageContact: {
		Title:       "Contact",
		Description: "Start a project with DewCo. Tell us about your product, design or automation challenge and we will get back within two business days.",
		Keywords:    []string{"contact DewCo", "hire product studio"},
		Path:        "/contact",
		WebPageType: "ContactPage",
	},
	PageTerms: {
		Title:       "Terms of Service",
		Description: "The terms that govern use of the DewCo website and its content.",
		Path:        "/terms",
		WebPageType: "WebPage",
	},
	PagePortfolioList: {
		Title:       "Portfolio",
		Description: "Selected product, design and automation work delivered by DewCo for startups and founders.",
		Keywords:    []string{"portfolio", "case studies"},
		Path:        "/portfolio",
		WebPageType: "CollectionPage",
	},
	PageStoryList: {
		Title:       "Stories",
		Description: "Notes, launches and lessons from the DewCo studio.",
		Keywords:    []string{"stories", "blog"},
		Path:        "/stories",
		WebPageType: "CollectionPage",
	},
	PagePortfolioDetail: {
		Title:       "Portfolio",
		Section:     "Portfolio",
		SectionPath: "/portfolio",
		Path:        "/portfolio",
		WebPageType: "WebPage",
	},
	PageStoryDetail: {
		Title:       "Stories",
		Section:     "Stories",
		SectionPath: "/stories",
		Path:        "/stories",
		WebPageType: "WebPage",
	},
	PageNotFound: {
		Title:       "Page Not Found",
		Description: "The page you are looking for could not be found.",
		WebPageType: "WebPage",
	},
}

// ConfigFor returns the fixed copy of a page type.
func ConfigFor(p PageType) PageConfig {
	if c, ok := pageConfigs[p]; ok {
		return c
	}
	return pageConfigs[PageNotFound]
}

// RouteContext is what the synthesizer knows about the current navigation.
type RouteContext struct {
	Page PageType
	// Path is the requested path, used for og:url as given.
	Path string
	// Slug is the normalised route parameter of a detail page.
	Slug string
	// Items is the sorted list shown by a listing page.
	Items   []content.Item
	NoIndex bool
}
