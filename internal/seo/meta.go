package seo

import (
	"strings"

	"github.com/dewco/dewsite/internal/content"
)

const (
	RobotsIndex   = "index, follow, max-snippet:-1, max-image-preview:large, max-video-preview:-1"
	RobotsNoIndex = "noindex, nofollow"

	TypeWebsite = "website"
	TypeArticle = "article"
)

// Field resolution orders. The first non-blank path wins.
var (
	TitlePaths              = []string{"meta.title", "seo.title", "seo_title", "title", "headline", "name"}
	SEODescriptionPaths     = []string{"meta.description", "seo.description", "seo_description"}
	ContentDescriptionPaths = []string{"summary", "overview", "content", "body", "description", "intro"}
	ImagePaths              = []string{"meta.image", "seo.image", "cover", "hero.image", "image"}
	ImageAltPaths           = []string{"meta.image_alt", "seo.image_alt", "image_alt"}
	ModifiedPaths           = []string{"meta.modified", "updated_at", "modified"}
	PublishedPaths          = []string{"meta.published", "snapshot.date", "published_at", "date"}
	KeywordPaths            = []string{"meta.keywords", "seo.keywords", "keywords"}
)

// ArticleMeta holds the article:* fields. Present only for article pages.
type ArticleMeta struct {
	Author        string   `json:"author,omitempty"`
	Section       string   `json:"section,omitempty"`
	PublishedTime string   `json:"published_time,omitempty"`
	ModifiedTime  string   `json:"modified_time,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// PageMeta is the flat head metadata of one page.
type PageMeta struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	URL          string       `json:"url"`
	CanonicalURL string       `json:"canonical_url"`
	Image        string       `json:"image"`
	ImageAlt     string       `json:"image_alt"`
	Keywords     []string     `json:"keywords"`
	Robots       string       `json:"robots"`
	Type         string       `json:"type"`
	Author       string       `json:"author"`
	SiteName     string       `json:"site_name"`
	Locale       string       `json:"locale"`
	Article      *ArticleMeta `json:"article,omitempty"`
}

// IsArticle reports whether the article:* fields apply.
func (m PageMeta) IsArticle() bool {
	return m.Type == TypeArticle && m.Article != nil
}

// MetaTag is one <meta> element keyed by attribute and key.
type MetaTag struct {
	Attr    string
	Key     string
	Content string
}

// Tags lists the single-valued name/property tags of the page in head order.
// Article tags are not included; see Article.
func (m PageMeta) Tags() []MetaTag {
	keywords := strings.Join(m.Keywords, ", ")
	return []MetaTag{
		{"name", "description", m.Description},
		{"name", "keywords", keywords},
		{"name", "author", m.Author},
		{"name", "publisher", m.SiteName},
		{"name", "application-name", m.SiteName},
		{"name", "robots", m.Robots},
		{"name", "googlebot", m.Robots},

		{"property", "og:title", m.Title},
		{"property", "og:description", m.Description},
		{"property", "og:type", m.Type},
		{"property", "og:url", m.URL},
		{"property", "og:image", m.Image},
		{"property", "og:image:alt", m.ImageAlt},
		{"property", "og:site_name", m.SiteName},
		{"property", "og:locale", m.Locale},

		{"name", "twitter:card", "summary_large_image"},
		{"name", "twitter:title", m.Title},
		{"name", "twitter:description", m.Description},
		{"name", "twitter:image", m.Image},
		{"name", "twitter:image:alt", m.ImageAlt},
		{"name", "twitter:url", m.URL},
	}
}

// BuildPageMeta derives the page metadata. detail and summary may be nil.
func BuildPageMeta(site *Site, detail *content.Detail, summary *content.Item, route RouteContext) PageMeta {
	cfg := ConfigFor(route.Page)
	var fields content.Record
	if detail != nil {
		fields = detail.Fields
	}

	rawTitle := pageTitle(cfg, fields, summary, route)
	title := site.FormatTitle(rawTitle)

	description := Truncate(pageDescription(site, cfg, fields, summary), site.MaxDescription)

	img, alt := pageImage(site, detail, summary)
	if alt == "" {
		alt = rawTitle
	}
	if alt == "" {
		alt = site.DefaultTitle
	}

	canonicalPath := CanonicalPath(route, detail, summary)
	urlPath := route.Path
	if urlPath == "" {
		urlPath = canonicalPath
	}

	keywords := append([]string{}, site.DefaultKeywords...)
	keywords = append(keywords, cfg.Keywords...)
	for _, p := range KeywordPaths {
		if ks := fields.Strings(p); len(ks) > 0 {
			keywords = append(keywords, ks...)
			break
		}
	}
	tags := contentTags(detail, summary)
	keywords = append(keywords, tags...)

	robots := RobotsIndex
	if noIndex(route, detail, summary) {
		robots = RobotsNoIndex
	}

	author := site.Author
	if a := fields.FirstString("meta.author", "author"); a != "" {
		author = a
	}

	meta := PageMeta{
		Title:        title,
		Description:  description,
		URL:          site.URL(urlPath),
		CanonicalURL: CanonicalURL(site.Origin, canonicalPath),
		Image:        site.URL(img),
		ImageAlt:     NormalizeText(alt),
		Keywords:     UniqueKeywords(keywords),
		Robots:       robots,
		Type:         TypeWebsite,
		Author:       author,
		SiteName:     site.Name,
		Locale:       site.Locale,
	}

	if route.Page == PageStoryDetail && (detail != nil || summary != nil) {
		published, modified := timestamps(fields, summary)
		section := fields.FirstString("meta.section", "category")
		if section == "" && summary != nil {
			section = summary.Category
		}
		if section == "" {
			section = cfg.Section
		}
		meta.Type = TypeArticle
		meta.Article = &ArticleMeta{
			Author:        author,
			Section:       section,
			PublishedTime: published,
			ModifiedTime:  modified,
			Tags:          UniqueKeywords(tags),
		}
	}
	return meta
}

// CanonicalPath is the path a page is published under. Detail pages use the
// record's canonical slug so identifier variants share one canonical URL.
func CanonicalPath(route RouteContext, detail *content.Detail, summary *content.Item) string {
	cfg := ConfigFor(route.Page)
	if route.Page.IsDetail() {
		slug := ""
		switch {
		case summary != nil && summary.Slug != "":
			slug = summary.Slug
		case detail != nil && detail.Slug != "":
			slug = detail.Slug
		case route.Slug != "":
			slug = content.CanonicalSlug(route.Slug)
		}
		if slug != "" {
			return cfg.Path + "/" + slug
		}
	}
	if cfg.Path != "" {
		return cfg.Path
	}
	if route.Path != "" {
		return route.Path
	}
	return "/"
}

func pageTitle(cfg PageConfig, fields content.Record, summary *content.Item, route RouteContext) string {
	if route.Page.IsDetail() {
		if t := fields.FirstString(TitlePaths...); t != "" {
			return t
		}
		if summary != nil && summary.Title != "" {
			return summary.Title
		}
	}
	return cfg.Title
}

func pageDescription(site *Site, cfg PageConfig, fields content.Record, summary *content.Item) string {
	if d := fields.FirstString(SEODescriptionPaths...); d != "" {
		return d
	}
	for _, p := range ContentDescriptionPaths {
		if v, ok := fields.Get(p); ok {
			if d := firstParagraph(v); d != "" {
				return d
			}
		}
	}
	if summary != nil {
		for _, d := range []string{summary.Excerpt, summary.Headline, summary.ShortHeadline} {
			if NormalizeText(d) != "" {
				return d
			}
		}
	}
	if cfg.Description != "" {
		return cfg.Description
	}
	return site.DefaultDescription
}

// firstParagraph finds the first non-blank paragraph in a free-form body:
// a string (split on blank lines), a list of paragraphs or blocks, or a
// block object with a text-like field.
func firstParagraph(v any) string {
	switch t := v.(type) {
	case string:
		for _, para := range strings.Split(strings.ReplaceAll(t, "\r\n", "\n"), "\n\n") {
			if p := NormalizeText(para); p != "" {
				return p
			}
		}
	case []any:
		for _, item := range t {
			if p := firstParagraph(item); p != "" {
				return p
			}
		}
	case map[string]any:
		r := content.Record(t)
		for _, k := range []string{"text", "paragraph", "body", "content", "value"} {
			if inner, ok := r.Get(k); ok {
				if p := firstParagraph(inner); p != "" {
					return p
				}
			}
		}
	}
	return ""
}

func pageImage(site *Site, detail *content.Detail, summary *content.Item) (string, string) {
	if detail != nil {
		alt := detail.Fields.FirstString(ImageAltPaths...)
		for _, p := range ImagePaths {
			if img, ok := detail.Fields.ImageAt(p); ok {
				return img.Src, firstNonBlank(alt, img.Alt)
			}
		}
		if imgs := detail.Images(); len(imgs) > 0 {
			return imgs[0].Src, firstNonBlank(alt, imgs[0].Alt)
		}
		if imgs := detail.BodyImages(); len(imgs) > 0 {
			return imgs[0].Src, firstNonBlank(alt, imgs[0].Alt)
		}
	}
	if summary != nil {
		for _, img := range summary.Images {
			if img.Src != "" {
				return img.Src, img.Alt
			}
		}
	}
	return site.DefaultImage, ""
}

func contentTags(detail *content.Detail, summary *content.Item) []string {
	var tags []string
	if detail != nil {
		tags = append(tags, detail.Tags()...)
	}
	if summary != nil {
		tags = append(tags, summary.Tags...)
	}
	return tags
}

// timestamps returns (published, modified). Modified falls back to published.
func timestamps(fields content.Record, summary *content.Item) (string, string) {
	published := fields.FirstString(PublishedPaths...)
	if published == "" && summary != nil {
		published = summary.Date
	}
	modified := fields.FirstString(ModifiedPaths...)
	if modified == "" {
		modified = published
	}
	return published, modified
}

func noIndex(route RouteContext, detail *content.Detail, summary *content.Item) bool {
	if route.NoIndex || route.Page == PageNotFound {
		return true
	}
	return route.Page.IsDetail() && detail == nil && summary == nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
