// Package sitemap generates sitemap.xml and robots.txt from the static
// routes and the published content.
package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dewco/dewsite/internal/content"
	"github.com/dewco/dewsite/internal/errors"
	"github.com/dewco/dewsite/internal/nav"
	"github.com/dewco/dewsite/internal/seo"
)

const (
	// Namespace is the sitemap protocol namespace.
	Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

	SitemapFile = "sitemap.xml"
	RobotsFile  = "robots.txt"
)

// Lister lists published summaries. *content.Repository implements it.
type Lister interface {
	ListSummaries(ctx context.Context, kind content.Kind) ([]content.Item, error)
}

// URL is one <url> entry.
type URL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// URLSet is the sitemap document.
type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// Generator builds sitemaps for one site.
type Generator struct {
	site   *seo.Site
	source Lister
	log    logrus.FieldLogger
}

// NewGenerator creates a Generator. A nil logger uses the standard logger.
func NewGenerator(site *seo.Site, source Lister, log logrus.FieldLogger) *Generator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Generator{site: site, source: source, log: log}
}

// Build collects the static routes followed by every portfolio and story
// detail page, each at its canonical URL. URLs are deduplicated, first
// occurrence wins. A collection that cannot be listed is skipped with a
// warning.
func (g *Generator) Build(ctx context.Context) (*URLSet, error) {
	set := &URLSet{Xmlns: Namespace}
	seen := make(map[string]bool)
	add := func(path, lastmod string) {
		loc := seo.CanonicalURL(g.site.Origin, path)
		if loc == "" || seen[loc] {
			return
		}
		seen[loc] = true
		set.URLs = append(set.URLs, URL{Loc: loc, LastMod: strings.TrimSpace(lastmod)})
	}

	for _, p := range nav.StaticPaths() {
		add(p, "")
	}

	for _, kind := range []content.Kind{content.KindPortfolio, content.KindStory} {
		items, err := g.source.ListSummaries(ctx, kind)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.FromContext("build sitemap", ctx.Err())
			}
			g.log.WithError(err).WithField("kind", kind).Warn("sitemap: skipping collection")
			continue
		}
		for _, it := range items {
			path := nav.DetailPath(it)
			if path == "" {
				continue
			}
			lastmod := ""
			if kind == content.KindStory {
				lastmod = it.Date
			}
			add(path, lastmod)
		}
	}
	return set, nil
}

// WriteTo writes the sitemap with an XML declaration.
func (s *URLSet) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(s); err != nil {
		return 0, err
	}
	buf.WriteByte('\n')
	return buf.WriteTo(w)
}

// Robots returns robots.txt allowing everything and pointing at the sitemap.
func Robots(site *seo.Site) string {
	return fmt.Sprintf("User-agent: *\nAllow: /\n\nSitemap: %s\n", site.URL("/"+SitemapFile))
}

// WriteFiles builds the sitemap and writes sitemap.xml and robots.txt into
// dir. It returns the number of URLs written.
func (g *Generator) WriteFiles(ctx context.Context, dir string) (int, error) {
	set, err := g.Build(ctx)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}

	var buf bytes.Buffer
	if _, err := set.WriteTo(&buf); err != nil {
		return 0, err
	}
	if err := os.WriteFile(filepath.Join(dir, SitemapFile), buf.Bytes(), 0644); err != nil {
		return 0, fmt.Errorf("write sitemap: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, RobotsFile), []byte(Robots(g.site)), 0644); err != nil {
		return 0, fmt.Errorf("write robots: %w", err)
	}

	g.log.WithFields(logrus.Fields{"urls": len(set.URLs), "dir": dir}).Info("sitemap written")
	return len(set.URLs), nil
}
