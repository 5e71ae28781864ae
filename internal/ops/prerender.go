package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dewco/dewsite/internal/content"
	"github.com/dewco/dewsite/internal/errors"
	"github.com/dewco/dewsite/internal/head"
	"github.com/dewco/dewsite/internal/nav"
	"github.com/dewco/dewsite/internal/seo"
	"github.com/dewco/dewsite/internal/sitemap"
)

// PrerenderInput contains parameters for the Prerender operation.
type PrerenderInput struct {
	OutDir    string        // required; created if missing
	ShellPath string        // optional HTML shell every page starts from
	Paths     []string      // optional, default: every static and detail route
	Timeout   time.Duration // per-page resolution bound; zero uses nav.DefaultTimeout
}

// PrerenderOutput contains the result of the Prerender operation.
type PrerenderOutput struct {
	OutDir      string         `json:"out_dir"`
	Pages       []RenderedPage `json:"pages"`
	SitemapURLs int            `json:"sitemap_urls"`
}

// RenderedPage is one written page.
type RenderedPage struct {
	Path   string `json:"path"`
	File   string `json:"file"`
	Title  string `json:"title"`
	Status string `json:"status"` // ok, degraded or not_found
}

// Prerender writes a static HTML file per route. All routes are navigated
// in turn through one navigator sharing one document, so each file is the
// shell with exactly that route's head applied over the previous one.
// sitemap.xml and robots.txt are written alongside.
func Prerender(ctx context.Context, source nav.ContentSource, site *seo.Site, log logrus.FieldLogger, input PrerenderInput) (*PrerenderOutput, error) {
	if err := ValidatePath(input.OutDir, PathCheckWrite); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(input.OutDir, 0755); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create output directory: %w", err))
	}

	doc, err := LoadShell(input.ShellPath)
	if err != nil {
		return nil, err
	}

	opts := []nav.Option{nav.WithHead(doc), nav.WithLogger(log)}
	if input.Timeout > 0 {
		opts = append(opts, nav.WithTimeout(input.Timeout))
	}
	navigator := nav.NewNavigator(source, site, opts...)

	paths := input.Paths
	if len(paths) == 0 {
		paths, err = Routes(ctx, source)
		if err != nil {
			return nil, err
		}
	}

	out := &PrerenderOutput{OutDir: input.OutDir, Pages: []RenderedPage{}}
	for _, p := range paths {
		file, err := outputFile(input.OutDir, p)
		if err != nil {
			return nil, err
		}

		st, err := navigator.Navigate(ctx, p)
		if err != nil {
			return nil, err
		}
		status := "ok"
		switch {
		case st.NotFound():
			status = "not_found"
		case st.Err != nil:
			status = "degraded"
			log.WithError(st.Err).WithField("path", p).Warn("prerendered with fallback metadata")
		}

		if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := writeFileAtomic(file, []byte(doc.String()), 0644); err != nil {
			return nil, err
		}
		out.Pages = append(out.Pages, RenderedPage{Path: p, File: file, Title: doc.Title(), Status: status})
	}

	n, err := sitemap.NewGenerator(site, source, log).WriteFiles(ctx, input.OutDir)
	if err != nil {
		return nil, err
	}
	out.SitemapURLs = n
	return out, nil
}

// Routes lists every static route followed by each portfolio and story
// detail route, without duplicates.
func Routes(ctx context.Context, source nav.ContentSource) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range nav.StaticPaths() {
		add(p)
	}
	for _, kind := range []content.Kind{content.KindPortfolio, content.KindStory} {
		items, err := source.ListSummaries(ctx, kind)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if it.Slug != "" {
				add(nav.DetailPath(it))
			}
		}
	}
	return out, nil
}

// LoadShell parses the HTML shell at path. An empty path yields an empty
// document.
func LoadShell(path string) (*head.Document, error) {
	if path == "" {
		return head.New(), nil
	}
	f, err := openFileNoFollowRead(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := head.Parse(f)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid shell %s: %v", path, err))
	}
	return doc, nil
}

// outputFile maps a route path to <outDir>/<segments>/index.html.
func outputFile(outDir, path string) (string, error) {
	p := strings.Trim(path, "/")
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if containsTraversal(p) {
		return "", errors.NewInvalidRequest(fmt.Sprintf("route %q escapes the output directory", path))
	}
	parts := []string{outDir}
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			parts = append(parts, SanitizeForFilename(seg))
		}
	}
	parts = append(parts, "index.html")
	return filepath.Join(parts...), nil
}
