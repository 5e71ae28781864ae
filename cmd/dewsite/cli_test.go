package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/dewco/dewsite/internal/config"
	"github.com/dewco/dewsite/internal/content"
	"github.com/dewco/dewsite/internal/db"
	"github.com/dewco/dewsite/internal/ops"
)

// setupTestApp creates a seeded store in a temporary base directory.
func setupTestApp(t *testing.T, cfg *config.Config) *app {
	t.Helper()
	dir := t.TempDir()
	database, err := db.Init(dir)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	log, _ := test.NewNullLogger()
	a := newApp(database, cfg, dir, log)
	t.Cleanup(a.close)

	seed := []content.Document{
		{Collection: content.CollectionPortfolios, Key: "p1", Data: content.Record{
			"id": "acme_rebrand", "name": "Acme Rebrand", "sort_order": float64(1),
		}},
		{Collection: content.CollectionPortfolios, Key: "p2", Data: content.Record{
			"id": "beta_app", "name": "Beta App", "sort_order": float64(2),
		}},
		{Collection: content.CollectionProjects, Key: "acme_rebrand", Data: content.Record{
			"name": "Acme Rebrand", "description": "A brand system for Acme.",
		}},
		{Collection: content.CollectionStories, Key: "s1", Data: content.Record{
			"id": "launch-day", "title": "Launch Day", "date": "2024-03-01",
		}},
		{Collection: content.CollectionTestimonials, Key: "t1", Data: content.Record{
			"name": "Ana", "text": "On time.",
		}},
	}
	require.NoError(t, a.store.PutMany(context.Background(), seed))
	return a
}

// run executes args against a fresh CLI app and returns what it printed.
func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cliApp := newCLIApp(a)
	cliApp.Writer = &buf
	cliApp.ErrWriter = &bytes.Buffer{}
	err := cliApp.Run(append([]string{"dewsite"}, args...))
	return buf.String(), err
}

func TestCLIList(t *testing.T) {
	a := setupTestApp(t, config.DefaultConfig())

	out, err := run(t, a, "list", "portfolio")
	require.NoError(t, err)
	var items []content.Item
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	require.Equal(t, "Acme Rebrand", items[0].Title)
	require.Equal(t, "/portfolio/acme-rebrand", items[0].Link)

	out, err = run(t, a, "list", "--limit=1", "portfolio")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)

	out, err = run(t, a, "list", "testimonials")
	require.NoError(t, err)
	var ts []content.Testimonial
	require.NoError(t, json.Unmarshal([]byte(out), &ts))
	require.Len(t, ts, 1)
	require.Equal(t, "Ana", ts[0].Name)

	_, err = run(t, a, "list", "authors")
	require.Error(t, err)
}

func TestCLIMeta(t *testing.T) {
	a := setupTestApp(t, config.DefaultConfig())

	out, err := run(t, a, "meta", "/portfolio/Acme_Rebrand")
	require.NoError(t, err)

	var got struct {
		Path string         `json:"path"`
		Meta map[string]any `json:"meta"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, "https://dewco.tech/portfolio/acme-rebrand", got.Meta["canonical_url"])
	require.True(t, strings.HasSuffix(got.Meta["title"].(string), "| DewCo"))

	_, err = run(t, a, "meta")
	require.Error(t, err)
}

func TestCLIHead(t *testing.T) {
	a := setupTestApp(t, config.DefaultConfig())

	shell := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(shell, []byte(`<html><head><title>Loading</title></head><body><main>app</main></body></html>`), 0644))

	out, err := run(t, a, "head", "--shell", shell, "/stories/launch-day")
	require.NoError(t, err)
	require.Contains(t, out, "Launch Day")
	require.Contains(t, out, "article:published_time")
	require.NotContains(t, out, "<main>")

	out, err = run(t, a, "head", "--full", "--shell", shell, "/about")
	require.NoError(t, err)
	require.Contains(t, out, "<main>app</main>")
	require.NotContains(t, out, "Loading")
}

func TestCLIExportImport(t *testing.T) {
	a := setupTestApp(t, config.DefaultConfig())
	dir := filepath.Join(t.TempDir(), "seed")

	out, err := run(t, a, "export", "--dir", dir)
	require.NoError(t, err)
	var exported ops.ExportOutput
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	require.Equal(t, 5, exported.Count)

	other := setupTestApp(t, config.DefaultConfig())
	_, err = other.store.DeleteCollection(context.Background(), content.CollectionPortfolios)
	require.NoError(t, err)

	out, err = run(t, other, "import", "--path", dir, "--replace")
	require.NoError(t, err)
	var imported ops.ImportOutput
	require.NoError(t, json.Unmarshal([]byte(out), &imported))
	require.Equal(t, 5, imported.Imported)

	n, err := other.store.Count(context.Background(), content.CollectionPortfolios)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = run(t, a, "import")
	require.Error(t, err, "--path is required")
}

func TestCLIImport_InvalidatesSnapshotCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.DefaultConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	a := setupTestApp(t, cfg)
	require.NotNil(t, a.cache)

	// Listing fills the snapshot cache.
	_, err := run(t, a, "list", "stories")
	require.NoError(t, err)
	require.True(t, mr.Exists("dewsite:collection:stories"))

	seed := filepath.Join(t.TempDir(), "stories.json")
	require.NoError(t, os.WriteFile(seed, []byte(`[{"id": "fresh", "title": "Fresh"}]`), 0644))
	_, err = run(t, a, "import", "--path", seed, "--replace")
	require.NoError(t, err)
	require.False(t, mr.Exists("dewsite:collection:stories"))

	out, err := run(t, a, "list", "stories")
	require.NoError(t, err)
	require.Contains(t, out, "Fresh")
	require.NotContains(t, out, "Launch Day")
}

func TestNewApp_UnreachableRedis(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RedisURL = "redis://127.0.0.1:1"
	a := setupTestApp(t, cfg)
	require.Nil(t, a.cache)
	require.Nil(t, a.invalidator())

	_, err := run(t, a, "list", "stories")
	require.NoError(t, err)
}

func TestCLIPrerender(t *testing.T) {
	a := setupTestApp(t, config.DefaultConfig())
	outDir := filepath.Join(t.TempDir(), "dist")

	out, err := run(t, a, "prerender", "--out", outDir)
	require.NoError(t, err)
	var got ops.PrerenderOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Pages, 9)

	for _, p := range []string{"index.html", "portfolio/beta-app/index.html", "sitemap.xml", "robots.txt"} {
		_, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(p)))
		require.NoError(t, err, p)
	}
}

func TestCLISitemap(t *testing.T) {
	a := setupTestApp(t, config.DefaultConfig())

	out, err := run(t, a, "sitemap")
	require.NoError(t, err)
	require.Contains(t, out, "<loc>https://dewco.tech/</loc>")
	require.Contains(t, out, "<loc>https://dewco.tech/stories/launch-day</loc>")

	dir := t.TempDir()
	_, err = run(t, a, "sitemap", "--out", dir)
	require.NoError(t, err)
	robots, err := os.ReadFile(filepath.Join(dir, "robots.txt"))
	require.NoError(t, err)
	require.Contains(t, string(robots), "Sitemap: https://dewco.tech/sitemap.xml")
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{"no args", []string{"dewsite"}, false},
		{"serve command", []string{"dewsite", "serve"}, true},
		{"prerender command", []string{"dewsite", "prerender"}, true},
		{"mcp command", []string{"dewsite", "mcp"}, true},
		{"help flag", []string{"dewsite", "--help"}, true},
		{"short version flag", []string{"dewsite", "-v"}, true},
		{"unknown arg defaults to MCP", []string{"dewsite", "--unknown"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isCLIMode(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestIsHelpOrVersion tests the isHelpOrVersion function.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		args     []string
		expected bool
	}{
		{[]string{"dewsite"}, false},
		{[]string{"dewsite", "help"}, true},
		{[]string{"dewsite", "-h"}, true},
		{[]string{"dewsite", "--version"}, true},
		{[]string{"dewsite", "serve"}, false},
	}
	for _, tt := range tests {
		oldArgs := os.Args
		os.Args = tt.args
		result := isHelpOrVersion()
		os.Args = oldArgs
		if result != tt.expected {
			t.Errorf("isHelpOrVersion(%v) = %v, want %v", tt.args, result, tt.expected)
		}
	}
}

func TestBaseDir(t *testing.T) {
	t.Setenv("DEWSITE_HOME", "/srv/dewsite")
	dir, err := baseDir()
	require.NoError(t, err)
	require.Equal(t, "/srv/dewsite", dir)

	t.Setenv("DEWSITE_HOME", "")
	dir, err = baseDir()
	require.NoError(t, err)
	require.Equal(t, ".dewsite", filepath.Base(dir))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("debug", &buf)
	require.Equal(t, logrus.DebugLevel, log.GetLevel())

	log = newLogger("loud", &buf)
	require.Equal(t, logrus.InfoLevel, log.GetLevel())
	require.Contains(t, buf.String(), "unknown log level")

	require.Equal(t, logrus.InfoLevel, newLogger("", &buf).GetLevel())
}

func TestHelpWithoutApp(t *testing.T) {
	var buf bytes.Buffer
	cliApp := newCLIApp(nil)
	cliApp.Writer = &buf
	require.NoError(t, cliApp.Run([]string{"dewsite", "--help"}))
	for _, name := range []string{"serve", "import", "export", "list", "meta", "head", "prerender", "sitemap", "mcp"} {
		require.Contains(t, buf.String(), name)
	}
}
