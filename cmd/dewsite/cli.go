package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dewco/dewsite/internal/content"
	"github.com/dewco/dewsite/internal/errors"
	"github.com/dewco/dewsite/internal/mcp"
	"github.com/dewco/dewsite/internal/nav"
	"github.com/dewco/dewsite/internal/ops"
	"github.com/dewco/dewsite/internal/seo"
	"github.com/dewco/dewsite/internal/sitemap"
	"github.com/dewco/dewsite/internal/web"
)

// newCLIApp creates the CLI application with all commands. a may be nil
// for --help and --version.
func newCLIApp(a *app) *cli.App {
	cliApp := &cli.App{
		Name:    "dewsite",
		Usage:   "DewCo marketing site: content, page metadata and publishing",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(a),
			importCmd(a),
			exportCmd(a),
			listCmd(a),
			metaCmd(a),
			headCmd(a),
			prerenderCmd(a),
			sitemapCmd(a),
			mcpCmd(a),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	cliApp.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return cliApp
}

func (a *app) navigator(opts ...nav.Option) *nav.Navigator {
	base := []nav.Option{nav.WithLogger(a.log)}
	if t := a.cfg.FetchTimeout(); t > 0 {
		base = append(base, nav.WithTimeout(t))
	}
	return nav.NewNavigator(a.repo, a.site, append(base, opts...)...)
}

// serveCmd creates the serve command.
func serveCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the site over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8080, Usage: "Port to listen on"},
			&cli.StringFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Seed directory to re-import on change"},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()

			if dir := c.String("watch"); dir != "" {
				input := ops.ImportInput{Path: dir, Replace: true}
				if _, err := ops.Reload(ctx, a.store, input, a.repo, a.invalidator()); err != nil {
					return outputError(err)
				}
				go func() {
					err := ops.Watch(ctx, dir, ops.DefaultDebounce, a.log, func(ctx context.Context) error {
						_, err := ops.Reload(ctx, a.store, input, a.repo, a.invalidator())
						return err
					})
					if err != nil {
						a.log.WithError(err).Error("seed watcher stopped")
					}
				}()
			}

			srv := web.NewServer(a.repo, a.site, a.navigator(), a.log, Version, c.String("bind"), c.Int("port"))
			if err := web.Run(srv, a.log); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// importCmd creates the import command.
func importCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import seed files (JSON or YAML) into the content store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Seed file or directory"},
			&cli.BoolFlag{Name: "replace", Usage: "Replace each imported collection instead of upserting"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Reload(c.Context, a.store, ops.ImportInput{
				Path:    c.String("path"),
				Replace: c.Bool("replace"),
			}, a.repo, a.invalidator())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export collections as JSON seed files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Output directory (default: ~/.dewsite/exports/<timestamp>)"},
			&cli.StringSliceFlag{Name: "collection", Aliases: []string{"c"}, Usage: "Collection to export (repeatable; default: all)"},
		},
		Action: func(c *cli.Context) error {
			dir := c.String("dir")
			if dir == "" {
				dir = ops.DefaultExportDir(a.baseDir, time.Now())
			}
			output, err := ops.Export(c.Context, a.store, ops.ExportInput{
				Dir:         dir,
				Collections: c.StringSlice("collection"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// listCmd creates the list command.
func listCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List portfolio projects, stories or testimonials in display order",
		ArgsUsage: "<portfolio|story|testimonial>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum items to return (default: all)"},
		},
		Action: func(c *cli.Context) error {
			kind, ok := content.ParseKind(c.Args().First())
			if !ok {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("kind must be portfolio, story or testimonial, got %q", c.Args().First())))
			}
			limit := c.Int("limit")
			if limit < 0 {
				return outputError(errors.NewInvalidRequest("limit must not be negative"))
			}

			if kind == content.KindTestimonial {
				ts, err := a.repo.ListTestimonials(c.Context)
				if err != nil {
					return outputError(err)
				}
				if limit > 0 && len(ts) > limit {
					ts = ts[:limit]
				}
				return outputJSON(c.App.Writer, ts)
			}

			items, err := a.repo.ListSummaries(c.Context, kind)
			if err != nil {
				return outputError(err)
			}
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			return outputJSON(c.App.Writer, items)
		},
	}
}

// metaOutput is the JSON printed by the meta command.
type metaOutput struct {
	Path   string       `json:"path"`
	Page   seo.PageType `json:"page"`
	Meta   seo.PageMeta `json:"meta"`
	JSONLD *seo.Graph   `json:"jsonld"`
	Error  string       `json:"error,omitempty"`
}

// metaCmd creates the meta command.
func metaCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "meta",
		Usage:     "Print the page metadata and JSON-LD a path resolves to",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return outputError(errors.NewInvalidRequest("path is required"))
			}
			st := a.navigator().ResolvePath(c.Context, path)
			out := metaOutput{Path: st.Route.Path, Page: st.Route.Page, Meta: st.Meta, JSONLD: st.Graph}
			if st.Err != nil {
				out.Error = st.Err.Error()
			}
			return outputJSON(c.App.Writer, out)
		},
	}
}

// headCmd creates the head command.
func headCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "head",
		Usage:     "Print the HTML a path's metadata produces when applied to a shell",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "shell", Aliases: []string{"s"}, Usage: "HTML shell to apply the metadata to"},
			&cli.BoolFlag{Name: "full", Usage: "Print the whole document instead of only <head>"},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return outputError(errors.NewInvalidRequest("path is required"))
			}
			doc, err := ops.LoadShell(c.String("shell"))
			if err != nil {
				return outputError(err)
			}
			st, err := a.navigator(nav.WithHead(doc)).Navigate(c.Context, path)
			if err != nil {
				return outputError(err)
			}
			if st.Err != nil {
				a.log.WithError(st.Err).WithField("path", path).Warn("rendered with fallback metadata")
			}

			if c.Bool("full") {
				return doc.Render(c.App.Writer)
			}
			markup, err := doc.RenderHead()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			_, err = fmt.Fprintln(c.App.Writer, markup)
			return err
		},
	}
}

// prerenderCmd creates the prerender command.
func prerenderCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "prerender",
		Usage: "Write a static HTML file per route, plus sitemap.xml and robots.txt",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true, Usage: "Output directory"},
			&cli.StringFlag{Name: "shell", Aliases: []string{"s"}, Usage: "HTML shell every page starts from"},
			&cli.StringSliceFlag{Name: "path", Usage: "Route to render (repeatable; default: every route)"},
			&cli.DurationFlag{Name: "timeout", Usage: "Per-page resolution bound (default: fetch_timeout_ms)"},
		},
		Action: func(c *cli.Context) error {
			timeout := c.Duration("timeout")
			if timeout == 0 {
				timeout = a.cfg.FetchTimeout()
			}
			output, err := ops.Prerender(c.Context, a.repo, a.site, a.log, ops.PrerenderInput{
				OutDir:    c.String("out"),
				ShellPath: c.String("shell"),
				Paths:     c.StringSlice("path"),
				Timeout:   timeout,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// sitemapCmd creates the sitemap command.
func sitemapCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "sitemap",
		Usage: "Print sitemap.xml, or write sitemap.xml and robots.txt to a directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Directory to write sitemap.xml and robots.txt into"},
		},
		Action: func(c *cli.Context) error {
			gen := sitemap.NewGenerator(a.site, a.repo, a.log)
			if dir := c.String("out"); dir != "" {
				if err := ops.ValidatePath(dir, ops.PathCheckWrite); err != nil {
					return outputError(err)
				}
				n, err := gen.WriteFiles(c.Context, dir)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c.App.Writer, map[string]any{"dir": dir, "urls": n})
			}
			set, err := gen.Build(c.Context)
			if err != nil {
				return outputError(err)
			}
			_, err = set.WriteTo(c.App.Writer)
			return err
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the content tools over MCP on stdio",
		Action: func(c *cli.Context) error {
			if err := mcp.Run(a.repo, a.cfg, Version, a.log); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON writes v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var sErr *errors.SiteError
	if errors.As(err, &sErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
