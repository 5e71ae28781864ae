package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dewco/dewsite/internal/cache"
	"github.com/dewco/dewsite/internal/config"
	"github.com/dewco/dewsite/internal/content"
	"github.com/dewco/dewsite/internal/db"
	"github.com/dewco/dewsite/internal/mcp"
	"github.com/dewco/dewsite/internal/ops"
	"github.com/dewco/dewsite/internal/seo"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "import": true, "export": true,
	"list": true, "meta": true, "head": true,
	"prerender": true, "sitemap": true, "mcp": true,
	"help": true,
}

// app bundles what every command needs. cache is nil unless redis_url is
// configured and reachable.
type app struct {
	cfg     *config.Config
	baseDir string
	store   *db.Store
	repo    *content.Repository
	cache   *cache.RedisCache
	site    *seo.Site
	log     logrus.FieldLogger
}

// invalidator returns the snapshot cache as an ops.Invalidator, or nil.
func (a *app) invalidator() ops.Invalidator {
	if a.cache == nil {
		return nil
	}
	return a.cache
}

func newApp(database *sql.DB, cfg *config.Config, baseDir string, log logrus.FieldLogger) *app {
	a := &app{
		cfg:     cfg,
		baseDir: baseDir,
		store:   db.NewStore(database),
		site:    seo.NewSite(cfg),
		log:     log,
	}

	opts := []content.Option{content.WithLogger(log), content.WithFetchTimeout(cfg.FetchTimeout())}
	if cfg.RedisURL != "" {
		c, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("snapshot cache disabled")
		} else {
			a.cache = c
			opts = append(opts, content.WithSnapshotCache(c, cfg.RedisTTL()))
		}
	}
	a.repo = content.NewRepository(a.store, opts...)
	return a
}

func (a *app) close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// baseDir is $DEWSITE_HOME, or ~/.dewsite.
func baseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("DEWSITE_HOME")); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".dewsite"), nil
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   ___                ___
  |   \ _____ __ __  / __| ___
  | |) / -_) V  V / | (__/ _ \
  |___/\___|\_/\_/   \___\___/

  DewCo marketing site

  Usage: dewsite <command> [options]
         dewsite --help

  MCP server mode requires piped input.`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		cliApp := newCLIApp(nil)
		if err := cliApp.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	dir, err := baseDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(dir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := newLogger(cfg.LogLevel, os.Stderr)

	database, err := db.Init(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	a := newApp(database, cfg, dir, log)
	defer a.close()

	// CLI mode: known subcommand
	if isCLIMode() {
		cliApp := newCLIApp(a)
		if err := cliApp.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'dewsite --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(a.repo, cfg, Version, log); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
