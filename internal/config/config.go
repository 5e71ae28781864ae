package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Service is a line of business advertised on the home page structured data.
type Service struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Config holds application configuration.
type Config struct {
	// SiteName is appended to page titles ("Title | SiteName") unless already present.
	SiteName string `json:"site_name,omitempty"`

	// DefaultTitle is used when a page resolves no title at all.
	DefaultTitle string `json:"default_title,omitempty"`

	// Origin is the scheme+host every absolute URL and JSON-LD @id is built from.
	// SITE_URL or BASE_URL in the environment take precedence.
	Origin string `json:"origin,omitempty"`

	DefaultDescription string   `json:"default_description,omitempty"`
	DefaultImage       string   `json:"default_image,omitempty"`
	DefaultKeywords    []string `json:"default_keywords,omitempty"`

	// Author is the site owner, emitted as the Person node and article:author.
	Author           string    `json:"author,omitempty"`
	OrganizationName string    `json:"organization_name,omitempty"`
	Email            string    `json:"email,omitempty"`
	SameAs           []string  `json:"same_as,omitempty"`
	KnowsAbout       []string  `json:"knows_about,omitempty"`
	Services         []Service `json:"services,omitempty"`

	// DescriptionMaxLength bounds meta descriptions (runes, including the ellipsis).
	DescriptionMaxLength int `json:"description_max_length,omitempty"`

	// FetchTimeoutMS bounds one navigation's content resolution. On expiry the
	// page is served with fallback metadata.
	FetchTimeoutMS int `json:"fetch_timeout_ms,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// RedisURL enables the shared collection snapshot cache when set.
	RedisURL string `json:"redis_url,omitempty"`

	// RedisTTLSeconds is how long a cached collection snapshot lives.
	RedisTTLSeconds int `json:"redis_ttl_seconds,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// LogLevel is a logrus level name ("debug", "info", "warn", ...).
	LogLevel string `json:"log_level,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SiteName:           "DewCo",
		DefaultTitle:       "DewCo | Product, Design & Automation Studio",
		Origin:             "https://dewco.tech",
		DefaultDescription: "Dew & Company (DewCo) is the personal innovation studio of Dipankar Chowdhury, building AI-driven products, automation systems, and full-stack web experiences for startups and founders.",
		DefaultImage:       "/assets/img/dewco-footer.webp",
		DefaultKeywords: []string{
			"DewCo",
			"Dew & Company",
			"Dipankar Chowdhury",
			"product strategy",
			"UX UI design",
			"full-stack development",
			"automation",
			"AI products",
			"SaaS",
			"startup studio",
			"branding",
			"web development",
		},
		Author:           "Dipankar Chowdhury",
		OrganizationName: "Dew & Company (DewCo)",
		Email:            "hello@dewco.tech",
		SameAs: []string{
			"https://www.linkedin.com/in/dewco/",
			"https://dewco.bio.link/",
			"https://www.instagram.com/dewcotech/",
		},
		KnowsAbout: []string{
			"Product strategy",
			"UX/UI design",
			"Full-stack development",
			"Automation",
			"AI products",
			"SaaS engineering",
			"Branding",
		},
		Services: []Service{
			{Name: "Product strategy", Description: "Discovery, positioning and roadmaps for new digital products."},
			{Name: "UX/UI design", Description: "Interface and experience design from wireframes to design systems."},
			{Name: "Full-stack development", Description: "Web applications and APIs built end to end."},
			{Name: "Automation", Description: "Workflow and AI automation for small teams."},
		},
		DescriptionMaxLength: 200,
		FetchTimeoutMS:       5000,
		RedisTTLSeconds:      300,
		LogLevel:             "info",
	}
}

// FetchTimeout returns FetchTimeoutMS as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// RedisTTL returns RedisTTLSeconds as a duration.
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.RedisTTLSeconds) * time.Second
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.dewsite.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg)
	return cfg, nil
}

// LoadWithRepo loads configuration from both the global base directory and the
// nearest repo-level .dewsite/config.json found by walking upward from startDir.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	ApplyEnv(cfg)
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .dewsite/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".dewsite", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

var schemeRegex = regexp.MustCompile(`(?i)^https?://`)

// ApplyEnv overrides the origin from SITE_URL, then BASE_URL.
func ApplyEnv(cfg *Config) {
	for _, key := range []string{"SITE_URL", "BASE_URL"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			cfg.Origin = NormalizeOrigin(v)
			return
		}
	}
}

// NormalizeOrigin adds a missing https:// scheme and drops trailing slashes.
func NormalizeOrigin(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !schemeRegex.MatchString(value) {
		value = "https://" + value
	}
	return strings.TrimRight(value, "/")
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated,
// except Services which the overlay replaces wholesale when non-empty.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		SiteName:             firstString(overlay.SiteName, base.SiteName),
		DefaultTitle:         firstString(overlay.DefaultTitle, base.DefaultTitle),
		Origin:               NormalizeOrigin(firstString(overlay.Origin, base.Origin)),
		DefaultDescription:   firstString(overlay.DefaultDescription, base.DefaultDescription),
		DefaultImage:         firstString(overlay.DefaultImage, base.DefaultImage),
		Author:               firstString(overlay.Author, base.Author),
		OrganizationName:     firstString(overlay.OrganizationName, base.OrganizationName),
		Email:                firstString(overlay.Email, base.Email),
		DescriptionMaxLength: firstInt(overlay.DescriptionMaxLength, base.DescriptionMaxLength),
		FetchTimeoutMS:       firstInt(overlay.FetchTimeoutMS, base.FetchTimeoutMS),
		DBMaxOpenConns:       firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:       firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		RedisURL:             firstString(overlay.RedisURL, base.RedisURL),
		RedisTTLSeconds:      firstInt(overlay.RedisTTLSeconds, base.RedisTTLSeconds),
		LogLevel:             firstString(overlay.LogLevel, base.LogLevel),
	}

	result.DefaultKeywords = mergeStringSlice(base.DefaultKeywords, overlay.DefaultKeywords)
	result.SameAs = mergeStringSlice(base.SameAs, overlay.SameAs)
	result.KnowsAbout = mergeStringSlice(base.KnowsAbout, overlay.KnowsAbout)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	result.Services = base.Services
	if len(overlay.Services) > 0 {
		result.Services = overlay.Services
	}

	return result
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
