// Package seo synthesizes page metadata and the schema.org linked-data graph
// for a resolved page. Nothing in this package fails: every input, including
// a missing record, produces usable metadata built from site defaults.
package seo

import (
	"slices"

	"github.com/dewco/dewsite/internal/config"
)

// Site holds the site-wide identity every page's metadata is built from.
type Site struct {
	Name               string
	DefaultTitle       string
	Origin             string
	DefaultDescription string
	DefaultImage       string
	DefaultKeywords    []string
	Author             string
	OrganizationName   string
	Email              string
	SameAs             []string
	KnowsAbout         []string
	Services           []config.Service
	MaxDescription     int
	Locale             string
	Language           string
}

// NewSite builds a Site from configuration. The origin is normalised.
func NewSite(cfg *config.Config) *Site {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	maxDesc := cfg.DescriptionMaxLength
	if maxDesc <= 0 {
		maxDesc = PageDescriptionMaxLength
	}
	orgName := cfg.OrganizationName
	if orgName == "" {
		orgName = cfg.SiteName
	}
	return &Site{
		Name:               cfg.SiteName,
		DefaultTitle:       cfg.DefaultTitle,
		Origin:             config.NormalizeOrigin(cfg.Origin),
		DefaultDescription: cfg.DefaultDescription,
		DefaultImage:       cfg.DefaultImage,
		DefaultKeywords:    slices.Clone(cfg.DefaultKeywords),
		Author:             cfg.Author,
		OrganizationName:   orgName,
		Email:              cfg.Email,
		SameAs:             slices.Clone(cfg.SameAs),
		KnowsAbout:         slices.Clone(cfg.KnowsAbout),
		Services:           slices.Clone(cfg.Services),
		MaxDescription:     maxDesc,
		Locale:             "en_US",
		Language:           "en",
	}
}

// URL resolves a path against the site origin.
func (s *Site) URL(path string) string {
	return ResolveURL(s.Origin, path)
}

// ID builds a site-level node identifier: origin + "/#" + fragment.
func (s *Site) ID(fragment string) string {
	if s.Origin == "" {
		return "#" + fragment
	}
	return s.Origin + "/#" + fragment
}
