package seo

import (
	"net/url"
	"regexp"
	"strings"
)

var absoluteURLRegex = regexp.MustCompile(`(?i)^https?://`)

// ResolveURL makes value absolute against origin. Absolute http(s) values
// pass through unchanged; an empty value yields the origin.
func ResolveURL(origin, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return origin
	}
	if absoluteURLRegex.MatchString(value) {
		return value
	}
	if origin == "" {
		return value
	}
	if !strings.HasPrefix(value, "/") {
		value = "/" + value
	}
	return origin + value
}

// CanonicalURL resolves value against origin and drops query and fragment.
// The root path keeps its trailing slash ("https://dewco.tech/").
func CanonicalURL(origin, value string) string {
	value = strings.TrimSpace(value)
	if origin == "" {
		return value
	}
	if value == "" {
		value = "/"
	}

	base, err := url.Parse(origin)
	if err != nil {
		return value
	}
	ref, err := url.Parse(value)
	if err != nil {
		return origin
	}
	u := base.ResolveReference(ref)
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
