package seo

import (
	"strings"
	"unicode"
)

const (
	// DefaultMaxLength is the truncation limit when none is given.
	DefaultMaxLength = 180

	// PageDescriptionMaxLength is the limit for meta descriptions.
	PageDescriptionMaxLength = 200

	ellipsis = "..."
)

// NormalizeText collapses whitespace runs to single spaces and trims.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate normalizes s and, if it is longer than maxLength runes, keeps
// maxLength-3 runes, trims trailing whitespace and appends "...".
func Truncate(s string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	text := NormalizeText(s)
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	keep := maxLength - len(ellipsis)
	if keep < 0 {
		keep = 0
	}
	return strings.TrimRightFunc(string(runes[:keep]), unicode.IsSpace) + ellipsis
}

// UniqueKeywords normalizes each value and drops blanks and
// case-insensitive duplicates, keeping the first casing and order.
func UniqueKeywords(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := NormalizeText(v)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

// FormatTitle appends " | <site name>" unless the title already mentions
// the site. A blank title becomes the site default title.
func (s *Site) FormatTitle(title string) string {
	t := NormalizeText(title)
	if t == "" {
		return s.DefaultTitle
	}
	if s.Name == "" || strings.Contains(strings.ToLower(t), strings.ToLower(s.Name)) {
		return t
	}
	return t + " | " + s.Name
}
