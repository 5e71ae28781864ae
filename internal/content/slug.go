package content

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultSlug is the identifier an empty route fragment resolves to.
const DefaultSlug = "index"

var documentExtRegex = regexp.MustCompile(`\.(html?|php|aspx?|md|json)$`)

// NormalizeSlug maps a user-supplied route fragment to its lookup form:
// trimmed, lower-cased, without leading separator, query, fragment or
// document extension. Empty input maps to DefaultSlug. Idempotent.
func NormalizeSlug(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	for {
		prev := s
		s = strings.TrimSpace(s)
		s = strings.Trim(s, "/")
		s = documentExtRegex.ReplaceAllString(s, "")
		if s == prev {
			break
		}
	}
	if s == "" {
		return DefaultSlug
	}
	return s
}

// CanonicalSlug is NormalizeSlug with underscores folded to hyphens, the
// form slugs are compared and published in.
func CanonicalSlug(raw string) string {
	return strings.ReplaceAll(NormalizeSlug(raw), "_", "-")
}

// LinkTail returns the last non-empty path segment of link, lower-cased.
func LinkTail(link string) string {
	link = strings.TrimSpace(link)
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	tail := ""
	for _, seg := range strings.Split(link, "/") {
		if seg != "" {
			tail = seg
		}
	}
	return strings.ToLower(tail)
}

// DeriveSlug picks a record's slug: explicit slug, then link tail, then id,
// then the document key. Returns "" when the record has no identity at all.
func DeriveSlug(data Record, key string) string {
	candidates := []string{
		data.String("slug"),
		LinkTail(data.String("link")),
		data.String("id"),
		key,
	}
	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		return CanonicalSlug(c)
	}
	return ""
}

// Variants returns the identifier as given plus its lower-case, hyphenated
// and underscored forms, deduplicated, in that order.
func Variants(identifier string) []string {
	raw := strings.TrimSpace(identifier)
	if raw == "" {
		return nil
	}
	lower := strings.ToLower(raw)
	forms := []string{
		raw,
		lower,
		strings.ReplaceAll(lower, "_", "-"),
		strings.ReplaceAll(lower, "-", "_"),
	}
	seen := make(map[string]bool, len(forms))
	out := make([]string, 0, len(forms))
	for _, f := range forms {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// MatchesCandidate reports whether the detail's own id, slug or key equals
// the input once both sides are canonicalised.
func MatchesCandidate(d *Detail, input string) bool {
	if d == nil || strings.TrimSpace(input) == "" {
		return false
	}
	want := CanonicalSlug(input)
	for _, c := range []string{d.ID, d.Slug, d.Key} {
		if strings.TrimSpace(c) != "" && CanonicalSlug(c) == want {
			return true
		}
	}
	return false
}

// FuzzyToken lower-cases s and keeps only letters and digits.
func FuzzyToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsNested reports whether a route parameter spans more than one segment.
// Nested parameters never match a static page or a content record.
func IsNested(param string) bool {
	return strings.Contains(strings.Trim(strings.TrimSpace(param), "/"), "/")
}
