// Package ops holds the operator workflows around the content store:
// importing and exporting seed files, prerendering every route, and
// watching a seed directory for changes.
package ops

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dewco/dewsite/internal/content"
)

// Seed file extensions Import understands.
const (
	ExtJSON = ".json"
	ExtYAML = ".yaml"
	ExtYML  = ".yml"
)

// KeyField carries a document's store key through export and import.
const KeyField = "_key"

// collectionAliases maps seed file base names to store collections. The
// collection names themselves are accepted as well.
var collectionAliases = map[string]string{
	"portfolios":         content.CollectionPortfolios,
	"projects":           content.CollectionProjects,
	"portfolio-details":  content.CollectionProjects,
	"stories":            content.CollectionStories,
	"story_details":      content.CollectionStoryDetails,
	"story-details":      content.CollectionStoryDetails,
	"testimonials":       content.CollectionTestimonials,
	"short-testimonials": content.CollectionTestimonials,
}

// CollectionFor maps a seed file name (with or without directory and
// extension) to its collection.
func CollectionFor(name string) (string, bool) {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	c, ok := collectionAliases[strings.ToLower(base)]
	return c, ok
}

// KnownCollections lists every collection the site reads, sorted.
func KnownCollections() []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range collectionAliases {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// Invalidator drops cached collection snapshots. *cache.RedisCache
// implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, collections ...string) (int, error)
}

// Resetter starts a new content session. *content.Repository implements it.
type Resetter interface {
	Reset()
}

func isSeedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtJSON, ExtYAML, ExtYML:
		return true
	}
	return false
}
