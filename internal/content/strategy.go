package content

import (
	"context"
	"strings"

	"github.com/dewco/dewsite/internal/errors"
)

// LookupStrategy is one step of the detail resolution chain. Lookup returns
// (nil, nil) when it finds nothing and an error only when it could not run.
type LookupStrategy struct {
	Name   string
	Lookup func(ctx context.Context, r *Repository, kind Kind, identifier string) (*Detail, error)
}

// DefaultStrategies is direct key lookup, then field equality, then fuzzy scan.
// Identifiers come from explicit slugs, legacy underscore ids and free-text
// links that were never normalised at authoring time.
func DefaultStrategies() []LookupStrategy {
	return []LookupStrategy{
		{Name: "direct-key", Lookup: lookupDirectKey},
		{Name: "field-equality", Lookup: lookupFieldEquality},
		{Name: "fuzzy-scan", Lookup: lookupFuzzyScan},
	}
}

// lookupDirectKey fetches the document keyed by each identifier variant.
func lookupDirectKey(ctx context.Context, r *Repository, kind Kind, identifier string) (*Detail, error) {
	coll := kind.DetailCollection()
	var firstErr error
	for _, v := range Variants(identifier) {
		doc, err := r.store.Get(ctx, coll, v)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				continue
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if doc != nil {
			return DetailFromDocument(kind, *doc), nil
		}
	}
	return nil, firstErr
}

// lookupFieldEquality queries the id field, then the slug field, for each variant.
func lookupFieldEquality(ctx context.Context, r *Repository, kind Kind, identifier string) (*Detail, error) {
	coll := kind.DetailCollection()
	var firstErr error
	for _, field := range []string{"id", "slug"} {
		for _, v := range Variants(identifier) {
			docs, err := r.store.QueryEqual(ctx, coll, field, v, 1)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if len(docs) > 0 {
				return DetailFromDocument(kind, docs[0]), nil
			}
		}
	}
	return nil, firstErr
}

// fuzzyFields feed the token stream a record is matched against.
var fuzzyFields = []string{"id", "slug", "title", "headline", "name"}

// lookupFuzzyScan scans the collection once. A record whose own id, slug
// or key canonicalises to the identifier wins outright; otherwise the first
// record, in collection order, whose token stream contains the identifier's
// alphanumeric token.
func lookupFuzzyScan(ctx context.Context, r *Repository, kind Kind, identifier string) (*Detail, error) {
	needle := FuzzyToken(identifier)
	if needle == "" {
		return nil, nil
	}
	docs, err := r.collection(ctx, kind.DetailCollection())
	if err != nil {
		return nil, err
	}

	var partial *Detail
	for _, doc := range docs {
		d := DetailFromDocument(kind, doc)
		if MatchesCandidate(d, identifier) {
			return d, nil
		}
		if partial != nil {
			continue
		}
		parts := []string{doc.Key}
		for _, f := range fuzzyFields {
			parts = append(parts, doc.Data.String(f))
		}
		if strings.Contains(FuzzyToken(strings.Join(parts, " ")), needle) {
			partial = d
		}
	}
	return partial, nil
}
