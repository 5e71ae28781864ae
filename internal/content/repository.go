package content

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/dewco/dewsite/internal/errors"
)

// DefaultFetchTimeout bounds one shared collection fetch.
const DefaultFetchTimeout = 10 * time.Second

// DocumentStore is the read side of the document database.
// Get returns a NOT_FOUND error when the key does not exist.
type DocumentStore interface {
	All(ctx context.Context, collection string) ([]Document, error)
	Get(ctx context.Context, collection, key string) (*Document, error)
	QueryEqual(ctx context.Context, collection, field, value string, limit int) ([]Document, error)
}

// SnapshotCache holds serialized whole-collection snapshots shared between
// processes. A miss is (nil, false, nil).
type SnapshotCache interface {
	Load(ctx context.Context, collection string) ([]byte, bool, error)
	Save(ctx context.Context, collection string, payload []byte, ttl time.Duration) error
}

// Repository resolves content for one session. Collections are fetched at
// most once and replayed to later callers; concurrent cold callers share a
// single in-flight fetch. Results are immutable for the session.
type Repository struct {
	store        DocumentStore
	cache        SnapshotCache
	cacheTTL     time.Duration
	fetchTimeout time.Duration
	log          logrus.FieldLogger
	strategies   []LookupStrategy

	mu          sync.RWMutex
	gen         uint64
	collections map[string][]Document
	summaries   map[Kind][]Item
	group       singleflight.Group
}

// Option configures a Repository.
type Option func(*Repository)

// WithSnapshotCache puts a shared cache in front of whole-collection fetches.
func WithSnapshotCache(c SnapshotCache, ttl time.Duration) Option {
	return func(r *Repository) {
		r.cache = c
		r.cacheTTL = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Repository) { r.log = l }
}

// WithFetchTimeout bounds each shared collection fetch. Zero or less means
// DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(r *Repository) {
		if d > 0 {
			r.fetchTimeout = d
		}
	}
}

// WithStrategies replaces the detail lookup chain.
func WithStrategies(s ...LookupStrategy) Option {
	return func(r *Repository) { r.strategies = s }
}

// NewRepository creates a Repository over store.
func NewRepository(store DocumentStore, opts ...Option) *Repository {
	r := &Repository{
		store:        store,
		fetchTimeout: DefaultFetchTimeout,
		log:          logrus.StandardLogger(),
		strategies:   DefaultStrategies(),
		collections:  make(map[string][]Document),
		summaries:    make(map[Kind][]Item),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reset drops everything memoised and starts a new session. In-flight
// fetches from the previous session finish but are not stored.
func (r *Repository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.collections = make(map[string][]Document)
	r.summaries = make(map[Kind][]Item)
}

// ListSummaries returns the kind's items sorted by sort order then title.
func (r *Repository) ListSummaries(ctx context.Context, kind Kind) ([]Item, error) {
	if kind != KindPortfolio && kind != KindStory {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("no summaries for kind %q", kind))
	}

	r.mu.RLock()
	items, ok := r.summaries[kind]
	gen := r.gen
	r.mu.RUnlock()
	if ok {
		return slices.Clone(items), nil
	}

	docs, err := r.collection(ctx, kind.SummaryCollection())
	if err != nil {
		return nil, err
	}

	items = make([]Item, 0, len(docs))
	for _, doc := range docs {
		items = append(items, ItemFromDocument(kind, doc))
	}
	SortItems(items)

	r.mu.Lock()
	if r.gen == gen {
		r.summaries[kind] = items
	}
	r.mu.Unlock()

	return slices.Clone(items), nil
}

// Featured returns the first limit items of the sorted list.
func (r *Repository) Featured(ctx context.Context, kind Kind, limit int) ([]Item, error) {
	items, err := r.ListSummaries(ctx, kind)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// ListTestimonials returns every testimonial in store order.
func (r *Repository) ListTestimonials(ctx context.Context) ([]Testimonial, error) {
	docs, err := r.collection(ctx, CollectionTestimonials)
	if err != nil {
		return nil, err
	}
	return TestimonialsFromDocuments(docs), nil
}

// GetDetail resolves identifier to a detail record by running the lookup
// strategies in order and stopping at the first hit. Strategy failures are
// collected and only reported, inside the terminal NOT_FOUND, when no
// strategy finds a record.
func (r *Repository) GetDetail(ctx context.Context, kind Kind, identifier string) (*Detail, error) {
	id := strings.TrimSpace(identifier)
	if kind.DetailCollection() == "" || id == "" || IsNested(id) {
		return nil, errors.NewNotFound(string(kind), id)
	}

	var failures []string
	for _, s := range r.strategies {
		d, err := s.Lookup(ctx, r, kind, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.FromContext(fmt.Sprintf("resolve %s %s", kind, id), ctx.Err())
			}
			r.log.WithFields(logrus.Fields{
				"kind":       kind,
				"identifier": id,
				"strategy":   s.Name,
			}).WithError(err).Debug("lookup strategy failed")
			failures = append(failures, fmt.Sprintf("%s: %v", s.Name, err))
			continue
		}
		if d != nil {
			return d, nil
		}
	}

	nf := errors.NewNotFound(string(kind), id)
	if len(failures) > 0 {
		nf.Details["failures"] = failures
	}
	return nil, nf
}

// collection returns the memoised documents of a collection, fetching them
// once per session. The shared fetch runs detached from every caller's
// context, bounded by the fetch timeout, so a caller that gives up only
// stops waiting; the others still get the result.
func (r *Repository) collection(ctx context.Context, name string) ([]Document, error) {
	r.mu.RLock()
	docs, ok := r.collections[name]
	gen := r.gen
	r.mu.RUnlock()
	if ok {
		return docs, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(fmt.Sprintf("%d:%s", gen, name), func() (any, error) {
		r.mu.RLock()
		docs, ok := r.collections[name]
		r.mu.RUnlock()
		if ok {
			return docs, nil
		}

		ctx, cancel := context.WithTimeout(fetchCtx, r.fetchTimeout)
		defer cancel()
		docs, err := r.fetchCollection(ctx, name)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		if r.gen == gen {
			r.collections[name] = docs
		}
		r.mu.Unlock()
		return docs, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Document), nil
	case <-ctx.Done():
		return nil, errors.FromContext("fetch "+name, ctx.Err())
	}
}

func (r *Repository) fetchCollection(ctx context.Context, name string) ([]Document, error) {
	if r.cache != nil {
		payload, ok, err := r.cache.Load(ctx, name)
		switch {
		case err != nil:
			r.log.WithField("collection", name).WithError(err).Warn("snapshot cache load failed")
		case ok:
			var docs []Document
			if err := json.Unmarshal(payload, &docs); err == nil {
				return docs, nil
			}
			r.log.WithField("collection", name).Warn("discarding unreadable snapshot")
		}
	}

	docs, err := r.store.All(ctx, name)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.FromContext("fetch "+name, ctx.Err())
		}
		return nil, errors.NewTransientFetch("fetch "+name, err)
	}
	if docs == nil {
		docs = []Document{}
	}

	if r.cache != nil {
		if payload, err := json.Marshal(docs); err == nil {
			if err := r.cache.Save(ctx, name, payload, r.cacheTTL); err != nil {
				r.log.WithField("collection", name).WithError(err).Warn("snapshot cache save failed")
			}
		}
	}
	return docs, nil
}
