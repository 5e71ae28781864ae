package nav

import (
	"context"
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/dewco/dewsite/internal/content"
	"github.com/dewco/dewsite/internal/errors"
	"github.com/dewco/dewsite/internal/head"
	"github.com/dewco/dewsite/internal/seo"
)

// DefaultTimeout bounds one navigation's content resolution.
const DefaultTimeout = 5 * time.Second

// DefaultFeaturedLimit is how many portfolio items the home page shows.
const DefaultFeaturedLimit = 4

// maxRedirects bounds alias chains followed by Navigate.
const maxRedirects = 3

// ContentSource is the content the pipeline reads. *content.Repository
// implements it.
type ContentSource interface {
	ListSummaries(ctx context.Context, kind content.Kind) ([]content.Item, error)
	Featured(ctx context.Context, kind content.Kind, limit int) ([]content.Item, error)
	ListTestimonials(ctx context.Context) ([]content.Testimonial, error)
	GetDetail(ctx context.Context, kind content.Kind, identifier string) (*content.Detail, error)
}

// State is the resolved result of one navigation.
type State struct {
	ID           string                `json:"id,omitempty"`
	Route        Route                 `json:"route"`
	Slug         string                `json:"slug,omitempty"`
	Detail       *content.Detail       `json:"detail,omitempty"`
	Summary      *content.Item         `json:"summary,omitempty"`
	Previous     *content.Item         `json:"previous,omitempty"`
	Next         *content.Item         `json:"next,omitempty"`
	Items        []content.Item        `json:"items,omitempty"`
	Testimonials []content.Testimonial `json:"testimonials,omitempty"`
	Meta         seo.PageMeta          `json:"meta"`
	Graph        *seo.Graph            `json:"-"`
	Err          error                 `json:"-"`
}

// NotFound reports whether the page has nothing to show.
func (s State) NotFound() bool {
	if s.Route.Page == seo.PageNotFound {
		return true
	}
	return s.Route.Page.IsDetail() && s.Detail == nil && s.Summary == nil
}

// Navigator runs the page pipeline. Resolve is pure; Navigate additionally
// applies the result to the head document, and only for the most recent
// navigation.
type Navigator struct {
	source   ContentSource
	site     *seo.Site
	head     *head.Document
	timeout  time.Duration
	featured int
	log      logrus.FieldLogger

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	current State
	entropy io.Reader
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithHead sets the document Navigate applies metadata to.
func WithHead(d *head.Document) Option {
	return func(n *Navigator) { n.head = d }
}

// WithTimeout bounds each resolution. Zero or less disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(n *Navigator) { n.timeout = d }
}

// WithFeaturedLimit sets how many portfolio items the home page resolves.
func WithFeaturedLimit(limit int) Option {
	return func(n *Navigator) { n.featured = limit }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(n *Navigator) { n.log = l }
}

// NewNavigator creates a Navigator over source.
func NewNavigator(source ContentSource, site *seo.Site, opts ...Option) *Navigator {
	n := &Navigator{
		source:   source,
		site:     site,
		timeout:  DefaultTimeout,
		featured: DefaultFeaturedLimit,
		log:      logrus.StandardLogger(),
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Head returns the document Navigate applies to, if any.
func (n *Navigator) Head() *head.Document {
	return n.head
}

// Current returns the last applied state.
func (n *Navigator) Current() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Navigate resolves path and applies the result to the head document.
// Starting a navigation cancels the one in flight; a navigation that is no
// longer the latest when it finishes returns SUPERSEDED and changes nothing.
func (n *Navigator) Navigate(ctx context.Context, path string) (State, error) {
	route := FollowRedirects(path)

	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
	}
	n.seq++
	seq := n.seq
	navCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	id := ulid.MustNew(ulid.Timestamp(time.Now()), n.entropy).String()
	n.mu.Unlock()
	defer cancel()

	st := n.Resolve(navCtx, route)
	st.ID = id

	n.mu.Lock()
	defer n.mu.Unlock()
	if seq != n.seq {
		n.log.WithFields(logrus.Fields{"path": path, "navigation": id}).Debug("navigation superseded")
		return st, errors.NewSuperseded(route.Path)
	}
	n.cancel = nil
	n.current = st
	if n.head != nil {
		if err := n.head.Apply(st.Meta, st.Graph); err != nil {
			return st, errors.NewInternal(err)
		}
	}
	return st, nil
}

// FollowRedirects parses path and follows alias redirects to the route that
// is actually served.
func FollowRedirects(path string) Route {
	route := ParseRoute(path)
	for i := 0; route.Redirect != "" && i < maxRedirects; i++ {
		route = ParseRoute(route.Redirect)
	}
	return route
}

// ResolvePath is Resolve over a raw path, redirects followed.
func (n *Navigator) ResolvePath(ctx context.Context, path string) State {
	return n.Resolve(ctx, FollowRedirects(path))
}

// Resolve runs slug normalisation, content lookup and synthesis for route
// without touching the head. It always returns usable metadata: lookup
// failures and timeouts are recorded in State.Err and degrade to fallbacks.
func (n *Navigator) Resolve(ctx context.Context, route Route) State {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	st := State{Route: route, Slug: route.Slug}
	rc := seo.RouteContext{Page: route.Page, Path: route.Path, Slug: route.Slug}
	log := n.log.WithField("path", route.Path)

	switch {
	case route.Page == seo.PageHome:
		items, err := n.source.Featured(ctx, content.KindPortfolio, n.featured)
		if err != nil {
			log.WithError(err).Warn("featured portfolio unavailable")
			st.Err = err
		}
		st.Items = items
		testimonials, err := n.source.ListTestimonials(ctx)
		if err != nil {
			log.WithError(err).Warn("testimonials unavailable")
			if st.Err == nil {
				st.Err = err
			}
		}
		st.Testimonials = testimonials

	case route.Page.IsListing():
		items, err := n.source.ListSummaries(ctx, route.Page.Kind())
		if err != nil {
			log.WithError(err).Warn("listing unavailable")
			st.Err = err
		}
		st.Items = items
		rc.Items = items

	case route.Page.IsDetail():
		n.resolveDetail(ctx, &st, log)

	case route.Page == seo.PageNotFound:
		st.Err = errors.NewNotFound("page", route.Path)
	}

	if ctx.Err() == context.DeadlineExceeded {
		log.WithField("timeout", n.timeout).Warn("navigation timed out; serving fallback metadata")
		st.Err = errors.NewTimeout("navigate "+route.Path, ctx.Err())
	}

	st.Meta, st.Graph = seo.Synthesize(n.site, st.Detail, st.Summary, rc)
	return st
}

func (n *Navigator) resolveDetail(ctx context.Context, st *State, log logrus.FieldLogger) {
	kind := st.Route.Page.Kind()

	items, err := n.source.ListSummaries(ctx, kind)
	if err != nil {
		log.WithError(err).Debug("summary list unavailable for detail page")
	}
	if st.Route.Param != "" {
		st.Summary = content.FindSummary(items, st.Route.Slug)
	}

	identifier := st.Route.Slug
	if st.Route.Param == "" {
		identifier = ""
	}
	if st.Summary != nil && st.Summary.ID != "" {
		identifier = st.Summary.ID
	}

	detail, err := n.source.GetDetail(ctx, kind, identifier)
	if err != nil && st.Summary != nil && identifier != st.Route.Slug && errors.Is(err, errors.ErrNotFound) {
		detail, err = n.source.GetDetail(ctx, kind, st.Route.Slug)
	}
	if err != nil {
		log.WithError(err).WithField("identifier", identifier).Info("detail not resolved")
		st.Err = err
	}
	st.Detail = detail

	if st.Summary != nil {
		nb := content.BuildNeighborLinks(st.Summary, items)
		st.Previous, st.Next = nb.Previous, nb.Next
	}
}
