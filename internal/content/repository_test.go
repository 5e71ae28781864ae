package content

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/dewco/dewsite/internal/errors"
)

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

func seededStore() *memStore {
	s := newMemStore()
	s.put(CollectionPortfolios, "acme", Record{"name": "Acme Rebrand", "sort_order": float64(2)})
	s.put(CollectionPortfolios, "beta", Record{"name": "Beta Site", "sort_order": float64(1)})
	s.put(CollectionPortfolios, "zeta", Record{"name": "Zeta App"})
	s.put(CollectionProjects, "my_project", Record{"name": "My Project"})
	s.put(CollectionProjects, "p2", Record{"id": "legacy_two", "name": "Second"})
	s.put(CollectionProjects, "acmerebrand2024", Record{"title": "Acme Rebrand 2024"})
	s.put(CollectionStories, "s1", Record{"title": "Launch"})
	s.put(CollectionTestimonials, "t1", Record{"name": "Ana", "text": "Great"})
	return s
}

func TestRepository_ListSummaries(t *testing.T) {
	store := seededStore()
	repo := NewRepository(store, WithLogger(quietLogger()))
	ctx := context.Background()

	items, err := repo.ListSummaries(ctx, KindPortfolio)
	require.NoError(t, err)
	require.Equal(t, []string{"Beta Site", "Acme Rebrand", "Zeta App"}, titles(items))

	// Mutating the returned slice does not leak into the memo.
	items[0].Title = "changed"

	again, err := repo.ListSummaries(ctx, KindPortfolio)
	require.NoError(t, err)
	require.Equal(t, "Beta Site", again[0].Title)
	require.Equal(t, 1, store.allCount(CollectionPortfolios))
}

func TestRepository_ListSummaries_InvalidKind(t *testing.T) {
	repo := NewRepository(newMemStore(), WithLogger(quietLogger()))
	_, err := repo.ListSummaries(context.Background(), KindTestimonial)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestRepository_Featured(t *testing.T) {
	repo := NewRepository(seededStore(), WithLogger(quietLogger()))
	items, err := repo.Featured(context.Background(), KindPortfolio, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"Beta Site", "Acme Rebrand"}, titles(items))
}

func TestRepository_ListTestimonials(t *testing.T) {
	repo := NewRepository(seededStore(), WithLogger(quietLogger()))
	ts, err := repo.ListTestimonials(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Testimonial{{Name: "Ana", Text: "Great"}}, ts)
}

func TestRepository_ConcurrentColdCallsShareOneFetch(t *testing.T) {
	store := seededStore()
	store.gate = make(chan struct{})
	store.entered = make(chan struct{}, 16)
	repo := NewRepository(store, WithLogger(quietLogger()))

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]Item, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = repo.ListSummaries(context.Background(), KindPortfolio)
		}(i)
	}

	<-store.entered
	time.Sleep(50 * time.Millisecond)
	close(store.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Len(t, results[i], 3)
	}
	require.Equal(t, 1, store.allCount(CollectionPortfolios))
}

func TestRepository_FetchFailureIsNotMemoised(t *testing.T) {
	store := seededStore()
	store.failAll = errBackend
	repo := NewRepository(store, WithLogger(quietLogger()))
	ctx := context.Background()

	_, err := repo.ListSummaries(ctx, KindStory)
	require.True(t, errors.Is(err, errors.ErrTransientFetch))

	store.mu.Lock()
	store.failAll = nil
	store.mu.Unlock()

	items, err := repo.ListSummaries(ctx, KindStory)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 2, store.allCount(CollectionStories))
}

func TestRepository_Reset(t *testing.T) {
	store := seededStore()
	repo := NewRepository(store, WithLogger(quietLogger()))
	ctx := context.Background()

	_, err := repo.ListSummaries(ctx, KindStory)
	require.NoError(t, err)
	repo.Reset()
	_, err = repo.ListSummaries(ctx, KindStory)
	require.NoError(t, err)
	require.Equal(t, 2, store.allCount(CollectionStories))
}

func TestRepository_GetDetail_DirectKeyVariant(t *testing.T) {
	store := seededStore()
	repo := NewRepository(store, WithLogger(quietLogger()))

	d, err := repo.GetDetail(context.Background(), KindPortfolio, "my-project")
	require.NoError(t, err)
	require.Equal(t, "my_project", d.Key)
	require.Equal(t, "My Project", d.Fields.String("name"))
	require.Equal(t, 0, store.queryCalls, "field equality should not run")
	require.Equal(t, 0, store.allCount(CollectionProjects), "fuzzy scan should not run")
}

func TestRepository_GetDetail_FieldEquality(t *testing.T) {
	store := seededStore()
	repo := NewRepository(store, WithLogger(quietLogger()))

	d, err := repo.GetDetail(context.Background(), KindPortfolio, "legacy-two")
	require.NoError(t, err)
	require.Equal(t, "p2", d.Key)
	require.Equal(t, "legacy_two", d.ID)
	require.Equal(t, 0, store.allCount(CollectionProjects))
}

func TestRepository_GetDetail_FuzzyScan(t *testing.T) {
	store := newMemStore()
	store.put(CollectionProjects, "zz-unrelated", Record{"title": "Unrelated"})
	store.put(CollectionProjects, "acmerebrand2024", Record{"title": "Acme Rebrand 2024"})
	repo := NewRepository(store, WithLogger(quietLogger()))

	d, err := repo.GetDetail(context.Background(), KindPortfolio, "Acme Rebrand 2024")
	require.NoError(t, err)
	require.Equal(t, "acmerebrand2024", d.Key)
	require.Equal(t, 1, store.allCount(CollectionProjects))
}

func TestRepository_GetDetail_FuzzyScanPrefersCanonicalMatch(t *testing.T) {
	store := newMemStore()
	store.put(CollectionProjects, "a1", Record{"title": "Acme Rebrand"})
	store.put(CollectionProjects, "z9", Record{"title": "Acme", "link": "/portfolio/acme"})
	repo := NewRepository(store, WithLogger(quietLogger()))

	d, err := repo.GetDetail(context.Background(), KindPortfolio, "acme")
	require.NoError(t, err)
	require.Equal(t, "z9", d.Key)
}

func TestRepository_GetDetail_NotFound(t *testing.T) {
	repo := NewRepository(seededStore(), WithLogger(quietLogger()))

	_, err := repo.GetDetail(context.Background(), KindPortfolio, "does-not-exist")
	require.True(t, errors.Is(err, errors.ErrNotFound))

	var se *errors.SiteError
	require.True(t, errors.As(err, &se))
	require.Equal(t, "does-not-exist", se.Details["identifier"])
	require.NotContains(t, se.Details, "failures")
}

func TestRepository_GetDetail_StrategyFailuresAreCollected(t *testing.T) {
	store := seededStore()
	store.failGet = errBackend
	store.failQuery = errBackend
	store.failAll = errBackend
	repo := NewRepository(store, WithLogger(quietLogger()))

	_, err := repo.GetDetail(context.Background(), KindPortfolio, "my-project")
	require.True(t, errors.Is(err, errors.ErrNotFound))

	var se *errors.SiteError
	require.True(t, errors.As(err, &se))
	failures, ok := se.Details["failures"].([]string)
	require.True(t, ok)
	require.Len(t, failures, 3)
	require.Contains(t, failures[0], "direct-key")
	require.Contains(t, failures[2], "fuzzy-scan")
}

func TestRepository_GetDetail_LaterStrategyRecoversFromEarlierFailure(t *testing.T) {
	store := seededStore()
	store.failGet = errBackend
	repo := NewRepository(store, WithLogger(quietLogger()))

	d, err := repo.GetDetail(context.Background(), KindPortfolio, "legacy_two")
	require.NoError(t, err)
	require.Equal(t, "p2", d.Key)
}

func TestRepository_GetDetail_NestedOrEmpty(t *testing.T) {
	store := seededStore()
	repo := NewRepository(store, WithLogger(quietLogger()))

	for _, id := range []string{"", "  ", "my_project/extra"} {
		_, err := repo.GetDetail(context.Background(), KindPortfolio, id)
		require.True(t, errors.Is(err, errors.ErrNotFound), "id %q", id)
	}
	require.Equal(t, 0, store.getCalls)
}

func TestRepository_GetDetail_CancelledContext(t *testing.T) {
	store := seededStore()
	store.failGet = context.Canceled
	store.failQuery = context.Canceled
	repo := NewRepository(store, WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.GetDetail(ctx, KindPortfolio, "anything")
	require.True(t, errors.Is(err, errors.ErrCanceled))
}

func TestRepository_GetDetail_ExpiredDeadline(t *testing.T) {
	store := seededStore()
	store.failGet = context.DeadlineExceeded
	store.failQuery = context.DeadlineExceeded
	repo := NewRepository(store, WithLogger(quietLogger()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := repo.GetDetail(ctx, KindPortfolio, "anything")
	require.True(t, errors.Is(err, errors.ErrTimeout))
}

func TestRepository_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	store := seededStore()
	store.gate = make(chan struct{})
	store.entered = make(chan struct{}, 4)
	repo := NewRepository(store, WithLogger(quietLogger()))

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := repo.ListSummaries(firstCtx, KindPortfolio)
		first <- err
	}()
	<-store.entered

	second := make(chan []Item, 1)
	go func() {
		items, err := repo.ListSummaries(context.Background(), KindPortfolio)
		if err != nil {
			items = nil
		}
		second <- items
	}()

	cancelFirst()
	require.True(t, errors.Is(<-first, errors.ErrCanceled))

	close(store.gate)
	select {
	case items := <-second:
		require.Len(t, items, 3)
	case <-time.After(2 * time.Second):
		t.Fatal("waiting caller never got the shared result")
	}
	require.Equal(t, 1, store.allCount(CollectionPortfolios))
}

func TestRepository_FetchTimeoutBoundsSharedFetch(t *testing.T) {
	store := seededStore()
	store.gate = make(chan struct{})
	repo := NewRepository(store, WithLogger(quietLogger()), WithFetchTimeout(20*time.Millisecond))

	_, err := repo.ListSummaries(context.Background(), KindPortfolio)
	require.True(t, errors.Is(err, errors.ErrTimeout))

	close(store.gate)
	items, err := repo.ListSummaries(context.Background(), KindPortfolio)
	require.NoError(t, err)
	require.Len(t, items, 3)
}

type mapCache struct {
	mu    sync.Mutex
	data  map[string][]byte
	saves int
}

func (c *mapCache) Load(_ context.Context, collection string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[collection]
	return b, ok, nil
}

func (c *mapCache) Save(_ context.Context, collection string, payload []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[collection] = payload
	c.saves++
	return nil
}

func TestRepository_SnapshotCacheSharedAcrossSessions(t *testing.T) {
	store := seededStore()
	cache := &mapCache{data: make(map[string][]byte)}

	first := NewRepository(store, WithSnapshotCache(cache, time.Minute), WithLogger(quietLogger()))
	_, err := first.ListSummaries(context.Background(), KindPortfolio)
	require.NoError(t, err)
	require.Equal(t, 1, cache.saves)

	second := NewRepository(store, WithSnapshotCache(cache, time.Minute), WithLogger(quietLogger()))
	items, err := second.ListSummaries(context.Background(), KindPortfolio)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, 1, store.allCount(CollectionPortfolios))
}
