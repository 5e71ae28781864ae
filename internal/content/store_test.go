package content

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"
	"sync"

	"github.com/dewco/dewsite/internal/errors"
)

// memStore is an in-memory DocumentStore that counts calls and can be told
// to fail or block per operation.
type memStore struct {
	mu   sync.Mutex
	docs map[string]map[string]Record

	allCalls   map[string]int
	getCalls   int
	queryCalls int

	failAll   error
	failGet   error
	failQuery error

	// gate, when set, blocks All until closed. entered receives once per All call.
	gate    chan struct{}
	entered chan struct{}
}

func newMemStore() *memStore {
	return &memStore{
		docs:     make(map[string]map[string]Record),
		allCalls: make(map[string]int),
	}
}

func (s *memStore) put(collection, key string, data Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]Record)
	}
	s.docs[collection][key] = data
}

func (s *memStore) All(ctx context.Context, collection string) ([]Document, error) {
	s.mu.Lock()
	s.allCalls[collection]++
	gate, entered, fail := s.gate, s.entered, s.failAll
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		return nil, fail
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.docs[collection]))
	for k := range s.docs[collection] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Document, 0, len(keys))
	for _, k := range keys {
		out = append(out, Document{Collection: collection, Key: k, Data: s.docs[collection][k]})
	}
	return out, nil
}

func (s *memStore) Get(_ context.Context, collection, key string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.failGet != nil {
		return nil, s.failGet
	}
	data, ok := s.docs[collection][key]
	if !ok {
		return nil, errors.NewNotFound(collection, key)
	}
	return &Document{Collection: collection, Key: key, Data: data}, nil
}

func (s *memStore) QueryEqual(_ context.Context, collection, field, value string, limit int) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryCalls++
	if s.failQuery != nil {
		return nil, s.failQuery
	}
	keys := make([]string, 0)
	for k := range s.docs[collection] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []Document
	for _, k := range keys {
		data := s.docs[collection][k]
		if strings.EqualFold(data.String(field), value) {
			out = append(out, Document{Collection: collection, Key: k, Data: data})
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memStore) allCount(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allCalls[collection]
}

var errBackend = stderrors.New("backend unavailable")
