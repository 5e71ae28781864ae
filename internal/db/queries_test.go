package db

import (
	"context"
	"testing"

	"github.com/dewco/dewsite/internal/content"
	"github.com/dewco/dewsite/internal/errors"
)

var _ content.DocumentStore = (*Store)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func doc(collection, key string, data content.Record) content.Document {
	return content.Document{Collection: collection, Key: key, Data: data}
}

func TestPutAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Put(ctx, doc("projects", "my_project", content.Record{
		"name": "My Project",
		"meta": map[string]any{"title": "Meta"},
	}))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := s.Get(ctx, "projects", "my_project")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Collection != "projects" || got.Key != "my_project" {
		t.Errorf("Get() identity = %s/%s", got.Collection, got.Key)
	}
	if got.Data.String("name") != "My Project" {
		t.Errorf("name = %q", got.Data.String("name"))
	}
	if got.Data.String("meta.title") != "Meta" {
		t.Errorf("meta.title = %q", got.Data.String("meta.title"))
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "projects", "missing")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Get() error = %v, want NOT_FOUND", err)
	}
}

func TestPut_ReplaceKeepsOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if err := s.Put(ctx, doc("stories", k, content.Record{"title": k})); err != nil {
			t.Fatalf("Put(%s) error = %v", k, err)
		}
	}
	if err := s.Put(ctx, doc("stories", "a", content.Record{"title": "A2"})); err != nil {
		t.Fatalf("Put(a) replace error = %v", err)
	}

	all, err := s.All(ctx, "stories")
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("All() len = %d, want 3", len(all))
	}
	if all[0].Key != "a" || all[0].Data.String("title") != "A2" {
		t.Errorf("first = %s %q, want a A2", all[0].Key, all[0].Data.String("title"))
	}
	if all[2].Key != "c" {
		t.Errorf("last = %s, want c", all[2].Key)
	}
}

func TestPut_Invalid(t *testing.T) {
	s := newTestStore(t)

	err := s.Put(context.Background(), doc("projects", "", content.Record{}))
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("Put() error = %v, want INVALID_REQUEST", err)
	}
}

func TestAll_EmptyCollection(t *testing.T) {
	s := newTestStore(t)

	all, err := s.All(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Errorf("All() = %v, want empty non-nil", all)
	}
}

func TestQueryEqual(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docs := []content.Document{
		doc("projects", "p1", content.Record{"id": "Legacy_One", "slug": "legacy-one"}),
		doc("projects", "p2", content.Record{"id": float64(42)}),
		doc("projects", "p3", content.Record{"id": "legacy_one"}),
		doc("projects", "p4", content.Record{"body-image-1": "/b.jpg"}),
		doc("stories", "s1", content.Record{"id": "legacy_one"}),
	}
	if err := s.PutMany(ctx, docs); err != nil {
		t.Fatalf("PutMany() error = %v", err)
	}

	tests := []struct {
		name  string
		field string
		value string
		limit int
		want  []string
	}{
		{"case insensitive", "id", "legacy_one", 0, []string{"p1", "p3"}},
		{"limit", "id", "LEGACY_ONE", 1, []string{"p1"}},
		{"numeric", "id", "42", 0, []string{"p2"}},
		{"slug", "slug", "legacy-one", 0, []string{"p1"}},
		{"hyphenated field", "body-image-1", "/b.jpg", 0, []string{"p4"}},
		{"no match", "id", "nope", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.QueryEqual(ctx, "projects", tt.field, tt.value, tt.limit)
			if err != nil {
				t.Fatalf("QueryEqual() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("QueryEqual() len = %d, want %d", len(got), len(tt.want))
			}
			for i, w := range tt.want {
				if got[i].Key != w {
					t.Errorf("QueryEqual()[%d] = %s, want %s", i, got[i].Key, w)
				}
			}
		})
	}
}

func TestQueryEqual_InvalidField(t *testing.T) {
	s := newTestStore(t)

	for _, field := range []string{"", "id') OR 1=1 --", "a..b", "$.id"} {
		_, err := s.QueryEqual(context.Background(), "projects", field, "x", 1)
		if !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("QueryEqual(%q) error = %v, want INVALID_REQUEST", field, err)
		}
	}
}

func TestDeleteAndCollections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docs := []content.Document{
		doc("projects", "p1", content.Record{}),
		doc("projects", "p2", content.Record{}),
		doc("stories", "s1", content.Record{}),
	}
	if err := s.PutMany(ctx, docs); err != nil {
		t.Fatalf("PutMany() error = %v", err)
	}

	cols, err := s.Collections(ctx)
	if err != nil {
		t.Fatalf("Collections() error = %v", err)
	}
	if len(cols) != 2 || cols[0].Name != "projects" || cols[0].Count != 2 || cols[1].Name != "stories" {
		t.Errorf("Collections() = %+v", cols)
	}

	if err := s.Delete(ctx, "projects", "p1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "projects", "p1"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want NOT_FOUND", err)
	}

	n, err := s.DeleteCollection(ctx, "stories")
	if err != nil || n != 1 {
		t.Errorf("DeleteCollection() = %d, %v", n, err)
	}

	count, err := s.Count(ctx, "projects")
	if err != nil || count != 1 {
		t.Errorf("Count() = %d, %v", count, err)
	}
}

func TestPutMany_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docs := []content.Document{
		doc("projects", "ok", content.Record{}),
		doc("projects", "", content.Record{}),
	}
	if err := s.PutMany(ctx, docs); err == nil {
		t.Fatal("PutMany() expected error")
	}

	count, err := s.Count(ctx, "projects")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() = %d, want 0 after rollback", count)
	}
}

func TestReplaceCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutMany(ctx, []content.Document{
		doc("stories", "old", content.Record{"title": "Old"}),
		doc("projects", "keep", content.Record{}),
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.ReplaceCollection(ctx, "stories", []content.Document{
		doc("stories", "new", content.Record{"title": "New"}),
	}); err != nil {
		t.Fatalf("ReplaceCollection() error = %v", err)
	}

	docs, err := s.All(ctx, "stories")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Key != "new" {
		t.Errorf("stories = %+v", docs)
	}
	if n, _ := s.Count(ctx, "projects"); n != 1 {
		t.Errorf("other collection touched, count = %d", n)
	}

	// A foreign document aborts the swap and leaves the collection as it was.
	err = s.ReplaceCollection(ctx, "stories", []content.Document{
		doc("stories", "x", content.Record{}),
		doc("projects", "y", content.Record{}),
	})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("ReplaceCollection() error = %v, want INVALID_REQUEST", err)
	}
	docs, _ = s.All(ctx, "stories")
	if len(docs) != 1 || docs[0].Key != "new" {
		t.Errorf("stories after failed replace = %+v", docs)
	}
}
