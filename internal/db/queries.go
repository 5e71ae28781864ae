package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dewco/dewsite/internal/content"
	"github.com/dewco/dewsite/internal/errors"
)

// fieldRegex limits QueryEqual to plain dotted field names; the field is
// spliced into a JSON path, never into SQL text.
var fieldRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*(\.[A-Za-z_][A-Za-z0-9_-]*)*$`)

// Store is the document store over the documents table.
// It satisfies content.DocumentStore.
type Store struct {
	db *sql.DB
}

// NewStore wraps an initialized database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// All returns every document in collection in insertion order.
func (s *Store) All(ctx context.Context, collection string) ([]content.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, doc_key, data_json
		FROM documents
		WHERE collection = ?
		ORDER BY rowid ASC
	`, collection)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// Get returns the document stored under key, or NOT_FOUND.
func (s *Store) Get(ctx context.Context, collection, key string) (*content.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT collection, doc_key, data_json
		FROM documents
		WHERE collection = ? AND doc_key = ?
	`, collection, key)

	var doc content.Document
	var dataJSON string
	if err := row.Scan(&doc.Collection, &doc.Key, &dataJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound(collection, key)
		}
		return nil, errors.NewInternal(err)
	}
	if err := json.Unmarshal([]byte(dataJSON), &doc.Data); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("decode %s/%s: %w", collection, key, err))
	}
	return &doc, nil
}

// QueryEqual returns documents whose field equals value, compared as text
// and case-insensitively. A limit of zero or less means no limit.
func (s *Store) QueryEqual(ctx context.Context, collection, field, value string, limit int) ([]content.Document, error) {
	if !fieldRegex.MatchString(field) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid field name %q", field))
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, doc_key, data_json
		FROM documents
		WHERE collection = ?
		  AND LOWER(CAST(json_extract(data_json, ?) AS TEXT)) = LOWER(?)
		ORDER BY rowid ASC
		LIMIT ?
	`, collection, jsonPath(field), value, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// jsonPath quotes each segment so hyphenated keys resolve.
func jsonPath(field string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, part := range strings.Split(field, ".") {
		b.WriteString(`."`)
		b.WriteString(part)
		b.WriteString(`"`)
	}
	return b.String()
}

// Put inserts or replaces the document under key. created_at and the
// document's position in collection order survive a replace.
func (s *Store) Put(ctx context.Context, doc content.Document) error {
	return putDocument(ctx, s.db, doc, time.Now().Unix())
}

// PutMany writes docs in one transaction.
func (s *Store) PutMany(ctx context.Context, docs []content.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, doc := range docs {
		if err := putDocument(ctx, tx, doc, now); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ReplaceCollection swaps the whole content of collection for docs in one
// transaction. Every doc must belong to collection.
func (s *Store) ReplaceCollection(ctx context.Context, collection string, docs []content.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, collection); err != nil {
		return errors.NewInternal(err)
	}
	now := time.Now().Unix()
	for _, doc := range docs {
		if doc.Collection != collection {
			return errors.NewInvalidRequest(fmt.Sprintf("document %s/%s is not in collection %s", doc.Collection, doc.Key, collection))
		}
		if err := putDocument(ctx, tx, doc, now); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putDocument(ctx context.Context, ex execer, doc content.Document, now int64) error {
	if doc.Collection == "" || doc.Key == "" {
		return errors.NewInvalidRequest("document requires collection and key")
	}
	data := doc.Data
	if data == nil {
		data = content.Record{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("document %s/%s: %v", doc.Collection, doc.Key, err))
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO documents (collection, doc_key, data_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, doc_key) DO UPDATE SET
		  data_json = excluded.data_json,
		  updated_at = excluded.updated_at
	`, doc.Collection, doc.Key, string(dataJSON), now, now)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Delete removes one document. Returns NOT_FOUND if it did not exist.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND doc_key = ?`, collection, key)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(collection, key)
	}
	return nil
}

// DeleteCollection removes every document in collection and returns the count.
func (s *Store) DeleteCollection(ctx context.Context, collection string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, collection)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// CollectionCount is a collection name with its document count.
type CollectionCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Collections lists every non-empty collection, alphabetically.
func (s *Store) Collections(ctx context.Context) ([]CollectionCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, COUNT(*)
		FROM documents
		GROUP BY collection
		ORDER BY collection ASC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	out := []CollectionCount{}
	for rows.Next() {
		var c CollectionCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// Count returns the number of documents in collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// scanDocuments reads (collection, doc_key, data_json) rows.
func scanDocuments(rows *sql.Rows) ([]content.Document, error) {
	out := []content.Document{}
	for rows.Next() {
		var doc content.Document
		var dataJSON string
		if err := rows.Scan(&doc.Collection, &doc.Key, &dataJSON); err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := json.Unmarshal([]byte(dataJSON), &doc.Data); err != nil {
			return nil, errors.NewInternal(fmt.Errorf("decode %s/%s: %w", doc.Collection, doc.Key, err))
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}
