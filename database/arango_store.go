package database

import (
	"context"
	"fmt"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/arangodb/shared"
)

// ArangoStore is a Store backed by one ArangoDB collection.
type ArangoStore[T any] struct {
	db   arangodb.Database
	col  arangodb.Collection
	name string
	now  func() time.Time
}

// NewArangoStore returns a store for the named collection of conn.
func NewArangoStore[T any](conn DBConnection, name string) *ArangoStore[T] {
	return &ArangoStore[T]{
		db:   conn.Database,
		col:  conn.Collections[name],
		name: name,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// List returns one page of matching documents.
func (s *ArangoStore[T]) List(ctx context.Context, opts ListOptions) (ListResult[T], error) {
	opts = opts.Normalized()
	lq := buildListQuery(s.name, opts)

	total, err := s.count(ctx, lq.CountQuery, lq.CountVars)
	if err != nil {
		return ListResult[T]{}, err
	}

	cursor, err := s.db.Query(ctx, lq.Query, &arangodb.QueryOptions{
		BindVars: lq.BindVars,
	})
	if err != nil {
		return ListResult[T]{}, fmt.Errorf("list %s: %w", s.name, err)
	}
	defer cursor.Close()

	items := make([]*T, 0, opts.Limit)
	for cursor.HasMore() {
		doc := new(T)
		if _, err := cursor.ReadDocument(ctx, doc); err != nil {
			return ListResult[T]{}, fmt.Errorf("read %s: %w", s.name, err)
		}
		items = append(items, doc)
	}

	return newListResult(items, total, opts), nil
}

// Get reads the document stored under key.
func (s *ArangoStore[T]) Get(ctx context.Context, key string) (*T, error) {
	doc := new(T)
	if _, err := s.col.ReadDocument(ctx, key, doc); err != nil {
		if shared.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", s.name, key, err)
	}
	return doc, nil
}

// FindOne returns the first document matching filters.
func (s *ArangoStore[T]) FindOne(ctx context.Context, filters map[string]any) (*T, error) {
	res, err := s.List(ctx, ListOptions{Filters: filters, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, ErrNotFound
	}
	return res.Items[0], nil
}

// Create inserts doc and sets its key.
func (s *ArangoStore[T]) Create(ctx context.Context, doc *T) error {
	d, err := prepareWrite(doc, s.now())
	if err != nil {
		return err
	}
	meta, err := s.col.CreateDocument(ctx, doc)
	if err != nil {
		if isConflict(err) {
			return ErrConflict
		}
		return fmt.Errorf("create %s: %w", s.name, err)
	}
	d.SetKey(meta.Key)
	return nil
}

// Replace overwrites the document under key, keeping its creation time.
func (s *ArangoStore[T]) Replace(ctx context.Context, key string, doc *T) error {
	existing, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	keepCreatedAt(existing, doc)

	d, err := prepareWrite(doc, s.now())
	if err != nil {
		return err
	}
	d.SetKey(key)

	if _, err := s.col.ReplaceDocument(ctx, key, doc); err != nil {
		switch {
		case shared.IsNotFound(err):
			return ErrNotFound
		case isConflict(err):
			return ErrConflict
		}
		return fmt.Errorf("replace %s/%s: %w", s.name, key, err)
	}
	return nil
}

// Delete removes the document under key.
func (s *ArangoStore[T]) Delete(ctx context.Context, key string) error {
	if _, err := s.col.DeleteDocument(ctx, key); err != nil {
		if shared.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s/%s: %w", s.name, key, err)
	}
	return nil
}

// isConflict reports a write rejected by a unique index or a revision check.
func isConflict(err error) bool {
	return shared.IsConflict(err) || shared.IsArangoErrorWithErrorNum(err, shared.ErrArangoUniqueConstraintViolated)
}

// Count returns the number of documents matching filters.
func (s *ArangoStore[T]) Count(ctx context.Context, filters map[string]any) (int64, error) {
	lq := buildListQuery(s.name, ListOptions{Filters: filters})
	return s.count(ctx, lq.CountQuery, lq.CountVars)
}

func (s *ArangoStore[T]) count(ctx context.Context, query string, bindVars map[string]any) (int64, error) {
	cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", s.name, err)
	}
	defer cursor.Close()

	var total int64
	if cursor.HasMore() {
		if _, err := cursor.ReadDocument(ctx, &total); err != nil {
			return 0, fmt.Errorf("count %s: %w", s.name, err)
		}
	}
	return total, nil
}
