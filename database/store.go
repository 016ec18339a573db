package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/certiva/website-backend/model"
)

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("database: document not found")
	// ErrConflict is returned when a write violates a unique index.
	ErrConflict = errors.New("database: unique constraint violated")
)

// Paging defaults.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListOptions controls filtering, searching, sorting and paging.
// Field names may use dots to address nested attributes.
type ListOptions struct {
	// Filters are equality matches.
	Filters map[string]any
	// Contains matches documents whose array field holds the value.
	Contains map[string]any
	// Search is a case-insensitive substring matched against SearchFields.
	Search       string
	SearchFields []string
	Sort         string
	Desc         bool
	Page         int
	Limit        int
}

// Normalized returns a copy with paging defaults applied.
func (o ListOptions) Normalized() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	return o
}

// Offset is the number of documents skipped for the current page.
func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// ListResult is one page of documents.
type ListResult[T any] struct {
	Items []*T  `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

func newListResult[T any](items []*T, total int64, opts ListOptions) ListResult[T] {
	if items == nil {
		items = []*T{}
	}
	pages := 0
	if total > 0 {
		pages = int((total + int64(opts.Limit) - 1) / int64(opts.Limit))
	}
	return ListResult[T]{Items: items, Total: total, Page: opts.Page, Limit: opts.Limit, Pages: pages}
}

// Store persists documents of one type.
type Store[T any] interface {
	List(ctx context.Context, opts ListOptions) (ListResult[T], error)
	Get(ctx context.Context, key string) (*T, error)
	FindOne(ctx context.Context, filters map[string]any) (*T, error)
	Create(ctx context.Context, doc *T) error
	Replace(ctx context.Context, key string, doc *T) error
	Delete(ctx context.Context, key string) error
	Count(ctx context.Context, filters map[string]any) (int64, error)
}

// prepareWrite runs the document's hooks and validation and stamps its
// timestamps. It returns the document as a model.Document.
func prepareWrite[T any](doc *T, now time.Time) (model.Document, error) {
	d, ok := any(doc).(model.Document)
	if !ok {
		return nil, fmt.Errorf("database: %T does not implement model.Document", doc)
	}
	if p, ok := any(doc).(model.Preparer); ok {
		if err := p.Prepare(now); err != nil {
			return nil, err
		}
	}
	if v, ok := any(doc).(model.Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	d.Touch(now)
	return d, nil
}

// keepCreatedAt copies the creation time of prev onto doc.
func keepCreatedAt[T any](prev, doc *T) {
	p, ok := any(prev).(model.Document)
	if !ok {
		return
	}
	if d, ok := any(doc).(model.Document); ok {
		d.SetCreatedAt(p.GetCreatedAt())
	}
}
