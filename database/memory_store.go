package database

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a Store kept in process memory. Documents are held as JSON
// so callers never share state with the store.
type MemoryStore[T any] struct {
	mu     sync.RWMutex
	name   string
	unique []string
	docs   map[string][]byte
	order  []string
	now    func() time.Time
}

// NewMemoryStore returns an empty store enforcing the given unique fields.
func NewMemoryStore[T any](name string, unique ...string) *MemoryStore[T] {
	return &MemoryStore[T]{
		name:   name,
		unique: unique,
		docs:   make(map[string][]byte),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns one page of matching documents.
func (s *MemoryStore[T]) List(_ context.Context, opts ListOptions) (ListResult[T], error) {
	opts = opts.Normalized()

	s.mu.RLock()
	defer s.mu.RUnlock()

	type row struct {
		raw  []byte
		view map[string]any
	}
	rows := make([]row, 0, len(s.docs))
	for _, key := range s.order {
		raw := s.docs[key]
		view, err := decodeView(raw)
		if err != nil {
			return ListResult[T]{}, err
		}
		if matches(view, opts) {
			rows = append(rows, row{raw: raw, view: view})
		}
	}

	if opts.Sort != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			c := compareValues(lookup(rows[i].view, opts.Sort), lookup(rows[j].view, opts.Sort))
			if opts.Desc {
				return c > 0
			}
			return c < 0
		})
	}

	total := int64(len(rows))
	start := opts.Offset()
	if start > len(rows) {
		start = len(rows)
	}
	end := start + opts.Limit
	if end > len(rows) {
		end = len(rows)
	}

	items := make([]*T, 0, end-start)
	for _, r := range rows[start:end] {
		doc := new(T)
		if err := json.Unmarshal(r.raw, doc); err != nil {
			return ListResult[T]{}, fmt.Errorf("decode %s: %w", s.name, err)
		}
		items = append(items, doc)
	}
	return newListResult(items, total, opts), nil
}

// Get reads the document stored under key.
func (s *MemoryStore[T]) Get(_ context.Context, key string) (*T, error) {
	s.mu.RLock()
	raw, ok := s.docs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	doc := new(T)
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.name, err)
	}
	return doc, nil
}

// FindOne returns the first document matching filters.
func (s *MemoryStore[T]) FindOne(ctx context.Context, filters map[string]any) (*T, error) {
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
func (s *MemoryStore[T]) Create(_ context.Context, doc *T) error {
	d, err := prepareWrite(doc, s.now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := d.GetKey()
	if key == "" {
		key = uuid.NewString()
	} else if _, exists := s.docs[key]; exists {
		return ErrConflict
	}
	d.SetKey(key)

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.name, err)
	}
	if err := s.checkUnique(key, raw); err != nil {
		return err
	}
	s.docs[key] = raw
	s.order = append(s.order, key)
	return nil
}

// Replace overwrites the document under key, keeping its creation time.
func (s *MemoryStore[T]) Replace(ctx context.Context, key string, doc *T) error {
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

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[key]; !ok {
		return ErrNotFound
	}
	if err := s.checkUnique(key, raw); err != nil {
		return err
	}
	s.docs[key] = raw
	return nil
}

// Delete removes the document under key.
func (s *MemoryStore[T]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[key]; !ok {
		return ErrNotFound
	}
	delete(s.docs, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of documents matching filters.
func (s *MemoryStore[T]) Count(ctx context.Context, filters map[string]any) (int64, error) {
	res, err := s.List(ctx, ListOptions{Filters: filters, Limit: 1})
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

// checkUnique must be called with the write lock held.
func (s *MemoryStore[T]) checkUnique(key string, raw []byte) error {
	if len(s.unique) == 0 {
		return nil
	}
	view, err := decodeView(raw)
	if err != nil {
		return err
	}
	for otherKey, otherRaw := range s.docs {
		if otherKey == key {
			continue
		}
		other, err := decodeView(otherRaw)
		if err != nil {
			return err
		}
		for _, field := range s.unique {
			v := lookup(view, field)
			if v != nil && reflect.DeepEqual(v, lookup(other, field)) {
				return ErrConflict
			}
		}
	}
	return nil
}

func decodeView(raw []byte) (map[string]any, error) {
	var view map[string]any
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, fmt.Errorf("decode document view: %w", err)
	}
	return view, nil
}

// lookup resolves a dotted field path in a decoded document.
func lookup(view map[string]any, field string) any {
	var cur any = view
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// normalize converts a filter value to the form JSON decoding produces.
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func matches(view map[string]any, opts ListOptions) bool {
	for field, want := range opts.Filters {
		if !reflect.DeepEqual(lookup(view, field), normalize(want)) {
			return false
		}
	}
	for field, want := range opts.Contains {
		list, _ := lookup(view, field).([]any)
		found := false
		for _, item := range list {
			if reflect.DeepEqual(item, normalize(want)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if term := strings.ToLower(strings.TrimSpace(opts.Search)); term != "" && len(opts.SearchFields) > 0 {
		for _, field := range opts.SearchFields {
			if s, ok := lookup(view, field).(string); ok && strings.Contains(strings.ToLower(s), term) {
				return true
			}
		}
		return false
	}
	return true
}

// compareValues orders values the way the ArangoDB SORT clause does for the
// types stored here: null < bool < number < string.
func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		y := b.(string)
		ta, errA := time.Parse(time.RFC3339Nano, x)
		tb, errB := time.Parse(time.RFC3339Nano, y)
		if errA == nil && errB == nil {
			return ta.Compare(tb)
		}
		return strings.Compare(x, y)
	}
	return 0
}

func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	}
	return 4
}
