package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mathe-challenge-service/internal/docstore"
	"mathe-challenge-service/internal/domain"
)

// Store is an in-memory docstore.Store used by tests and store-less demo runs.
// Ordering on fully tied sort keys is stable in insertion order.
type Store struct {
	mu          sync.RWMutex
	clock       func() time.Time
	seq         int
	collections map[string]map[string]*record
}

type record struct {
	doc    docstore.Document
	fields map[string]any
	seq    int
}

func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock allows deterministic timestamps in tests.
func NewStoreWithClock(clock func() time.Time) *Store {
	return &Store{
		clock:       clock,
		collections: make(map[string]map[string]*record),
	}
}

func (s *Store) Collection(name string) docstore.Collection {
	return &collection{store: s, name: name}
}

type collection struct {
	store *Store
	name  string
}

func (c *collection) Get(_ context.Context, id string) (docstore.Document, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	if rec, ok := c.store.collections[c.name][id]; ok {
		return rec.doc, nil
	}
	return docstore.Document{}, fmt.Errorf("%s/%s: %w", c.name, id, domain.ErrNotFound)
}

func (c *collection) GetAll(_ context.Context) ([]docstore.Document, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	docs := make([]docstore.Document, 0, len(c.store.collections[c.name]))
	for _, rec := range c.recordsLocked() {
		docs = append(docs, rec.doc)
	}
	return docs, nil
}

func (c *collection) Add(_ context.Context, v any) (docstore.Document, error) {
	doc, fields, err := encode(v)
	if err != nil {
		return docstore.Document{}, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	now := c.store.clock().UTC()
	doc.ID = uuid.NewString()
	doc.CreateTime = now
	doc.UpdateTime = now
	c.putLocked(doc, fields)
	return doc, nil
}

func (c *collection) Set(_ context.Context, id string, v any) (docstore.Document, error) {
	doc, fields, err := encode(v)
	if err != nil {
		return docstore.Document{}, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	now := c.store.clock().UTC()
	doc.ID = id
	doc.CreateTime = now
	doc.UpdateTime = now
	if prev, ok := c.store.collections[c.name][id]; ok {
		doc.CreateTime = prev.doc.CreateTime
	}
	c.putLocked(doc, fields)
	return doc, nil
}

func (c *collection) Query(_ context.Context, q docstore.Query) ([]docstore.Document, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	matched := make([]*record, 0)
	for _, rec := range c.recordsLocked() {
		if matches(rec.fields, q.Filters) {
			matched = append(matched, rec)
		}
	}

	// Stable sort keeps insertion order when every sort key ties.
	sort.SliceStable(matched, func(i, j int) bool {
		for _, ord := range q.Orders {
			cmp := compareValues(matched[i].fields[ord.Field], matched[j].fields[ord.Field])
			if cmp == 0 {
				continue
			}
			if ord.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	docs := make([]docstore.Document, 0, len(matched))
	for _, rec := range matched {
		docs = append(docs, rec.doc)
	}
	return docs, nil
}

func (c *collection) putLocked(doc docstore.Document, fields map[string]any) {
	coll, ok := c.store.collections[c.name]
	if !ok {
		coll = make(map[string]*record)
		c.store.collections[c.name] = coll
	}
	seq := c.store.seq
	if prev, exists := coll[doc.ID]; exists {
		seq = prev.seq
	} else {
		c.store.seq++
	}
	coll[doc.ID] = &record{doc: doc, fields: fields, seq: seq}
}

// recordsLocked returns the collection's records in insertion order.
func (c *collection) recordsLocked() []*record {
	coll := c.store.collections[c.name]
	recs := make([]*record, 0, len(coll))
	for _, rec := range coll {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	return recs
}

func encode(v any) (docstore.Document, map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return docstore.Document{}, nil, fmt.Errorf("encode document: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return docstore.Document{}, nil, fmt.Errorf("decode document fields: %w", err)
	}
	return docstore.Document{Data: data}, fields, nil
}

func matches(fields map[string]any, filters []docstore.Filter) bool {
	for _, f := range filters {
		if compareValues(fields[f.Field], normalize(f.Value)) != 0 {
			return false
		}
	}
	return true
}

// normalize funnels a filter value through JSON so it compares against the
// float64/string/bool values the decoded documents hold.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 1
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		bv, ok := b.(string)
		if !ok {
			return 1
		}
		return strings.Compare(av, bv)
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 1
		}
		switch {
		case av == bv:
			return 0
		case bv:
			return -1
		}
		return 1
	case nil:
		if b == nil {
			return 0
		}
		return -1
	default:
		return 0
	}
}
