// Package docstore defines the document-store collaborator contract used by
// the challenge subsystem: three logical collections addressed by id, plus
// equality-filtered queries with a compound two-key sort and a result limit.
package docstore

import (
	"context"
	"encoding/json"
	"time"
)

// Collection names used by the challenge subsystem.
const (
	Challenges        = "challenges"
	ChallengeAttempts = "challengeAttempts"
	Leaderboard       = "leaderboard"
)

// Document is a stored record plus store-assigned metadata.
type Document struct {
	ID         string
	Data       json.RawMessage
	CreateTime time.Time
	UpdateTime time.Time
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

// Filter matches documents whose top-level field equals Value.
type Filter struct {
	Field string
	Value any
}

// Order sorts results by a top-level field. Numbers compare numerically,
// strings lexically; RFC 3339 UTC timestamps therefore sort chronologically.
type Order struct {
	Field string
	Desc  bool
}

// Query is an equality-filtered, ordered, limited read over one collection.
// Ordering on fully tied keys is stable: implementations preserve insertion
// order (memory) or fall back to creation time then id (postgres).
type Query struct {
	Filters []Filter
	Orders  []Order
	Limit   int
}

// Collection exposes the per-collection primitives. Get returns
// domain.ErrNotFound (wrapped) when no record matches. Add assigns the id and
// creation time; Set upserts unconditionally at the given id.
type Collection interface {
	Get(ctx context.Context, id string) (Document, error)
	GetAll(ctx context.Context) ([]Document, error)
	Add(ctx context.Context, v any) (Document, error)
	Set(ctx context.Context, id string, v any) (Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
}

// Store hands out named collections. Individual document writes are atomic;
// there are no multi-document transactions.
type Store interface {
	Collection(name string) Collection
}
