package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"mathe-challenge-service/internal/docstore"
	"mathe-challenge-service/internal/domain"
)

type scoreDoc struct {
	User      string `json:"user"`
	Score     int    `json:"score"`
	TimeSpent int    `json:"timeSpent"`
	Challenge string `json:"challengeId"`
}

func TestGetMissingDocument(t *testing.T) {
	store := NewStore()
	if _, err := store.Collection("challenges").Get(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestAddAssignsIDAndTimestamps(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewStoreWithClock(func() time.Time { return now })
	coll := store.Collection("challenges")

	doc, err := coll.Add(context.Background(), scoreDoc{User: "u1", Score: 10})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if doc.ID == "" {
		t.Fatalf("expected assigned id")
	}
	if !doc.CreateTime.Equal(now) || !doc.UpdateTime.Equal(now) {
		t.Fatalf("expected clock timestamps, got %v/%v", doc.CreateTime, doc.UpdateTime)
	}

	got, err := coll.Get(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var decoded scoreDoc
	if err := got.Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.User != "u1" || decoded.Score != 10 {
		t.Fatalf("unexpected round trip: %+v", decoded)
	}
}

func TestSetUpsertsAndKeepsCreateTime(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewStoreWithClock(func() time.Time { return now })
	coll := store.Collection("leaderboard")

	first, err := coll.Set(context.Background(), "u1_ch-1", scoreDoc{User: "u1", Score: 10})
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	now = now.Add(time.Hour)
	second, err := coll.Set(context.Background(), "u1_ch-1", scoreDoc{User: "u1", Score: 20})
	if err != nil {
		t.Fatalf("re-set: %v", err)
	}
	if !second.CreateTime.Equal(first.CreateTime) {
		t.Fatalf("upsert must keep creation time, got %v want %v", second.CreateTime, first.CreateTime)
	}
	if !second.UpdateTime.After(first.UpdateTime) {
		t.Fatalf("update time must advance, got %v", second.UpdateTime)
	}

	docs, err := coll.GetAll(context.Background())
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("upsert must not duplicate, got %d docs", len(docs))
	}
}

func TestQueryFiltersOrdersAndLimits(t *testing.T) {
	store := NewStore()
	coll := store.Collection("leaderboard")
	seed := []scoreDoc{
		{User: "u1", Score: 90, TimeSpent: 200, Challenge: "ch-1"},
		{User: "u2", Score: 80, TimeSpent: 90, Challenge: "ch-1"},
		{User: "u3", Score: 80, TimeSpent: 120, Challenge: "ch-1"},
		{User: "u4", Score: 100, TimeSpent: 10, Challenge: "ch-2"},
	}
	for _, doc := range seed {
		if _, err := coll.Add(context.Background(), doc); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	docs, err := coll.Query(context.Background(), docstore.Query{
		Filters: []docstore.Filter{{Field: "challengeId", Value: "ch-1"}},
		Orders: []docstore.Order{
			{Field: "score", Desc: true},
			{Field: "timeSpent"},
		},
		Limit: 2,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected limit applied, got %d", len(docs))
	}
	var first, second scoreDoc
	if err := docs[0].Decode(&first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := docs[1].Decode(&second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.User != "u1" || second.User != "u2" {
		t.Fatalf("expected u1 then u2 (faster tie first), got %s then %s", first.User, second.User)
	}
}

func TestQueryTiesKeepInsertionOrder(t *testing.T) {
	store := NewStore()
	coll := store.Collection("leaderboard")
	for _, user := range []string{"first", "second", "third"} {
		if _, err := coll.Add(context.Background(), scoreDoc{User: user, Score: 50, TimeSpent: 60, Challenge: "ch-1"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	docs, err := coll.Query(context.Background(), docstore.Query{
		Orders: []docstore.Order{
			{Field: "score", Desc: true},
			{Field: "timeSpent"},
		},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, w := range want {
		var decoded scoreDoc
		if err := docs[i].Decode(&decoded); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if decoded.User != w {
			t.Fatalf("position %d: expected %s, got %s", i, w, decoded.User)
		}
	}
}
