package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"mathe-challenge-service/internal/catalog"
	"mathe-challenge-service/internal/domain"
	"mathe-challenge-service/internal/infra/memory"
)

func TestGetChallengeReportsAbsence(t *testing.T) {
	repo := NewChallengeRepository(memory.NewStore(), nil)
	if _, err := repo.GetChallenge(context.Background(), "missing"); !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Fatalf("expected challenge-not-found, got %v", err)
	}
}

func TestEnsureSeededIsIdempotentPerTitle(t *testing.T) {
	store := memory.NewStore()
	repo := NewChallengeRepository(store, nil)

	first, err := repo.EnsureSeeded(context.Background(), catalog.Challenges())
	if err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if len(first) != len(catalog.Challenges()) {
		t.Fatalf("expected %d ids, got %d", len(catalog.Challenges()), len(first))
	}

	second, err := repo.EnsureSeeded(context.Background(), catalog.Challenges())
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("reseeding must reuse ids, got %v then %v", first, second)
		}
	}

	challenges, err := repo.GetAllChallenges(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(challenges) != len(catalog.Challenges()) {
		t.Fatalf("expected no duplicates, got %d challenges", len(challenges))
	}

	loaded, err := repo.GetChallenge(context.Background(), first[0])
	if err != nil {
		t.Fatalf("get seeded: %v", err)
	}
	if loaded.Title != catalog.Challenges()[0].Title {
		t.Fatalf("expected %q, got %q", catalog.Challenges()[0].Title, loaded.Title)
	}
	if loaded.ID != first[0] {
		t.Fatalf("expected store id on loaded challenge, got %q", loaded.ID)
	}
}

func TestEnsureSeededRejectsInvalidTemplate(t *testing.T) {
	repo := NewChallengeRepository(memory.NewStore(), nil)
	bad := threeQuestionChallenge()
	bad.TotalPoints = 999
	var verr *domain.ValidationError
	if _, err := repo.EnsureSeeded(context.Background(), []domain.Challenge{bad}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUserAttemptHistoryNewestFirst(t *testing.T) {
	store := memory.NewStore()
	repo := NewChallengeRepository(store, nil)
	svc := NewSubmissionService(store, nil)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(time.Hour), base.Add(30 * time.Minute)}
	scores := []int{10, 30, 20}
	for i := range times {
		at := times[i]
		svc.now = func() time.Time { return at }
		in := validInput()
		in.Score = scores[i]
		if _, err := svc.Submit(context.Background(), in); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	attempts, err := repo.GetUserChallengeAttempts(context.Background(), "u1", "ch-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(attempts))
	}
	wantScores := []int{30, 20, 10} // newest first
	for i, want := range wantScores {
		if attempts[i].Score != want {
			t.Fatalf("position %d: expected score %d, got %d", i, want, attempts[i].Score)
		}
	}

	best, ok, err := repo.GetUserBestAttempt(context.Background(), "u1", "ch-1")
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	if !ok || best.Score != 30 {
		t.Fatalf("expected best score 30, got ok=%v %+v", ok, best)
	}

	if _, ok, err := repo.GetUserBestAttempt(context.Background(), "nobody", "ch-1"); err != nil || ok {
		t.Fatalf("expected no best attempt, got ok=%v err=%v", ok, err)
	}
}
