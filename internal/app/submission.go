package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"mathe-challenge-service/internal/docstore"
	"mathe-challenge-service/internal/domain"
)

// SubmissionService records completed attempts. Each submission is two
// sequential single-document writes: an append to the immutable attempts log,
// then a latest-wins upsert of the per-user-per-challenge leaderboard slot.
// There is no multi-document transaction, so a failed upsert after a
// successful append is surfaced as domain.PartialFailureError.
type SubmissionService struct {
	store docstore.Store
	now   func() time.Time
	log   *logrus.Logger
}

func NewSubmissionService(store docstore.Store, log *logrus.Logger) *SubmissionService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SubmissionService{store: store, now: time.Now, log: log}
}

// Submit writes one completed attempt and returns the log record's id. The
// session's terminal-state guard ensures this is called at most once per
// session, so no idempotency key is taken; callers must not blindly retry a
// timed-out submission without checking session state first.
func (s *SubmissionService) Submit(ctx context.Context, in domain.AttemptInput) (string, error) {
	if in.UserID == "" {
		return "", &domain.ValidationError{Field: "userId", Reason: "must not be empty"}
	}
	if in.ChallengeID == "" {
		return "", &domain.ValidationError{Field: "challengeId", Reason: "must not be empty"}
	}
	if in.TotalQuestions <= 0 {
		return "", &domain.ValidationError{Field: "totalQuestions", Reason: "must be positive"}
	}
	if in.CorrectAnswers < 0 || in.CorrectAnswers > in.TotalQuestions {
		return "", &domain.ValidationError{Field: "correctAnswers", Reason: "must be between 0 and totalQuestions"}
	}
	if in.TimeSpent < 0 {
		return "", &domain.ValidationError{Field: "timeSpent", Reason: "must not be negative"}
	}

	attempt := domain.Attempt{
		UserID:         in.UserID,
		UserName:       in.UserName,
		UserPhotoURL:   in.UserPhotoURL,
		ChallengeID:    in.ChallengeID,
		Score:          in.Score,
		CorrectAnswers: in.CorrectAnswers,
		TotalQuestions: in.TotalQuestions,
		TimeSpent:      in.TimeSpent,
		CompletedAt:    s.now().UTC(),
		Answers:        in.Answers,
	}

	doc, err := s.store.Collection(docstore.ChallengeAttempts).Add(ctx, attempt)
	if err != nil {
		// abort before the upsert: no leaderboard entry may reference a
		// missing attempt
		return "", fmt.Errorf("append attempt: %w", err)
	}

	record := domain.LeaderboardRecord{
		Attempt:     attempt,
		AttemptID:   doc.ID,
		LastUpdated: s.now().UTC(),
	}
	key := LeaderboardKey(in.UserID, in.ChallengeID)
	if _, err := s.store.Collection(docstore.Leaderboard).Set(ctx, key, record); err != nil {
		s.log.WithFields(logrus.Fields{
			"attemptId": doc.ID,
			"key":       key,
		}).WithError(err).Warn("attempt recorded but leaderboard upsert failed")
		return doc.ID, &domain.PartialFailureError{AttemptID: doc.ID, Err: err}
	}

	s.log.WithFields(logrus.Fields{
		"attemptId":   doc.ID,
		"userId":      in.UserID,
		"challengeId": in.ChallengeID,
		"score":       in.Score,
	}).Info("attempt submitted")
	return doc.ID, nil
}

// LeaderboardKey builds the composite document key for the latest-wins
// leaderboard projection.
func LeaderboardKey(userID, challengeID string) string {
	return userID + "_" + challengeID
}
