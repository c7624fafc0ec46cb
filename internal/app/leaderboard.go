package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"mathe-challenge-service/internal/docstore"
	"mathe-challenge-service/internal/domain"
)

const (
	// DefaultLeaderboardLimit caps a ranked read when the caller passes no limit.
	DefaultLeaderboardLimit = 10
	// defaultRetries bounds the re-query rounds after an empty or retryable read.
	defaultRetries    = 2
	defaultRetryBase  = 500 * time.Millisecond
	defaultIndexDelay = time.Second
)

// LeaderboardService computes ranked leaderboards. Because the projection is
// written asynchronously relative to this read path, a read right after a
// submission may see nothing; the service re-queries a bounded number of
// times with a growing delay instead of looping until data appears.
type LeaderboardService struct {
	store      docstore.Store
	retries    int
	retryBase  time.Duration
	indexDelay time.Duration
	log        *logrus.Logger
}

// LeaderboardOption tweaks retry behavior; tests shrink the delays.
type LeaderboardOption func(*LeaderboardService)

func WithRetries(n int) LeaderboardOption {
	return func(s *LeaderboardService) { s.retries = n }
}

func WithRetryBase(d time.Duration) LeaderboardOption {
	return func(s *LeaderboardService) { s.retryBase = d }
}

func WithIndexDelay(d time.Duration) LeaderboardOption {
	return func(s *LeaderboardService) { s.indexDelay = d }
}

func NewLeaderboardService(store docstore.Store, log *logrus.Logger, opts ...LeaderboardOption) *LeaderboardService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &LeaderboardService{
		store:      store,
		retries:    defaultRetries,
		retryBase:  defaultRetryBase,
		indexDelay: defaultIndexDelay,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetLeaderboard returns up to limit entries for a challenge ordered by score
// descending, then timeSpent ascending. Ranks are 1-based positions in that
// order; full ties still get distinct successive ranks in the store's stable
// read order. A missing challenge yields an empty, valid leaderboard.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, challengeID string, limit int) ([]domain.LeaderboardEntry, error) {
	if challengeID == "" {
		return nil, &domain.ValidationError{Field: "challengeId", Reason: "must not be empty"}
	}
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}

	if _, err := s.store.Collection(docstore.Challenges).Get(ctx, challengeID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// nobody could have completed a challenge that does not exist,
			// but an empty board is still the right answer
			s.log.WithField("challengeId", challengeID).Debug("leaderboard read for unknown challenge")
		} else if !domain.Retryable(err) {
			return nil, err
		}
	}

	var entries []domain.LeaderboardEntry
	var lastErr error
	for round := 0; round <= s.retries; round++ {
		if round > 0 {
			delay := time.Duration(round) * s.retryBase
			if errors.Is(lastErr, domain.ErrIndexNotReady) {
				delay += s.indexDelay
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		entries, lastErr = s.read(ctx, challengeID, limit)
		if lastErr == nil && len(entries) > 0 {
			return entries, nil
		}
		if lastErr != nil && !domain.Retryable(lastErr) {
			return nil, lastErr
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("leaderboard read failed after %d retries: %w", s.retries, lastErr)
	}
	// empty after the final round; accept it
	return entries, nil
}

func (s *LeaderboardService) read(ctx context.Context, challengeID string, limit int) ([]domain.LeaderboardEntry, error) {
	q := docstore.Query{
		Filters: []docstore.Filter{{Field: "challengeId", Value: challengeID}},
		Orders: []docstore.Order{
			{Field: "score", Desc: true},
			{Field: "timeSpent"},
		},
		Limit: limit,
	}

	docs, err := s.store.Collection(docstore.Leaderboard).Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		// the projection may lag the log right after a submission
		docs, err = s.store.Collection(docstore.ChallengeAttempts).Query(ctx, q)
		if err != nil {
			return nil, err
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(docs))
	for i, doc := range docs {
		var record domain.LeaderboardRecord
		if err := doc.Decode(&record); err != nil {
			return nil, fmt.Errorf("decode leaderboard entry %s: %w", doc.ID, err)
		}
		entries = append(entries, domain.LeaderboardEntry{LeaderboardRecord: record, Rank: i + 1})
	}
	return entries, nil
}
