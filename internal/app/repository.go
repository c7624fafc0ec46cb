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

// ChallengeRepository reads challenge definitions and attempt history from
// the document store and seeds the static catalog when titles are missing.
type ChallengeRepository struct {
	store docstore.Store
	now   func() time.Time
	log   *logrus.Logger
}

func NewChallengeRepository(store docstore.Store, log *logrus.Logger) *ChallengeRepository {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ChallengeRepository{store: store, now: time.Now, log: log}
}

// GetChallenge fetches one challenge by id. Absence is reported as
// domain.ErrChallengeNotFound; callers recover it locally rather than
// treating it as a failure.
func (r *ChallengeRepository) GetChallenge(ctx context.Context, id string) (domain.Challenge, error) {
	doc, err := r.store.Collection(docstore.Challenges).Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Challenge{}, domain.ErrChallengeNotFound
	}
	if err != nil {
		return domain.Challenge{}, err
	}
	return decodeChallenge(doc)
}

// GetAllChallenges lists every stored challenge. Order follows the store's
// creation order and is not otherwise guaranteed.
func (r *ChallengeRepository) GetAllChallenges(ctx context.Context) ([]domain.Challenge, error) {
	docs, err := r.store.Collection(docstore.Challenges).GetAll(ctx)
	if err != nil {
		return nil, err
	}
	challenges := make([]domain.Challenge, 0, len(docs))
	for _, doc := range docs {
		challenge, err := decodeChallenge(doc)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, challenge)
	}
	return challenges, nil
}

// EnsureSeeded creates each catalog challenge whose title is not stored yet
// and returns the ids in catalog order. Repeated calls reuse existing ids, so
// seeding is idempotent per title. Two processes racing on a never-seen title
// can both create it; that duplicate is an accepted tradeoff of the
// title-existence check, not something worth a distributed lock.
func (r *ChallengeRepository) EnsureSeeded(ctx context.Context, catalog []domain.Challenge) ([]string, error) {
	coll := r.store.Collection(docstore.Challenges)
	ids := make([]string, 0, len(catalog))
	for _, template := range catalog {
		if err := template.Validate(); err != nil {
			return nil, fmt.Errorf("catalog challenge %q: %w", template.Title, err)
		}

		existing, err := coll.Query(ctx, docstore.Query{
			Filters: []docstore.Filter{{Field: "title", Value: template.Title}},
			Orders:  []docstore.Order{{Field: "createdAt"}},
			Limit:   1,
		})
		if err != nil {
			return nil, fmt.Errorf("check challenge %q: %w", template.Title, err)
		}
		if len(existing) > 0 {
			ids = append(ids, existing[0].ID)
			continue
		}

		template.ID = ""
		template.CreatedAt = r.now().UTC()
		doc, err := coll.Add(ctx, template)
		if err != nil {
			return nil, fmt.Errorf("seed challenge %q: %w", template.Title, err)
		}
		r.log.WithFields(logrus.Fields{"title": template.Title, "id": doc.ID}).Info("seeded challenge")
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// GetUserChallengeAttempts returns a user's attempt history for one
// challenge, newest first.
func (r *ChallengeRepository) GetUserChallengeAttempts(ctx context.Context, userID, challengeID string) ([]domain.Attempt, error) {
	docs, err := r.store.Collection(docstore.ChallengeAttempts).Query(ctx, docstore.Query{
		Filters: []docstore.Filter{
			{Field: "userId", Value: userID},
			{Field: "challengeId", Value: challengeID},
		},
		Orders: []docstore.Order{{Field: "completedAt", Desc: true}},
	})
	if err != nil {
		return nil, err
	}
	attempts := make([]domain.Attempt, 0, len(docs))
	for _, doc := range docs {
		var attempt domain.Attempt
		if err := doc.Decode(&attempt); err != nil {
			return nil, fmt.Errorf("decode attempt %s: %w", doc.ID, err)
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

// GetUserBestAttempt returns the user's highest-scoring (fastest on ties)
// attempt for a challenge, or ok=false when they have none.
func (r *ChallengeRepository) GetUserBestAttempt(ctx context.Context, userID, challengeID string) (domain.Attempt, bool, error) {
	docs, err := r.store.Collection(docstore.ChallengeAttempts).Query(ctx, docstore.Query{
		Filters: []docstore.Filter{
			{Field: "userId", Value: userID},
			{Field: "challengeId", Value: challengeID},
		},
		Orders: []docstore.Order{
			{Field: "score", Desc: true},
			{Field: "timeSpent"},
		},
		Limit: 1,
	})
	if err != nil {
		return domain.Attempt{}, false, err
	}
	if len(docs) == 0 {
		return domain.Attempt{}, false, nil
	}
	var attempt domain.Attempt
	if err := docs[0].Decode(&attempt); err != nil {
		return domain.Attempt{}, false, fmt.Errorf("decode attempt %s: %w", docs[0].ID, err)
	}
	return attempt, true, nil
}

func decodeChallenge(doc docstore.Document) (domain.Challenge, error) {
	var challenge domain.Challenge
	if err := doc.Decode(&challenge); err != nil {
		return domain.Challenge{}, fmt.Errorf("decode challenge %s: %w", doc.ID, err)
	}
	challenge.ID = doc.ID
	if challenge.CreatedAt.IsZero() {
		challenge.CreatedAt = doc.CreateTime
	}
	return challenge, nil
}
