package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"mathe-challenge-service/internal/domain"
)

// ChallengeGetter loads challenge definitions from the backing store.
type ChallengeGetter interface {
	GetChallenge(ctx context.Context, id string) (domain.Challenge, error)
}

// ChallengeCache caches whole challenge documents in Redis and falls back to
// the source on cache miss. Stored as: SET challenge:{id} {json} EX ttl.
type ChallengeCache struct {
	client *redis.Client
	source ChallengeGetter
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewChallengeCache(client *redis.Client, source ChallengeGetter, ttl time.Duration) *ChallengeCache {
	return &ChallengeCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ChallengeCache) GetChallenge(ctx context.Context, id string) (domain.Challenge, error) {
	key := c.key(id)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var challenge domain.Challenge
		if err := json.Unmarshal(raw, &challenge); err == nil {
			return challenge, nil
		}
		// undecodable cache entry; fall through and repopulate
	}

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var challenge domain.Challenge
			if err := json.Unmarshal(raw, &challenge); err == nil {
				return challenge, nil
			}
		}

		challenge, err := c.source.GetChallenge(ctx, id)
		if err != nil {
			return domain.Challenge{}, err
		}

		if raw, err := json.Marshal(challenge); err == nil {
			// best-effort cache fill
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return challenge, nil
	})
	if err != nil {
		return domain.Challenge{}, err
	}
	return result.(domain.Challenge), nil
}

func (c *ChallengeCache) key(id string) string {
	return "challenge:" + id
}

func (c *ChallengeCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
