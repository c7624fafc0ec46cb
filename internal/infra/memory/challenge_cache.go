package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mathe-challenge-service/internal/domain"
)

// ChallengeGetter loads challenge definitions from the backing store.
type ChallengeGetter interface {
	GetChallenge(ctx context.Context, id string) (domain.Challenge, error)
}

// ChallengeCache caches challenge definitions with TTL to avoid repeated
// store reads. Challenges are immutable, so staleness only matters for TTL
// memory pressure, not correctness.
type ChallengeCache struct {
	source ChallengeGetter
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedChallenge
}

type cachedChallenge struct {
	challenge domain.Challenge
	expiresAt time.Time
}

func NewChallengeCache(source ChallengeGetter, ttl time.Duration) *ChallengeCache {
	return &ChallengeCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedChallenge),
	}
}

func (c *ChallengeCache) GetChallenge(ctx context.Context, id string) (domain.Challenge, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[id]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.challenge, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[id]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.challenge, nil
		}
		c.mu.RUnlock()

		challenge, err := c.source.GetChallenge(ctx, id)
		if err != nil {
			return domain.Challenge{}, err
		}

		c.mu.Lock()
		c.cache[id] = cachedChallenge{
			challenge: challenge,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return challenge, nil
	})
	if err != nil {
		return domain.Challenge{}, err
	}
	return result.(domain.Challenge), nil
}

func (c *ChallengeCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
