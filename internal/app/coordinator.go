package app

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mathe-challenge-service/internal/domain"
)

// ChallengeSource fetches one challenge; satisfied by the repository or a
// cache wrapped around it.
type ChallengeSource interface {
	GetChallenge(ctx context.Context, id string) (domain.Challenge, error)
}

// ChallengeLister lists all stored challenges.
type ChallengeLister interface {
	GetAllChallenges(ctx context.Context) ([]domain.Challenge, error)
}

// LeaderboardReader performs the ranked leaderboard read.
type LeaderboardReader interface {
	GetLeaderboard(ctx context.Context, challengeID string, limit int) ([]domain.LeaderboardEntry, error)
}

// Seeder creates missing catalog challenges.
type Seeder interface {
	EnsureSeeded(ctx context.Context, catalog []domain.Challenge) ([]string, error)
}

// CoordinatorConfig wires the coordinator's collaborators.
type CoordinatorConfig struct {
	Challenges  ChallengeSource
	Lister      ChallengeLister
	Leaderboard LeaderboardReader
	Seeder      Seeder
	Catalog     []domain.Challenge
	Limit       int
	Logger      *logrus.Logger
}

// Coordinator owns the shared loading/error state consumed by both the quiz
// and leaderboard views, and the process-wide single-flight guards that keep
// seed, list-load and leaderboard-refresh operations from overlapping. The
// guards are scoped in-memory state, not durable locks; a crash mid-refresh
// leaves nothing inconsistent because every store write is independently
// atomic.
type Coordinator struct {
	source  ChallengeSource
	lister  ChallengeLister
	board   LeaderboardReader
	seeder  Seeder
	catalog []domain.Challenge
	limit   int
	log     *logrus.Logger

	mu           sync.Mutex
	current      *domain.Challenge
	available    []domain.Challenge
	entries      []domain.LeaderboardEntry
	completed    map[string]domain.AttemptResult
	loading      bool
	errMsg       string
	refreshToken string // active leaderboard refresh; empty when idle
	loadingAll   bool
	seeding      bool
	subscribers  map[chan []domain.LeaderboardEntry]struct{}
}

func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLeaderboardLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Coordinator{
		source:      cfg.Challenges,
		lister:      cfg.Lister,
		board:       cfg.Leaderboard,
		seeder:      cfg.Seeder,
		catalog:     cfg.Catalog,
		limit:       cfg.Limit,
		log:         cfg.Logger,
		completed:   make(map[string]domain.AttemptResult),
		subscribers: make(map[chan []domain.LeaderboardEntry]struct{}),
	}
}

// Snapshot is the read model handed to presentation components.
type Snapshot struct {
	Current     *domain.Challenge
	Available   []domain.Challenge
	Leaderboard []domain.LeaderboardEntry
	Loading     bool
	Err         string
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		Available:   append([]domain.Challenge(nil), c.available...),
		Leaderboard: append([]domain.LeaderboardEntry(nil), c.entries...),
		Loading:     c.loading,
		Err:         c.errMsg,
	}
	if c.current != nil {
		cur := *c.current
		snap.Current = &cur
	}
	return snap
}

// EnsureSeeded seeds the static catalog at most once concurrently. A second
// caller while seeding is in flight gets nil ids and no error.
func (c *Coordinator) EnsureSeeded(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	if c.seeding {
		c.mu.Unlock()
		return nil, nil
	}
	c.seeding = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.seeding = false
		c.mu.Unlock()
	}()

	return c.seeder.EnsureSeeded(ctx, c.catalog)
}

// LoadChallenge makes a challenge current and refreshes its leaderboard. A
// missing challenge is recovered locally as an error message, not a failure.
func (c *Coordinator) LoadChallenge(ctx context.Context, id string) error {
	c.setLoading(true)
	defer c.setLoading(false)

	challenge, err := c.source.GetChallenge(ctx, id)
	if errors.Is(err, domain.ErrChallengeNotFound) {
		c.setError("Challenge not found")
		return nil
	}
	if err != nil {
		c.setError("Failed to load challenge")
		return err
	}

	c.mu.Lock()
	c.current = &challenge
	c.entries = nil
	c.errMsg = ""
	c.mu.Unlock()

	// the new challenge's board supersedes any refresh still in flight
	return c.refresh(ctx, true)
}

// LoadAllChallenges lists available challenges and, when nothing is current
// yet, loads the first one. Re-mounting views spam this; the loadingAll guard
// collapses the duplicates.
func (c *Coordinator) LoadAllChallenges(ctx context.Context) error {
	c.mu.Lock()
	if c.loadingAll {
		c.mu.Unlock()
		return nil
	}
	c.loadingAll = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.loadingAll = false
		c.mu.Unlock()
	}()

	c.setLoading(true)
	defer c.setLoading(false)

	challenges, err := c.lister.GetAllChallenges(ctx)
	if err != nil {
		c.setError("Failed to load challenges")
		return err
	}

	c.mu.Lock()
	c.available = challenges
	hasCurrent := c.current != nil
	c.mu.Unlock()

	if len(challenges) == 0 {
		c.setError("No challenges available")
		return nil
	}
	if !hasCurrent {
		return c.LoadChallenge(ctx, challenges[0].ID)
	}
	return nil
}

// RefreshLeaderboard re-reads the current challenge's leaderboard. Only one
// refresh runs at a time process-wide; a concurrent caller observes the
// token set and returns immediately, leaving the in-flight call to populate
// shared state.
func (c *Coordinator) RefreshLeaderboard(ctx context.Context) error {
	return c.refresh(ctx, false)
}

func (c *Coordinator) refresh(ctx context.Context, force bool) error {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return nil
	}
	if c.refreshToken != "" && !force {
		c.mu.Unlock()
		return nil
	}
	token := uuid.NewString()
	c.refreshToken = token
	challengeID := c.current.ID
	c.mu.Unlock()

	entries, err := c.board.GetLeaderboard(ctx, challengeID, c.limit)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshToken != token {
		// superseded by a fresher refresh; discard silently
		return nil
	}
	c.refreshToken = ""
	if err != nil {
		c.log.WithField("challengeId", challengeID).WithError(err).Warn("leaderboard refresh failed")
		c.errMsg = "Failed to refresh leaderboard"
		return err
	}
	c.entries = entries
	c.broadcastLocked()
	return nil
}

// MarkCompleted records a finished run for the current challenge and forces
// a leaderboard refresh so the fresh score shows up.
func (c *Coordinator) MarkCompleted(ctx context.Context, result domain.AttemptResult) error {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return nil
	}
	c.completed[c.current.ID] = result
	c.mu.Unlock()

	return c.refresh(ctx, true)
}

// CompletedChallenges returns the results recorded by MarkCompleted, keyed by
// challenge id.
func (c *Coordinator) CompletedChallenges() map[string]domain.AttemptResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]domain.AttemptResult, len(c.completed))
	for id, result := range c.completed {
		out[id] = result
	}
	return out
}

// Subscribe returns a channel receiving leaderboard snapshots after each
// successful refresh. The caller must invoke cancel to avoid leaks.
func (c *Coordinator) Subscribe() (<-chan []domain.LeaderboardEntry, func()) {
	ch := make(chan []domain.LeaderboardEntry, 8)

	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	// sent under the lock: broadcastLocked's drain-then-send fallback relies
	// on being the only sender, and the fresh buffer cannot block here
	ch <- append([]domain.LeaderboardEntry(nil), c.entries...)
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Coordinator) broadcastLocked() {
	snapshot := append([]domain.LeaderboardEntry(nil), c.entries...)
	for ch := range c.subscribers {
		select {
		case ch <- snapshot:
		default:
			// drop the stale snapshot so a slow consumer cannot block
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (c *Coordinator) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

func (c *Coordinator) setError(msg string) {
	c.mu.Lock()
	c.errMsg = msg
	c.mu.Unlock()
}
