package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"mathe-challenge-service/internal/domain"
	"mathe-challenge-service/internal/identity"
)

// SessionState is the top-level session lifecycle. Navigation between
// questions never changes it; only starting, submitting and completing do.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionInProgress
	SessionSubmitting
	SessionCompleted
	SessionAbandoned
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionInProgress:
		return "inProgress"
	case SessionSubmitting:
		return "submitting"
	case SessionCompleted:
		return "completed"
	case SessionAbandoned:
		return "abandoned"
	}
	return "unknown"
}

// Submitter is the slice of the submission service a session needs.
type Submitter interface {
	Submit(ctx context.Context, in domain.AttemptInput) (string, error)
}

const autoSubmitTimeout = 10 * time.Second

// ChallengeSession drives one user's run through a challenge: answer
// bookkeeping, question navigation, the countdown, and the single submission
// at the end. A completed session is terminal; Restart hands out a fresh one.
type ChallengeSession struct {
	challenge  domain.Challenge
	user       identity.User
	submitter  Submitter
	now        func() time.Time
	onComplete func(domain.AttemptResult)

	mu        sync.Mutex
	state     SessionState
	index     int
	answers   map[string]string
	remaining int
	startedAt time.Time
	stopTick  chan struct{}
	result    *domain.AttemptResult
	attemptID string
	lastErr   error
}

func NewChallengeSession(challenge domain.Challenge, user identity.User, submitter Submitter) *ChallengeSession {
	return NewChallengeSessionWithClock(challenge, user, submitter, time.Now)
}

// NewChallengeSessionWithClock allows deterministic timestamps in tests.
func NewChallengeSessionWithClock(challenge domain.Challenge, user identity.User, submitter Submitter, now func() time.Time) *ChallengeSession {
	return &ChallengeSession{
		challenge: challenge,
		user:      user,
		submitter: submitter,
		now:       now,
		state:     SessionIdle,
		answers:   make(map[string]string),
	}
}

// OnComplete registers a callback invoked once when the session reaches
// Completed. Must be called before Start.
func (s *ChallengeSession) OnComplete(fn func(domain.AttemptResult)) {
	s.onComplete = fn
}

// Start moves Idle to InProgress and begins the countdown when the challenge
// is timed.
func (s *ChallengeSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionIdle {
		return domain.ErrSessionNotActive
	}
	s.state = SessionInProgress
	s.index = 0
	s.answers = make(map[string]string)
	s.result = nil
	s.lastErr = nil
	s.startedAt = s.now()
	if s.challenge.TimeLimit > 0 {
		s.remaining = s.challenge.TimeLimit
		s.stopTick = make(chan struct{})
		go s.runCountdown(s.stopTick)
	}
	return nil
}

// runCountdown ticks once per second until stopped or the final tick fires
// the automatic submission.
func (s *ChallengeSession) runCountdown(stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if s.tick() {
				return
			}
		case <-stop:
			return
		}
	}
}

// tick advances the countdown by one second. It reports true when the
// countdown is done, either because time ran out (triggering the auto submit)
// or because the session already left InProgress.
func (s *ChallengeSession) tick() bool {
	s.mu.Lock()
	if s.state != SessionInProgress {
		s.mu.Unlock()
		return true
	}
	s.remaining--
	expired := s.remaining <= 0
	s.mu.Unlock()

	if expired {
		s.autoSubmit()
		return true
	}
	return false
}

// SelectAnswer records the chosen option for a question, overwriting any
// prior selection. Valid only while InProgress.
func (s *ChallengeSession) SelectAnswer(questionID, option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionInProgress {
		return domain.ErrSessionNotActive
	}
	question, ok := s.questionByID(questionID)
	if !ok {
		return domain.ErrQuestionNotFound
	}
	valid := false
	for _, opt := range question.Options {
		if opt == option {
			valid = true
			break
		}
	}
	if !valid {
		return domain.ErrOptionNotFound
	}
	s.answers[questionID] = option
	return nil
}

// Next advances the displayed question and returns the new index. It clamps
// at the last question and never touches answers.
func (s *ChallengeSession) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index < len(s.challenge.Questions)-1 {
		s.index++
	}
	return s.index
}

// Prev moves back one question, clamping at the first.
func (s *ChallengeSession) Prev() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index > 0 {
		s.index--
	}
	return s.index
}

// Question returns the currently displayed question and its index.
func (s *ChallengeSession) Question() (domain.Question, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenge.Questions[s.index], s.index
}

// Answer returns the recorded selection for a question, if any.
func (s *ChallengeSession) Answer(questionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	answer, ok := s.answers[questionID]
	return answer, ok
}

// Progress reports answered and total question counts.
func (s *ChallengeSession) Progress() (answered, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers), len(s.challenge.Questions)
}

// Remaining returns the countdown seconds left; 0 for untimed challenges.
func (s *ChallengeSession) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

func (s *ChallengeSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the finalized results once the session completed.
func (s *ChallengeSession) Result() (domain.AttemptResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.AttemptResult{}, false
	}
	return *s.result, true
}

// AttemptID returns the id of the logged attempt after completion.
func (s *ChallengeSession) AttemptID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attemptID
}

// Err returns the error of the last submission, if any.
func (s *ChallengeSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Submit finalizes the session explicitly. It requires every question to be
// answered; the timeout path does not. The InProgress check is the guard
// that keeps a double trigger (double click plus a timer firing in the same
// instant) from reaching the submission service twice.
func (s *ChallengeSession) Submit(ctx context.Context) (domain.AttemptResult, error) {
	s.mu.Lock()
	if s.state != SessionInProgress {
		s.mu.Unlock()
		return domain.AttemptResult{}, domain.ErrSessionNotActive
	}
	if len(s.answers) < len(s.challenge.Questions) {
		s.mu.Unlock()
		return domain.AttemptResult{}, domain.ErrIncompleteSubmission
	}
	s.beginSubmitLocked()
	s.mu.Unlock()

	return s.finishSubmit(ctx)
}

// autoSubmit fires when the countdown reaches zero. Unanswered questions
// count as incorrect.
func (s *ChallengeSession) autoSubmit() {
	s.mu.Lock()
	if s.state != SessionInProgress {
		s.mu.Unlock()
		return
	}
	s.beginSubmitLocked()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), autoSubmitTimeout)
	defer cancel()
	_, _ = s.finishSubmit(ctx)
}

// beginSubmitLocked transitions to Submitting and stops the countdown so a
// stray tick cannot fire a second auto submit.
func (s *ChallengeSession) beginSubmitLocked() {
	s.state = SessionSubmitting
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
}

func (s *ChallengeSession) finishSubmit(ctx context.Context) (domain.AttemptResult, error) {
	s.mu.Lock()
	result := s.scoreLocked()
	input := s.attemptInputLocked(result)
	s.mu.Unlock()

	attemptID, err := s.submitter.Submit(ctx, input)

	s.mu.Lock()
	var partial *domain.PartialFailureError
	switch {
	case err == nil:
		s.state = SessionCompleted
		s.result = &result
		s.attemptID = attemptID
		s.lastErr = nil
	case errors.As(err, &partial):
		// the log accepted the attempt; the score is durable even though the
		// leaderboard slot is stale, so the session still completes
		s.state = SessionCompleted
		s.result = &result
		s.attemptID = partial.AttemptID
		s.lastErr = err
	default:
		// back to InProgress for a user-triggered retry; the countdown stays
		// frozen where it was stopped
		s.state = SessionInProgress
		s.lastErr = err
	}
	completed := s.state == SessionCompleted
	notify := s.onComplete
	s.mu.Unlock()

	if completed && notify != nil {
		notify(result)
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

// scoreLocked compares the answer map against each question's correct answer.
func (s *ChallengeSession) scoreLocked() domain.AttemptResult {
	correct := 0
	score := 0
	for _, q := range s.challenge.Questions {
		if s.answers[q.ID] == q.CorrectAnswer {
			correct++
			score += q.Points
		}
	}
	timeSpent := int(s.now().Sub(s.startedAt).Seconds())
	if timeSpent < 0 {
		timeSpent = 0
	}
	return domain.AttemptResult{
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: len(s.challenge.Questions),
		TimeSpent:      timeSpent,
	}
}

func (s *ChallengeSession) attemptInputLocked(result domain.AttemptResult) domain.AttemptInput {
	answers := make(map[string]string, len(s.answers))
	for id, answer := range s.answers {
		answers[id] = answer
	}
	return domain.AttemptInput{
		UserID:         s.user.ID,
		UserName:       s.user.Name(),
		UserPhotoURL:   s.user.PhotoURL,
		ChallengeID:    s.challenge.ID,
		Score:          result.Score,
		CorrectAnswers: result.CorrectAnswers,
		TotalQuestions: result.TotalQuestions,
		TimeSpent:      result.TimeSpent,
		Answers:        answers,
	}
}

// Abandon discards a session that never finished: the countdown stops and no
// attempt is submitted. Completed and Submitting sessions are left alone.
func (s *ChallengeSession) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionIdle && s.state != SessionInProgress {
		return
	}
	s.state = SessionAbandoned
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
}

// Restart abandons this session and returns a brand-new Idle one for the same
// challenge and user. State never moves backward on the old session.
func (s *ChallengeSession) Restart() *ChallengeSession {
	s.Abandon()
	fresh := NewChallengeSessionWithClock(s.challenge, s.user, s.submitter, s.now)
	fresh.onComplete = s.onComplete
	return fresh
}

func (s *ChallengeSession) questionByID(id string) (domain.Question, bool) {
	for _, q := range s.challenge.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return domain.Question{}, false
}
