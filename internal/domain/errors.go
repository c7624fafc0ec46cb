package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by document stores when no record matches.
	ErrNotFound = errors.New("document not found")
	// ErrChallengeNotFound indicates the requested challenge does not exist.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrPermissionDenied is surfaced to the user and never retried.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnavailable marks a transient store failure eligible for retry.
	ErrUnavailable = errors.New("store temporarily unavailable")
	// ErrIndexNotReady marks a failed compound-sort query whose backing index
	// has not caught up yet; retried with a longer delay.
	ErrIndexNotReady = errors.New("query index not ready")
	// ErrSessionNotActive is returned when a submission is triggered after the
	// session already left InProgress.
	ErrSessionNotActive = errors.New("challenge session is not in progress")
	// ErrIncompleteSubmission rejects an explicit submit while questions are
	// still unanswered. Timeouts bypass this check.
	ErrIncompleteSubmission = errors.New("not all questions are answered")
	// ErrQuestionNotFound indicates an answer was selected for an unknown question.
	ErrQuestionNotFound = errors.New("question not found in challenge")
	// ErrOptionNotFound indicates a selected answer is not among the question's options.
	ErrOptionNotFound = errors.New("option not found for question")
)

// ValidationError reports malformed input. It fails fast and is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PartialFailureError reports that the attempts-log append succeeded but the
// leaderboard upsert did not. The attempt is durable; the leaderboard stays
// stale until the next successful submission for the same user and challenge.
type PartialFailureError struct {
	AttemptID string
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("attempt %s recorded but leaderboard update failed: %v", e.AttemptID, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// Retryable reports whether a store error may resolve on a later read.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrIndexNotReady)
}
