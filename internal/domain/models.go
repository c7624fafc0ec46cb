package domain

import (
	"fmt"
	"time"
)

// Difficulty grades a question for display purposes only; it does not affect
// scoring.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question models an MCQ item. CorrectAnswer must be a member of Options.
type Question struct {
	ID            string     `json:"id"`
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correctAnswer"`
	Explanation   string     `json:"explanation,omitempty"`
	Difficulty    Difficulty `json:"difficulty"`
	Points        int        `json:"points"`
}

// Challenge is a named quiz with a point budget and an optional time limit.
// Challenges are immutable once stored; there is no edit path.
type Challenge struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
	TotalPoints int        `json:"totalPoints"`
	TimeLimit   int        `json:"timeLimit,omitempty"` // seconds; 0 means untimed
	CreatedAt   time.Time  `json:"createdAt,omitempty"`
}

// Validate checks the structural invariants: non-empty question list, unique
// question IDs, 2+ options per question with the correct answer among them,
// positive points, and a total that matches the per-question sum.
func (c Challenge) Validate() error {
	if c.Title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if len(c.Questions) == 0 {
		return &ValidationError{Field: "questions", Reason: "must not be empty"}
	}
	seen := make(map[string]struct{}, len(c.Questions))
	sum := 0
	for _, q := range c.Questions {
		if q.ID == "" {
			return &ValidationError{Field: "questions", Reason: "question id must not be empty"}
		}
		if _, dup := seen[q.ID]; dup {
			return &ValidationError{Field: "questions", Reason: fmt.Sprintf("duplicate question id %q", q.ID)}
		}
		seen[q.ID] = struct{}{}
		if len(q.Options) < 2 {
			return &ValidationError{Field: "questions", Reason: fmt.Sprintf("question %q needs at least two options", q.ID)}
		}
		if q.Points <= 0 {
			return &ValidationError{Field: "questions", Reason: fmt.Sprintf("question %q needs positive points", q.ID)}
		}
		found := false
		for _, opt := range q.Options {
			if opt == q.CorrectAnswer {
				found = true
				break
			}
		}
		if !found {
			return &ValidationError{Field: "questions", Reason: fmt.Sprintf("correct answer of question %q is not among its options", q.ID)}
		}
		sum += q.Points
	}
	if sum != c.TotalPoints {
		return &ValidationError{Field: "totalPoints", Reason: fmt.Sprintf("expected %d, question points sum to %d", c.TotalPoints, sum)}
	}
	return nil
}

// AttemptInput is what callers hand to the submission service. Score,
// CorrectAnswers, TotalQuestions and TimeSpent arrive already computed by the
// session; the service does not rescore from Answers.
type AttemptInput struct {
	UserID         string
	UserName       string
	UserPhotoURL   string
	ChallengeID    string
	Score          int
	CorrectAnswers int
	TotalQuestions int
	TimeSpent      int // seconds
	Answers        map[string]string
}

// Attempt is one user's completed, scored run of a challenge. Records in the
// attempts log are never mutated after creation.
type Attempt struct {
	UserID         string            `json:"userId"`
	UserName       string            `json:"userName"`
	UserPhotoURL   string            `json:"userPhotoURL,omitempty"`
	ChallengeID    string            `json:"challengeId"`
	Score          int               `json:"score"`
	CorrectAnswers int               `json:"correctAnswers"`
	TotalQuestions int               `json:"totalQuestions"`
	TimeSpent      int               `json:"timeSpent"`
	CompletedAt    time.Time         `json:"completedAt"`
	Answers        map[string]string `json:"answers,omitempty"`
}

// LeaderboardRecord is the mutable latest-wins projection keyed by
// {userId}_{challengeId}, distinct from the immutable attempts log.
type LeaderboardRecord struct {
	Attempt
	AttemptID   string    `json:"attemptId,omitempty"`
	LastUpdated time.Time `json:"lastUpdated,omitempty"`
}

// LeaderboardEntry pairs a projection record with its 1-based rank. Ranks are
// assigned at query time and never stored.
type LeaderboardEntry struct {
	LeaderboardRecord
	Rank int `json:"rank"`
}

// AttemptResult summarizes a finished session for the result view.
type AttemptResult struct {
	Score          int `json:"score"`
	CorrectAnswers int `json:"correctAnswers"`
	TotalQuestions int `json:"totalQuestions"`
	TimeSpent      int `json:"timeSpent"`
}
