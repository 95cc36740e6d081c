package model

import (
	"fmt"
	"sort"
	"time"

	"cfcatalyst/internal/common"
)

type ContestStatus string

const (
	ContestPending   ContestStatus = "PENDING"
	ContestOngoing   ContestStatus = "ONGOING"
	ContestCompleted ContestStatus = "COMPLETED"
	ContestAbandoned ContestStatus = "ABANDONED"
)

// GenerationMode selects the strategy used to pick the problem set.
type GenerationMode string

const (
	ModeGeneral           GenerationMode = "GENERAL"
	ModeUserTags          GenerationMode = "USER_TAGS"
	ModeWeakTopic         GenerationMode = "WEAK_TOPIC"
	ModeContestSimulation GenerationMode = "CONTEST_SIMULATION"
)

// ParseGenerationMode validates a caller-supplied mode string.
func ParseGenerationMode(s string) (GenerationMode, error) {
	switch GenerationMode(s) {
	case ModeGeneral, ModeUserTags, ModeWeakTopic, ModeContestSimulation:
		return GenerationMode(s), nil
	}
	return "", fmt.Errorf("unknown generation mode %q: %w", s, common.ErrValidation)
}

// GenerationParams records, verbatim, the parameters a contest was generated
// with plus what the selector actually did, for later audit and display.
type GenerationParams struct {
	Mode                     GenerationMode `json:"mode"`
	Count                    int            `json:"count"`
	MinRating                *int           `json:"min_rating,omitempty"`
	MaxRating                *int           `json:"max_rating,omitempty"`
	Tags                     []string       `json:"tags,omitempty"`
	TargetFormat             string         `json:"target_format,omitempty"`
	EffectiveMinRating       int            `json:"effective_min_rating"`
	EffectiveMaxRating       int            `json:"effective_max_rating"`
	WasFallbackToGeneralMode bool           `json:"was_fallback_to_general_mode"`
	WeakTagsUsed             []string       `json:"weak_tags_used,omitempty"`
	SlotsFilled              int            `json:"slots_filled,omitempty"`
}

// PracticeProblem is one ordered slot of a practice contest.
type PracticeProblem struct {
	ProblemID         string  `json:"problem_id"`
	Position          int     `json:"position"`
	Solved            bool    `json:"solved"`
	SolveTimeSeconds  *int    `json:"solve_time_seconds,omitempty"`
	EditorialAccessed bool    `json:"editorial_accessed"`
	Problem           Problem `json:"problem"`
}

// PracticeContest is the central mutable entity: a generated problem set run
// under a timer, scored on completion.
type PracticeContest struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	Status          ContestStatus     `json:"status"`
	DurationMinutes int               `json:"duration_minutes"`
	StartedAt       *time.Time        `json:"started_at,omitempty"`
	EndsAt          *time.Time        `json:"ends_at,omitempty"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	Performance     *int              `json:"performance,omitempty"`
	RatingDelta     *int              `json:"rating_delta,omitempty"`
	Params          GenerationParams  `json:"params"`
	Problems        []PracticeProblem `json:"problems"`
	Leaderboard     *LeaderboardEntry `json:"leaderboard,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Start moves PENDING -> ONGOING and stamps the timer window.
// Any other starting state is a conflict.
func (c *PracticeContest) Start(now time.Time) error {
	if c.Status != ContestPending {
		return fmt.Errorf("cannot start contest in status %s: %w", c.Status, common.ErrConflict)
	}
	c.Status = ContestOngoing
	c.StartedAt = &now
	ends := now.Add(time.Duration(c.DurationMinutes) * time.Minute)
	c.EndsAt = &ends
	return nil
}

// MarkCompleted moves ONGOING -> COMPLETED. Completing an already COMPLETED
// contest is tolerated so scoring can be re-evaluated idempotently; completing
// a PENDING contest is a conflict.
func (c *PracticeContest) MarkCompleted(now time.Time) error {
	switch c.Status {
	case ContestCompleted:
		return nil
	case ContestOngoing:
		c.Status = ContestCompleted
		c.CompletedAt = &now
		return nil
	}
	return fmt.Errorf("cannot complete contest in status %s: %w", c.Status, common.ErrConflict)
}

// IsExpired reports whether an ongoing contest has outlived its timer.
func (c *PracticeContest) IsExpired(now time.Time) bool {
	return c.Status == ContestOngoing && c.EndsAt != nil && now.After(*c.EndsAt)
}

// DurationSeconds is the total timer length used for speed-bonus scoring.
func (c *PracticeContest) DurationSeconds() int {
	return c.DurationMinutes * 60
}

// SolvedCount counts problems marked solved.
func (c *PracticeContest) SolvedCount() int {
	n := 0
	for _, p := range c.Problems {
		if p.Solved {
			n++
		}
	}
	return n
}

// SortProblemsByRating orders the slots ascending by rating (unrated first)
// and reassigns positions. Practice contests store problems in this order
// from creation.
func (c *PracticeContest) SortProblemsByRating() {
	sort.SliceStable(c.Problems, func(i, j int) bool {
		return ratingOrZero(c.Problems[i].Problem.Rating) < ratingOrZero(c.Problems[j].Problem.Rating)
	})
	for i := range c.Problems {
		c.Problems[i].Position = i + 1
	}
}

func ratingOrZero(r *int) int {
	if r == nil {
		return 0
	}
	return *r
}
