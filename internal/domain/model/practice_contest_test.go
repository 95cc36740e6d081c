package model

import (
	"testing"
	"time"

	"cfcatalyst/internal/common"

	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestStartStampsTimerWindow(t *testing.T) {
	c := &PracticeContest{Status: ContestPending, DurationMinutes: 90}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, c.Start(now))
	require.Equal(t, ContestOngoing, c.Status)
	require.Equal(t, now, *c.StartedAt)
	require.Equal(t, now.Add(90*time.Minute), *c.EndsAt)
}

func TestStartTwiceConflicts(t *testing.T) {
	c := &PracticeContest{Status: ContestPending, DurationMinutes: 60}
	now := time.Now().UTC()

	require.NoError(t, c.Start(now))
	err := c.Start(now)
	require.ErrorIs(t, err, common.ErrConflict)
}

func TestCompletePendingConflicts(t *testing.T) {
	c := &PracticeContest{Status: ContestPending}
	require.ErrorIs(t, c.MarkCompleted(time.Now().UTC()), common.ErrConflict)
}

func TestCompleteIsIdempotent(t *testing.T) {
	c := &PracticeContest{Status: ContestPending, DurationMinutes: 60}
	now := time.Now().UTC()
	require.NoError(t, c.Start(now))

	require.NoError(t, c.MarkCompleted(now.Add(time.Hour)))
	require.Equal(t, ContestCompleted, c.Status)
	completedAt := *c.CompletedAt

	// Completing again keeps the original completion time.
	require.NoError(t, c.MarkCompleted(now.Add(2*time.Hour)))
	require.Equal(t, completedAt, *c.CompletedAt)
}

func TestIsExpired(t *testing.T) {
	c := &PracticeContest{Status: ContestPending, DurationMinutes: 60}
	now := time.Now().UTC()
	require.False(t, c.IsExpired(now))

	require.NoError(t, c.Start(now))
	require.False(t, c.IsExpired(now.Add(30*time.Minute)))
	require.True(t, c.IsExpired(now.Add(61*time.Minute)))

	require.NoError(t, c.MarkCompleted(now.Add(time.Hour)))
	require.False(t, c.IsExpired(now.Add(2*time.Hour)))
}

func TestSortProblemsByRating(t *testing.T) {
	c := &PracticeContest{Problems: []PracticeProblem{
		{ProblemID: "1C", Problem: Problem{ID: "1C", Rating: intPtr(1600)}},
		{ProblemID: "1A", Problem: Problem{ID: "1A", Rating: nil}},
		{ProblemID: "1B", Problem: Problem{ID: "1B", Rating: intPtr(1200)}},
	}}
	c.SortProblemsByRating()

	require.Equal(t, "1A", c.Problems[0].ProblemID) // unrated sorts first
	require.Equal(t, "1B", c.Problems[1].ProblemID)
	require.Equal(t, "1C", c.Problems[2].ProblemID)
	for i, p := range c.Problems {
		require.Equal(t, i+1, p.Position)
	}
}

func TestParseGenerationMode(t *testing.T) {
	for _, valid := range []string{"GENERAL", "USER_TAGS", "WEAK_TOPIC", "CONTEST_SIMULATION"} {
		mode, err := ParseGenerationMode(valid)
		require.NoError(t, err)
		require.Equal(t, GenerationMode(valid), mode)
	}

	_, err := ParseGenerationMode("general")
	require.ErrorIs(t, err, common.ErrValidation)
	_, err = ParseGenerationMode("")
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestSolvedCount(t *testing.T) {
	c := &PracticeContest{Problems: []PracticeProblem{
		{Solved: true}, {Solved: false}, {Solved: true},
	}}
	require.Equal(t, 2, c.SolvedCount())
}
