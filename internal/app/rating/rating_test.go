package rating

import (
	"testing"

	"cfcatalyst/internal/domain/model"

	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func contestWith(durationMinutes int, problems ...model.PracticeProblem) *model.PracticeContest {
	return &model.PracticeContest{
		DurationMinutes: durationMinutes,
		Problems:        problems,
	}
}

func problem(ratingValue int, solved bool, solveTime *int) model.PracticeProblem {
	return model.PracticeProblem{
		Solved:           solved,
		SolveTimeSeconds: solveTime,
		Problem:          model.Problem{Rating: intPtr(ratingValue)},
	}
}

func TestPerformanceRatingNoProblems(t *testing.T) {
	require.Equal(t, 0, PerformanceRating(contestWith(120)))
}

func TestPerformanceRatingNoSolves(t *testing.T) {
	c := contestWith(120,
		problem(1000, false, nil),
		problem(1200, false, nil),
	)
	// 90% of the easiest problem.
	require.Equal(t, 900, PerformanceRating(c))
}

func TestPerformanceRatingNoSolvesFlooredAt800(t *testing.T) {
	c := contestWith(120, problem(800, false, nil))
	require.Equal(t, 800, PerformanceRating(c))
}

func TestPerformanceRatingSolveAtLimitEarnsNoSpeedBonus(t *testing.T) {
	c := contestWith(120, problem(1000, true, intPtr(7200)))
	// Base 1000, no speed bonus, times 1.1 for solving everything.
	require.Equal(t, 1100, PerformanceRating(c))
}

func TestPerformanceRatingInstantSolveEarnsFullSpeedBonus(t *testing.T) {
	c := contestWith(120, problem(1000, true, intPtr(0)))
	// Base 1000 plus the full 10% speed bonus, times 1.1.
	require.Equal(t, 1210, PerformanceRating(c))
}

func TestPerformanceRatingPartialSolveAveragesSolvedOnly(t *testing.T) {
	c := contestWith(120,
		problem(800, true, nil),
		problem(1000, true, nil),
		problem(1200, false, nil),
	)
	// Mean of the two solves with no bonuses of any kind.
	require.Equal(t, 900, PerformanceRating(c))
}

func TestPerformanceRatingUnratedProblemScoredAtFloor(t *testing.T) {
	c := contestWith(120, model.PracticeProblem{
		Solved:  true,
		Problem: model.Problem{Rating: nil},
	})
	require.Equal(t, 880, PerformanceRating(c))
}

func TestPerformanceRatingIsIdempotent(t *testing.T) {
	c := contestWith(120,
		problem(1100, true, intPtr(1800)),
		problem(1500, false, nil),
	)
	first := PerformanceRating(c)
	require.Equal(t, first, PerformanceRating(c))
	require.GreaterOrEqual(t, first, MinPerformance)
}

func TestRatingChangeEmptyField(t *testing.T) {
	require.Equal(t, 0, RatingChange(1500, 1200, nil))
}

func TestRatingChangeTopOfFieldHitsPositiveCap(t *testing.T) {
	field := []int{1000, 1200, 1400}
	// Beating everyone maps to rank 1, whose inverted rating saturates the
	// search range, so the delta rides the cap.
	require.Equal(t, MaxDelta, RatingChange(2000, 1200, field))
}

func TestRatingChangeUnderperformanceExactDelta(t *testing.T) {
	field := []int{1200, 1200, 1200}
	// Last place against three equals re-estimates to 1080, half the gap
	// from 1200 is -60.
	require.Equal(t, -60, RatingChange(1000, 1200, field))
}

func TestRatingChangeClampedAtNegativeCap(t *testing.T) {
	field := []int{1200, 1200, 1200}
	require.Equal(t, -MaxDelta, RatingChange(800, 3500, field))
}

func TestRatingChangeMonotonicInPerformance(t *testing.T) {
	field := []int{900, 1100, 1300, 1500}
	old := 1200
	prev := RatingChange(850, old, field)
	for _, perf := range []int{1000, 1250, 1400, 1600, 2500} {
		d := RatingChange(perf, old, field)
		require.GreaterOrEqual(t, d, prev, "delta must not decrease as performance grows")
		require.LessOrEqual(t, d, MaxDelta)
		require.GreaterOrEqual(t, d, -MaxDelta)
		prev = d
	}
}

func TestExpectedRankDecreasesWithRating(t *testing.T) {
	field := []int{1000, 1200, 1400, 1600}
	require.Greater(t, ExpectedRank(900, field), ExpectedRank(1500, field))
	// Bounded by 1 (beats all) and len(field)+1 (beats none).
	require.Greater(t, ExpectedRank(5000, field), 1.0)
	require.Less(t, ExpectedRank(0, field), float64(len(field))+1)
}

func TestEngineUsesInjectedField(t *testing.T) {
	e := NewEngine(FixedField{1200, 1200, 1200})
	require.Equal(t, -60, e.Delta(1000, 1200))
}

func TestEngineDefaultsToNormalField(t *testing.T) {
	e := NewEngine(nil)
	require.NotNil(t, e.Source)

	field := e.Source.Field()
	require.Len(t, field, 100)
	for _, m := range field {
		require.GreaterOrEqual(t, m, 800)
	}

	d := e.Delta(1500, 1200)
	require.LessOrEqual(t, d, MaxDelta)
	require.GreaterOrEqual(t, d, -MaxDelta)
}
