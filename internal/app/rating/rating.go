package rating

import (
	"math"

	"cfcatalyst/internal/domain/model"
)

const (
	// MinPerformance floors every non-degenerate performance rating.
	MinPerformance = 800
	// DefaultRating stands in for a user whose current rating is unknown.
	DefaultRating = 1200
	// MaxDelta bounds a single contest's rating change.
	MaxDelta = 100

	// speedBonusShare: an instant solve earns up to 10% of the problem's
	// rating, decaying linearly to zero at the time limit.
	speedBonusShare = 0.10
	fullSolveBonus  = 1.10

	// unratedProblemRating substitutes for problems with no archive rating,
	// so a completed contest always scores.
	unratedProblemRating = 800
)

// PerformanceRating estimates the skill level a contest run demonstrated.
// A contest with no problems scores 0; anything else is floored at 800.
// Calling it twice on the same unmodified contest yields the same value.
func PerformanceRating(c *model.PracticeContest) int {
	if len(c.Problems) == 0 {
		return 0
	}

	total := float64(c.DurationSeconds())
	lowest := math.MaxInt
	var sum float64
	solved := 0

	for _, p := range c.Problems {
		r := unratedProblemRating
		if p.Problem.Rating != nil {
			r = *p.Problem.Rating
		}
		if r < lowest {
			lowest = r
		}
		if !p.Solved {
			continue
		}
		solved++

		// No recorded solve time means no bonus, same as solving at the limit.
		frac := 1.0
		if p.SolveTimeSeconds != nil && total > 0 {
			frac = math.Min(1, float64(*p.SolveTimeSeconds)/total)
		}
		sum += float64(r) + float64(r)*speedBonusShare*(1-frac)
	}

	if solved == 0 {
		// Attempted nothing successfully: score just under the easiest problem.
		return clampPerformance(int(math.Round(0.9 * float64(lowest))))
	}

	raw := sum / float64(solved)
	if solved == len(c.Problems) {
		raw *= fullSolveBonus
	}
	return clampPerformance(int(math.Round(raw)))
}

func clampPerformance(p int) int {
	if p < MinPerformance {
		return MinPerformance
	}
	return p
}

// RatingChange converts a performance rating into a bounded Elo delta by
// placing the user in a synthetic field, then inverting the expected-rank
// (seed) function to re-estimate the performance.
func RatingChange(performance, oldRating int, field []int) int {
	if len(field) == 0 {
		return 0
	}

	rank := rankInField(performance, oldRating, field)
	reestimated := invertRank(float64(rank), field)

	delta := int(math.Round(float64(reestimated-oldRating) / 2))
	if delta > MaxDelta {
		return MaxDelta
	}
	if delta < -MaxDelta {
		return -MaxDelta
	}
	return delta
}

// rankInField computes the user's actual rank in the synthetic field:
// performance at or below the old rating lands last place, performance at or
// above the field maximum lands first.
func rankInField(performance, oldRating int, field []int) int {
	if performance <= oldRating {
		return len(field)
	}
	max := field[0]
	below := 0
	for _, m := range field {
		if m > max {
			max = m
		}
		if m < performance {
			below++
		}
	}
	if performance >= max {
		return 1
	}
	rank := len(field) - below
	if rank < 1 {
		rank = 1
	}
	return rank
}

// ExpectedRank is the Elo seed function: one plus the sum of pairwise win
// probabilities of every field member against the given rating.
func ExpectedRank(rating float64, field []int) float64 {
	seed := 1.0
	for _, m := range field {
		seed += 1 / (1 + math.Pow(10, (rating-float64(m))/400))
	}
	return seed
}

// invertRank binary-searches for the rating whose expected rank matches the
// actual rank. ExpectedRank is strictly decreasing in rating, so the search
// converges to within one rating point.
func invertRank(rank float64, field []int) int {
	lo, hi := 0, 5000
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if ExpectedRank(float64(mid), field) > rank {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi
}
