package analysis

import (
	"testing"

	"cfcatalyst/internal/domain/model"

	"github.com/stretchr/testify/require"
)

func failed(problemID string, tags ...string) model.Submission {
	return model.Submission{ProblemID: problemID, Verdict: "WRONG_ANSWER", Tags: tags}
}

func accepted(problemID string, tags ...string) model.Submission {
	return model.Submission{ProblemID: problemID, Verdict: model.VerdictAccepted, Tags: tags}
}

func TestWeakTagsCountsDistinctProblemsOnce(t *testing.T) {
	subs := []model.Submission{
		failed("100A", "dp"),
		failed("100A", "dp"), // same problem retried, still one attempt
		failed("200B", "dp", "graphs"),
	}
	ranked := WeakTags(subs)
	require.Equal(t, []model.WeakTag{
		{Tag: "dp", AttemptCount: 2},
		{Tag: "graphs", AttemptCount: 1},
	}, ranked)
}

func TestWeakTagsExcludesEventuallySolvedProblems(t *testing.T) {
	subs := []model.Submission{
		failed("100A", "dp"),
		accepted("100A", "dp"), // solved later, no longer weak
		failed("200B", "greedy"),
	}
	ranked := WeakTags(subs)
	require.Equal(t, []model.WeakTag{{Tag: "greedy", AttemptCount: 1}}, ranked)
}

func TestWeakTagsTiesBreakAlphabetically(t *testing.T) {
	subs := []model.Submission{
		failed("100A", "trees"),
		failed("200B", "graphs"),
	}
	ranked := WeakTags(subs)
	require.Equal(t, "graphs", ranked[0].Tag)
	require.Equal(t, "trees", ranked[1].Tag)
}

func TestWeakTagsEmptyHistory(t *testing.T) {
	require.Empty(t, WeakTags(nil))
}

func TestTopTags(t *testing.T) {
	ranked := []model.WeakTag{
		{Tag: "dp", AttemptCount: 5},
		{Tag: "graphs", AttemptCount: 3},
		{Tag: "math", AttemptCount: 2},
		{Tag: "greedy", AttemptCount: 1},
	}
	require.Equal(t, []string{"dp", "graphs", "math"}, TopTags(ranked, 3))
	require.Equal(t, []string{"dp"}, TopTags(ranked, 1))
	require.Equal(t, []string{"dp", "graphs", "math", "greedy"}, TopTags(ranked, 10))
}
