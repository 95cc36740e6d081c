package profile

import (
	"context"
	"errors"
	"testing"

	"cfcatalyst/internal/domain/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeContestSource struct {
	contests []model.Contest
	err      error
}

func (f *fakeContestSource) RecentFinishedContestsByFormat(ctx context.Context, format string, limit int) ([]model.Contest, error) {
	return f.contests, f.err
}

func intPtr(v int) *int { return &v }

func archiveProblem(index string, ratingValue *int, tags ...string) model.Problem {
	return model.Problem{Index: index, Rating: ratingValue, Tags: tags}
}

func TestBuildAveragesSlotRatings(t *testing.T) {
	src := &fakeContestSource{contests: []model.Contest{
		{ID: 1, Problems: []model.Problem{
			archiveProblem("A", intPtr(800), "implementation"),
			archiveProblem("B", intPtr(1200), "dp"),
			archiveProblem("C", intPtr(1600), "graphs"),
		}},
		{ID: 2, Problems: []model.Problem{
			archiveProblem("A", intPtr(900), "implementation"),
			archiveProblem("B", intPtr(1300), "math"),
			archiveProblem("C", intPtr(1700), "graphs"),
		}},
	}}
	b := NewBuilder(src, 50, zerolog.Nop())

	prof, err := b.Build(context.Background(), "Div. 2")
	require.NoError(t, err)
	require.Equal(t, "Div. 2", prof.Format)
	require.Equal(t, 2, prof.ContestsUsed)
	require.Len(t, prof.Slots, 3)

	require.Equal(t, "A", prof.Slots[0].Index)
	require.Equal(t, 850, prof.Slots[0].AverageRating)
	require.Equal(t, []string{"implementation"}, prof.Slots[0].CommonTags)

	require.Equal(t, "B", prof.Slots[1].Index)
	require.Equal(t, 1250, prof.Slots[1].AverageRating)

	require.Equal(t, "C", prof.Slots[2].Index)
	require.Equal(t, 1650, prof.Slots[2].AverageRating)
	require.Equal(t, []string{"graphs"}, prof.Slots[2].CommonTags)
}

func TestBuildSkipsThinContests(t *testing.T) {
	src := &fakeContestSource{contests: []model.Contest{
		// Only two linked problems; the sync never finished for this one.
		{ID: 1, Problems: []model.Problem{
			archiveProblem("A", intPtr(800)),
			archiveProblem("B", intPtr(1200)),
		}},
		{ID: 2, Problems: []model.Problem{
			archiveProblem("A", intPtr(900), "math"),
			archiveProblem("B", intPtr(1300), "math"),
			archiveProblem("C", intPtr(1700), "math"),
		}},
	}}
	b := NewBuilder(src, 50, zerolog.Nop())

	prof, err := b.Build(context.Background(), "Div. 3")
	require.NoError(t, err)
	require.Equal(t, 1, prof.ContestsUsed)
	require.Equal(t, 900, prof.Slots[0].AverageRating)
}

func TestBuildDropsSlotsWithoutRatedProblems(t *testing.T) {
	src := &fakeContestSource{contests: []model.Contest{
		{ID: 1, Problems: []model.Problem{
			archiveProblem("A", intPtr(800)),
			archiveProblem("B", intPtr(1200)),
			archiveProblem("D", nil, "interactive"), // never rated
		}},
	}}
	b := NewBuilder(src, 50, zerolog.Nop())

	prof, err := b.Build(context.Background(), "Div. 2")
	require.NoError(t, err)
	require.Len(t, prof.Slots, 2)
	for _, s := range prof.Slots {
		require.NotEqual(t, "D", s.Index)
	}
}

func TestBuildRanksOverallTagsByFrequency(t *testing.T) {
	src := &fakeContestSource{contests: []model.Contest{
		{ID: 1, Problems: []model.Problem{
			archiveProblem("A", intPtr(800), "math", "greedy"),
			archiveProblem("B", intPtr(1200), "math", "dp"),
			archiveProblem("C", intPtr(1600), "math", "dp", "trees"),
		}},
	}}
	b := NewBuilder(src, 50, zerolog.Nop())

	prof, err := b.Build(context.Background(), "Educational")
	require.NoError(t, err)
	require.Equal(t, []string{"math", "dp", "greedy"}, prof.OverallTopTags)
}

func TestBuildEmptyArchive(t *testing.T) {
	b := NewBuilder(&fakeContestSource{}, 50, zerolog.Nop())

	prof, err := b.Build(context.Background(), "Div. 1")
	require.NoError(t, err)
	require.Zero(t, prof.ContestsUsed)
	require.Empty(t, prof.Slots)
}

func TestBuildPropagatesSourceError(t *testing.T) {
	b := NewBuilder(&fakeContestSource{err: errors.New("db down")}, 50, zerolog.Nop())

	_, err := b.Build(context.Background(), "Div. 2")
	require.Error(t, err)
}
