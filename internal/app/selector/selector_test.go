package selector

import (
	"context"
	"errors"
	"testing"

	"cfcatalyst/internal/common"
	"cfcatalyst/internal/domain/model"
	"cfcatalyst/internal/domain/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakePool struct {
	problems []model.Problem
	err      error
}

func (f *fakePool) SampleProblems(ctx context.Context, filter repository.ProblemFilter) ([]model.Problem, error) {
	if f.err != nil {
		return nil, f.err
	}
	excluded := map[string]struct{}{}
	for _, id := range filter.ExcludeIDs {
		excluded[id] = struct{}{}
	}
	var out []model.Problem
	for _, p := range f.problems {
		if len(out) == filter.Limit {
			break
		}
		if p.Rating == nil || *p.Rating < filter.MinRating || *p.Rating > filter.MaxRating {
			continue
		}
		if _, skip := excluded[p.ID]; skip {
			continue
		}
		if len(filter.Tags) > 0 && !hasAnyTag(p, filter.Tags) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func hasAnyTag(p model.Problem, tags []string) bool {
	for _, want := range tags {
		for _, have := range p.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

type fakeArchive struct {
	subs        []model.Submission
	subsErr     error
	rating      int
	ratingErr   error
	statusCalls int
}

func (f *fakeArchive) UserStatus(ctx context.Context, handle string, count int) ([]model.Submission, error) {
	f.statusCalls++
	return f.subs, f.subsErr
}

func (f *fakeArchive) UserRating(ctx context.Context, handle string) (int, error) {
	return f.rating, f.ratingErr
}

type fakeProfiles struct {
	prof *model.ContestProfile
	err  error
}

func (f *fakeProfiles) Build(ctx context.Context, format string) (*model.ContestProfile, error) {
	return f.prof, f.err
}

func intPtr(v int) *int { return &v }

func poolProblem(id string, ratingValue int, tags ...string) model.Problem {
	return model.Problem{ID: id, Rating: intPtr(ratingValue), Tags: tags}
}

func newTestService(pool *fakePool, archive *fakeArchive, profiles *fakeProfiles) *Service {
	if profiles == nil {
		profiles = &fakeProfiles{}
	}
	return NewService(pool, archive, profiles, 100, zerolog.Nop())
}

func TestSelectGeneralWindowFromUserRating(t *testing.T) {
	pool := &fakePool{problems: []model.Problem{
		poolProblem("1A", 1000),
		poolProblem("2B", 1250),
		poolProblem("3C", 1400),
		poolProblem("4D", 1550),
		poolProblem("5E", 1900),
	}}
	svc := newTestService(pool, &fakeArchive{rating: 1400}, nil)

	res, err := svc.Select(context.Background(), Request{
		Handle: "tourist", Mode: model.ModeGeneral, Count: 5,
	})
	require.NoError(t, err)
	require.Equal(t, 1200, res.EffectiveMinRating)
	require.Equal(t, 1600, res.EffectiveMaxRating)
	require.Equal(t, model.ModeGeneral, res.ModeUsed)

	// Only the three problems inside the window qualify.
	require.Len(t, res.Problems, 3)
	for _, p := range res.Problems {
		require.GreaterOrEqual(t, *p.Rating, 1200)
		require.LessOrEqual(t, *p.Rating, 1600)
	}
}

func TestSelectDefaultWindowWhenRatingUnavailable(t *testing.T) {
	pool := &fakePool{problems: []model.Problem{poolProblem("1A", 1000)}}
	svc := newTestService(pool, &fakeArchive{ratingErr: errors.New("api down")}, nil)

	res, err := svc.Select(context.Background(), Request{
		Handle: "newbie", Mode: model.ModeGeneral, Count: 1,
	})
	require.NoError(t, err)
	require.Equal(t, DefaultMinRating, res.EffectiveMinRating)
	require.Equal(t, DefaultMaxRating, res.EffectiveMaxRating)
}

func TestSelectHighRatedWindowClamped(t *testing.T) {
	pool := &fakePool{problems: []model.Problem{poolProblem("1A", 3500)}}
	svc := newTestService(pool, &fakeArchive{rating: 3600}, nil)

	res, err := svc.Select(context.Background(), Request{
		Handle: "legend", Mode: model.ModeGeneral, Count: 1,
	})
	require.NoError(t, err)
	require.Equal(t, 3400, res.EffectiveMinRating)
	require.Equal(t, 3500, res.EffectiveMaxRating)
}

func TestSelectCallerWindowTakenVerbatim(t *testing.T) {
	pool := &fakePool{problems: []model.Problem{poolProblem("1A", 2400)}}
	svc := newTestService(pool, &fakeArchive{rating: 1200}, nil)

	res, err := svc.Select(context.Background(), Request{
		Handle: "handle", Mode: model.ModeGeneral, Count: 1,
		MinRating: intPtr(2300), MaxRating: intPtr(2500),
	})
	require.NoError(t, err)
	require.Equal(t, 2300, res.EffectiveMinRating)
	require.Equal(t, 2500, res.EffectiveMaxRating)
	require.Len(t, res.Problems, 1)
}

func TestSelectExcludesSolvedProblems(t *testing.T) {
	pool := &fakePool{problems: []model.Problem{
		poolProblem("1A", 1300),
		poolProblem("2B", 1300),
	}}
	archive := &fakeArchive{
		rating: 1300,
		subs: []model.Submission{
			{ProblemID: "1A", Verdict: model.VerdictAccepted},
		},
	}
	svc := newTestService(pool, archive, nil)

	res, err := svc.Select(context.Background(), Request{
		Handle: "handle", Mode: model.ModeGeneral, Count: 2,
	})
	require.NoError(t, err)
	require.Len(t, res.Problems, 1)
	require.Equal(t, "2B", res.Problems[0].ID)
}

func TestSelectUserTagsFiltersByTags(t *testing.T) {
	pool := &fakePool{problems: []model.Problem{
		poolProblem("1A", 1300, "dp"),
		poolProblem("2B", 1300, "graphs"),
		poolProblem("3C", 1300, "dp", "math"),
	}}
	svc := newTestService(pool, &fakeArchive{rating: 1300}, nil)

	res, err := svc.Select(context.Background(), Request{
		Handle: "handle", Mode: model.ModeUserTags, Count: 3, Tags: []string{"dp"},
	})
	require.NoError(t, err)
	require.Len(t, res.Problems, 2)
	for _, p := range res.Problems {
		require.Contains(t, p.Tags, "dp")
	}
	require.Equal(t, model.ModeUserTags, res.ModeUsed)
}

func TestSelectValidatesInput(t *testing.T) {
	svc := newTestService(&fakePool{}, &fakeArchive{}, nil)
	ctx := context.Background()

	_, err := svc.Select(ctx, Request{Mode: model.ModeGeneral, Count: 1})
	require.ErrorIs(t, err, common.ErrValidation, "missing handle")

	_, err = svc.Select(ctx, Request{Handle: "h", Mode: "BOGUS", Count: 1})
	require.ErrorIs(t, err, common.ErrValidation, "unknown mode")

	_, err = svc.Select(ctx, Request{Handle: "h", Mode: model.ModeGeneral, Count: 0})
	require.ErrorIs(t, err, common.ErrValidation, "count too low")

	_, err = svc.Select(ctx, Request{Handle: "h", Mode: model.ModeGeneral, Count: MaxCount + 1})
	require.ErrorIs(t, err, common.ErrValidation, "count too high")

	_, err = svc.Select(ctx, Request{
		Handle: "h", Mode: model.ModeGeneral, Count: 1,
		MinRating: intPtr(1600), MaxRating: intPtr(1200),
	})
	require.ErrorIs(t, err, common.ErrValidation, "inverted window")
}

func TestSimulationWithoutFormatFailsBeforeAnyFetch(t *testing.T) {
	archive := &fakeArchive{}
	svc := newTestService(&fakePool{}, archive, nil)

	_, err := svc.Select(context.Background(), Request{
		Handle: "h", Mode: model.ModeContestSimulation, Count: 5,
	})
	require.ErrorIs(t, err, common.ErrValidation)
	require.Zero(t, archive.statusCalls)
}

func TestWeakTopicDegradesToGeneralWithoutHistory(t *testing.T) {
	pool := &fakePool{problems: []model.Problem{poolProblem("1A", 1300)}}
	svc := newTestService(pool, &fakeArchive{rating: 1300}, nil)

	res, err := svc.Select(context.Background(), Request{
		Handle: "h", Mode: model.ModeWeakTopic, Count: 1,
	})
	require.NoError(t, err)
	require.Equal(t, model.ModeGeneral, res.ModeUsed)
	require.False(t, res.WasFallbackToGeneralMode)
	require.Empty(t, res.WeakTagsUsed)
	require.Len(t, res.Problems, 1)
}

func TestWeakTopicTargetsWeakestTags(t *testing.T) {
	pool := &fakePool{problems: []model.Problem{
		poolProblem("1A", 1300, "dp"),
		poolProblem("2B", 1300, "geometry"),
	}}
	archive := &fakeArchive{
		rating: 1300,
		subs: []model.Submission{
			{ProblemID: "900A", Verdict: "WRONG_ANSWER", Tags: []string{"dp"}},
			{ProblemID: "901B", Verdict: "TIME_LIMIT_EXCEEDED", Tags: []string{"dp"}},
		},
	}
	svc := newTestService(pool, archive, nil)

	res, err := svc.Select(context.Background(), Request{
		Handle: "h", Mode: model.ModeWeakTopic, Count: 2,
	})
	require.NoError(t, err)
	require.Equal(t, model.ModeWeakTopic, res.ModeUsed)
	require.Equal(t, []string{"dp"}, res.WeakTagsUsed)
	require.Len(t, res.Problems, 1)
	require.Equal(t, "1A", res.Problems[0].ID)
}

func TestSimulationFallsBackOnThinProfile(t *testing.T) {
	pool := &fakePool{problems: []model.Problem{poolProblem("1A", 1300)}}
	profiles := &fakeProfiles{prof: &model.ContestProfile{
		Format: "Div. 2",
		Slots: []model.SlotProfile{
			{Index: "A", AverageRating: 900},
			{Index: "B", AverageRating: 1300},
		},
	}}
	svc := newTestService(pool, &fakeArchive{rating: 1300}, profiles)

	res, err := svc.Select(context.Background(), Request{
		Handle: "h", Mode: model.ModeContestSimulation, Count: 1, TargetFormat: "Div. 2",
	})
	require.NoError(t, err)
	require.Equal(t, model.ModeGeneral, res.ModeUsed)
	require.True(t, res.WasFallbackToGeneralMode)
}

func TestSimulationFallsBackOnProfileError(t *testing.T) {
	pool := &fakePool{problems: []model.Problem{poolProblem("1A", 1300)}}
	profiles := &fakeProfiles{err: errors.New("archive empty")}
	svc := newTestService(pool, &fakeArchive{rating: 1300}, profiles)

	res, err := svc.Select(context.Background(), Request{
		Handle: "h", Mode: model.ModeContestSimulation, Count: 1, TargetFormat: "Div. 2",
	})
	require.NoError(t, err)
	require.True(t, res.WasFallbackToGeneralMode)
}

func TestSimulationFillsSlotsFromProfile(t *testing.T) {
	pool := &fakePool{problems: []model.Problem{
		poolProblem("1A", 950, "implementation"),
		poolProblem("2B", 1350, "dp"),
		poolProblem("3C", 1750, "graphs"),
	}}
	profiles := &fakeProfiles{prof: &model.ContestProfile{
		Format: "Div. 2",
		Slots: []model.SlotProfile{
			{Index: "A", AverageRating: 900, CommonTags: []string{"implementation"}},
			{Index: "B", AverageRating: 1300, CommonTags: []string{"dp"}},
			{Index: "C", AverageRating: 1700, CommonTags: []string{"graphs"}},
		},
	}}
	svc := newTestService(pool, &fakeArchive{rating: 1300}, profiles)

	res, err := svc.Select(context.Background(), Request{
		Handle: "h", Mode: model.ModeContestSimulation, Count: 3, TargetFormat: "Div. 2",
	})
	require.NoError(t, err)
	require.Equal(t, model.ModeContestSimulation, res.ModeUsed)
	require.False(t, res.WasFallbackToGeneralMode)
	require.Equal(t, 3, res.SlotsFilled)
	require.Len(t, res.Problems, 3)
}

func TestSimulationTopsUpUnfillableSlots(t *testing.T) {
	// Nothing anywhere near slot C; the general top-up over the effective
	// window must cover the shortfall.
	pool := &fakePool{problems: []model.Problem{
		poolProblem("1A", 950),
		poolProblem("2B", 1300),
		poolProblem("3C", 1400),
	}}
	profiles := &fakeProfiles{prof: &model.ContestProfile{
		Format: "Div. 2",
		Slots: []model.SlotProfile{
			{Index: "A", AverageRating: 900},
			{Index: "B", AverageRating: 1300},
			{Index: "C", AverageRating: 3000},
		},
	}}
	svc := newTestService(pool, &fakeArchive{rating: 1300}, profiles)

	res, err := svc.Select(context.Background(), Request{
		Handle: "h", Mode: model.ModeContestSimulation, Count: 3, TargetFormat: "Div. 2",
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.SlotsFilled)
	require.Len(t, res.Problems, 3)
}

func TestSelectNoMatchingProblems(t *testing.T) {
	svc := newTestService(&fakePool{}, &fakeArchive{rating: 1300}, nil)

	_, err := svc.Select(context.Background(), Request{
		Handle: "h", Mode: model.ModeGeneral, Count: 5,
	})
	require.ErrorIs(t, err, common.ErrNoMatchingProblems)
}

func TestSelectNeverReturnsDuplicates(t *testing.T) {
	pool := &fakePool{problems: []model.Problem{
		poolProblem("1A", 1300),
		poolProblem("1A", 1300), // duplicate row
		poolProblem("2B", 1300),
	}}
	svc := newTestService(pool, &fakeArchive{rating: 1300}, nil)

	res, err := svc.Select(context.Background(), Request{
		Handle: "h", Mode: model.ModeGeneral, Count: 3,
	})
	require.NoError(t, err)
	seen := map[string]struct{}{}
	for _, p := range res.Problems {
		_, dup := seen[p.ID]
		require.False(t, dup, "problem %s returned twice", p.ID)
		seen[p.ID] = struct{}{}
	}
}

func TestSelectSolvedFetchFailureIsNonFatal(t *testing.T) {
	pool := &fakePool{problems: []model.Problem{poolProblem("1A", 1300)}}
	archive := &fakeArchive{rating: 1300, subsErr: errors.New("timeout")}
	svc := newTestService(pool, archive, nil)

	res, err := svc.Select(context.Background(), Request{
		Handle: "h", Mode: model.ModeGeneral, Count: 1,
	})
	require.NoError(t, err)
	require.Len(t, res.Problems, 1)
}
