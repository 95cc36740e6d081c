package selector

import (
	"context"
	"fmt"

	"cfcatalyst/internal/app/analysis"
	"cfcatalyst/internal/common"
	"cfcatalyst/internal/domain/model"
	"cfcatalyst/internal/domain/repository"

	"github.com/rs/zerolog"
)

const (
	// MaxCount bounds a single generation request.
	MaxCount = 10

	// Rating window derivation around the user's current rating.
	RatingWindowSpan = 200
	MinRatingClamp   = 800
	MaxRatingClamp   = 3500

	// Fixed fallback window for unrated or unresolvable users.
	DefaultMinRating = 800
	DefaultMaxRating = 1400

	// WEAK_TOPIC targets this many of the user's weakest tags.
	weakTagLimit = 3

	// CONTEST_SIMULATION slot widening and degradation thresholds.
	slotNarrowSpan   = 75
	slotWideSpan     = 125
	minProfiledSlots = 3

	defaultSubmissionFetch = 5000
)

// ProblemSource samples the archive pool. Satisfied by the pg repository.
type ProblemSource interface {
	SampleProblems(ctx context.Context, filter repository.ProblemFilter) ([]model.Problem, error)
}

// ArchiveSource resolves a handle's submission history and current rating.
// Both calls are fallible and the selector degrades on failure rather than
// propagating it.
type ArchiveSource interface {
	UserStatus(ctx context.Context, handle string, count int) ([]model.Submission, error)
	UserRating(ctx context.Context, handle string) (int, error)
}

// ProfileSource builds a contest-format fingerprint for simulation mode.
type ProfileSource interface {
	Build(ctx context.Context, format string) (*model.ContestProfile, error)
}

// Request carries a generation request. Mode-specific fields: Tags for
// USER_TAGS, TargetFormat for CONTEST_SIMULATION.
type Request struct {
	Handle       string
	Mode         model.GenerationMode
	Count        int
	MinRating    *int
	MaxRating    *int
	Tags         []string
	TargetFormat string
}

// Result is the selected problem set plus the metadata of what the selector
// actually did, stored verbatim on the generated contest for audit.
type Result struct {
	Problems                 []model.Problem
	EffectiveMinRating       int
	EffectiveMaxRating       int
	ModeUsed                 model.GenerationMode
	WasFallbackToGeneralMode bool
	WeakTagsUsed             []string
	SlotsFilled              int
}

// Service implements problem selection for all four generation modes.
type Service struct {
	problems   ProblemSource
	archive    ArchiveSource
	profiles   ProfileSource
	fetchCount int
	logger     zerolog.Logger
}

func NewService(problems ProblemSource, archive ArchiveSource, profiles ProfileSource, fetchCount int, logger zerolog.Logger) *Service {
	if fetchCount <= 0 {
		fetchCount = defaultSubmissionFetch
	}
	return &Service{
		problems:   problems,
		archive:    archive,
		profiles:   profiles,
		fetchCount: fetchCount,
		logger:     logger.With().Str("component", "selector").Logger(),
	}
}

// Select produces a problem set for the request, degrading per-mode where a
// documented fallback applies and erroring only on invalid input or an empty
// pool.
func (s *Service) Select(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	// The user's accepted problems are excluded from every mode. A failed
	// history fetch is non-fatal: proceed with nothing excluded.
	submissions, err := s.archive.UserStatus(ctx, req.Handle, s.fetchCount)
	if err != nil {
		s.logger.Warn().Err(err).Str("handle", req.Handle).Msg("submission history unavailable, skipping solved-problem exclusion")
		submissions = nil
	}
	solved := model.AcceptedProblemIDs(submissions)

	minRating, maxRating := s.resolveWindow(ctx, req)

	run := &selectionRun{
		svc:      s,
		req:      req,
		solved:   solved,
		selected: map[string]struct{}{},
		result: &Result{
			EffectiveMinRating: minRating,
			EffectiveMaxRating: maxRating,
			ModeUsed:           req.Mode,
		},
	}

	switch req.Mode {
	case model.ModeGeneral:
		err = run.selectGeneral(ctx, nil)
	case model.ModeUserTags:
		// No tags supplied degrades to GENERAL by construction; that is the
		// documented behavior, not an error.
		err = run.selectGeneral(ctx, model.NormalizeTags(req.Tags))
	case model.ModeWeakTopic:
		err = run.selectWeakTopic(ctx, submissions)
	case model.ModeContestSimulation:
		err = run.selectSimulation(ctx)
	}
	if err != nil {
		return nil, err
	}

	if len(run.result.Problems) > req.Count {
		run.result.Problems = run.result.Problems[:req.Count]
	}
	if len(run.result.Problems) == 0 {
		return nil, run.noMatchError()
	}
	return run.result, nil
}

func validate(req Request) error {
	if req.Handle == "" {
		return fmt.Errorf("handle is required: %w", common.ErrValidation)
	}
	if _, err := model.ParseGenerationMode(string(req.Mode)); err != nil {
		return err
	}
	if req.Count < 1 || req.Count > MaxCount {
		return fmt.Errorf("count must be between 1 and %d: %w", MaxCount, common.ErrValidation)
	}
	if req.MinRating != nil && req.MaxRating != nil && *req.MinRating > *req.MaxRating {
		return fmt.Errorf("min rating %d exceeds max rating %d: %w", *req.MinRating, *req.MaxRating, common.ErrValidation)
	}
	// A simulation without a target format is a hard error, checked before
	// any repository or archive access.
	if req.Mode == model.ModeContestSimulation && req.TargetFormat == "" {
		return fmt.Errorf("target contest format is required for simulation mode: %w", common.ErrValidation)
	}
	return nil
}

// resolveWindow derives the effective rating window: caller bounds verbatim
// when coherent, otherwise the user's rating ±200 clamped to [800, 3500],
// otherwise the fixed default window.
func (s *Service) resolveWindow(ctx context.Context, req Request) (int, int) {
	if req.MinRating != nil && req.MaxRating != nil && *req.MinRating <= *req.MaxRating {
		return *req.MinRating, *req.MaxRating
	}

	minRating, maxRating := DefaultMinRating, DefaultMaxRating
	userRating, err := s.archive.UserRating(ctx, req.Handle)
	if err != nil {
		s.logger.Warn().Err(err).Str("handle", req.Handle).Msg("user rating unavailable, using default window")
	} else if userRating > 0 {
		minRating = clamp(userRating-RatingWindowSpan, MinRatingClamp, MaxRatingClamp)
		maxRating = clamp(userRating+RatingWindowSpan, MinRatingClamp, MaxRatingClamp)
	}
	if minRating > maxRating {
		maxRating = minRating + RatingWindowSpan
	}
	return minRating, maxRating
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// selectionRun holds the per-request state shared across slot fills: the
// solved exclusion set and the problems already picked in this run.
type selectionRun struct {
	svc      *Service
	req      Request
	solved   map[string]struct{}
	selected map[string]struct{}
	result   *Result
}

func (r *selectionRun) excludeIDs() []string {
	ids := make([]string, 0, len(r.solved)+len(r.selected))
	for id := range r.solved {
		ids = append(ids, id)
	}
	for id := range r.selected {
		if _, dup := r.solved[id]; !dup {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *selectionRun) sample(ctx context.Context, minRating, maxRating int, tags []string, limit int) ([]model.Problem, error) {
	return r.svc.problems.SampleProblems(ctx, repository.ProblemFilter{
		MinRating:  minRating,
		MaxRating:  maxRating,
		Tags:       tags,
		ExcludeIDs: r.excludeIDs(),
		Limit:      limit,
	})
}

func (r *selectionRun) take(problems []model.Problem) {
	for _, p := range problems {
		if _, dup := r.selected[p.ID]; dup {
			continue
		}
		r.selected[p.ID] = struct{}{}
		r.result.Problems = append(r.result.Problems, p)
	}
}

func (r *selectionRun) selectGeneral(ctx context.Context, tags []string) error {
	remaining := r.req.Count - len(r.result.Problems)
	if remaining <= 0 {
		return nil
	}
	problems, err := r.sample(ctx, r.result.EffectiveMinRating, r.result.EffectiveMaxRating, tags, remaining)
	if err != nil {
		return fmt.Errorf("selector general sample: %w", err)
	}
	r.take(problems)
	return nil
}

func (r *selectionRun) selectWeakTopic(ctx context.Context, submissions []model.Submission) error {
	weak := analysis.WeakTags(submissions)
	if len(weak) == 0 {
		// Nothing to target (no history, or the fetch failed upstream):
		// degrade to GENERAL silently.
		r.svc.logger.Info().Str("handle", r.req.Handle).Msg("no weak tags found, degrading to general mode")
		r.result.ModeUsed = model.ModeGeneral
		return r.selectGeneral(ctx, nil)
	}
	r.result.WeakTagsUsed = analysis.TopTags(weak, weakTagLimit)
	return r.selectGeneral(ctx, r.result.WeakTagsUsed)
}

func (r *selectionRun) selectSimulation(ctx context.Context) error {
	prof, err := r.svc.profiles.Build(ctx, r.req.TargetFormat)
	if err != nil || prof == nil || len(prof.Slots) < minProfiledSlots {
		// Too little history for this format to simulate anything: run the
		// whole request as GENERAL and flag the fallback.
		r.svc.logger.Info().
			Err(err).
			Str("format", r.req.TargetFormat).
			Msg("contest profile too thin, falling back to general mode")
		r.result.ModeUsed = model.ModeGeneral
		r.result.WasFallbackToGeneralMode = true
		return r.selectGeneral(ctx, nil)
	}

	slots := prof.Slots
	if len(slots) > r.req.Count {
		slots = slots[:r.req.Count]
	}
	for _, slot := range slots {
		if err := r.fillSlot(ctx, slot, prof.OverallTopTags); err != nil {
			return err
		}
	}
	r.result.SlotsFilled = len(r.result.Problems)

	// Top up with a general query over the full effective window, preferring
	// the format's overall common tags.
	if len(r.result.Problems) < r.req.Count {
		if err := r.selectGeneral(ctx, prof.OverallTopTags); err != nil {
			return err
		}
	}
	if len(r.result.Problems) < r.req.Count {
		if err := r.selectGeneral(ctx, nil); err != nil {
			return err
		}
	}
	return nil
}

// fillSlot tries three progressively wider queries around the slot's
// historical average. Exhausting all three leaves the slot unfilled, which
// is tolerated; the general top-up covers the shortfall.
func (r *selectionRun) fillSlot(ctx context.Context, slot model.SlotProfile, overallTags []string) error {
	var slotTag []string
	if len(slot.CommonTags) > 0 {
		slotTag = slot.CommonTags[:1]
	}

	attempts := []struct {
		span int
		tags []string
	}{
		{slotNarrowSpan, slotTag},
		{slotWideSpan, slotTag},
		{slotWideSpan, overallTags},
	}

	for _, a := range attempts {
		problems, err := r.sample(ctx, slot.AverageRating-a.span, slot.AverageRating+a.span, a.tags, 1)
		if err != nil {
			return fmt.Errorf("selector slot %s sample: %w", slot.Index, err)
		}
		if len(problems) > 0 {
			r.take(problems)
			return nil
		}
	}
	r.svc.logger.Debug().Str("slot", slot.Index).Msg("slot left unfilled after widening attempts")
	return nil
}

func (r *selectionRun) noMatchError() error {
	var filter string
	switch r.result.ModeUsed {
	case model.ModeUserTags:
		filter = fmt.Sprintf("tags %v, rating %d-%d", model.NormalizeTags(r.req.Tags), r.result.EffectiveMinRating, r.result.EffectiveMaxRating)
	case model.ModeWeakTopic:
		filter = fmt.Sprintf("weak tags %v, rating %d-%d", r.result.WeakTagsUsed, r.result.EffectiveMinRating, r.result.EffectiveMaxRating)
	case model.ModeContestSimulation:
		filter = fmt.Sprintf("format %q, rating %d-%d", r.req.TargetFormat, r.result.EffectiveMinRating, r.result.EffectiveMaxRating)
	default:
		filter = fmt.Sprintf("rating %d-%d", r.result.EffectiveMinRating, r.result.EffectiveMaxRating)
	}
	return fmt.Errorf("mode %s found nothing for %s; widen the rating range or drop tag filters: %w",
		r.result.ModeUsed, filter, common.ErrNoMatchingProblems)
}
