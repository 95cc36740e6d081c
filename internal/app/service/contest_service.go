package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cfcatalyst/internal/app/rating"
	"cfcatalyst/internal/app/selector"
	"cfcatalyst/internal/common"
	"cfcatalyst/internal/domain/model"
	"cfcatalyst/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultDurationMinutes = 120
	minDurationMinutes     = 30
	maxDurationMinutes     = 300
)

// ContestService drives the practice-contest lifecycle:
// generation -> PENDING -> ONGOING -> COMPLETED, with scoring on completion.
type ContestService struct {
	contests repository.PracticeContestRepository
	users    repository.UserRepository
	selector *selector.Service
	engine   rating.Engine
	locks    *ContestLocker
	db       *sql.DB
	logger   zerolog.Logger
}

func NewContestService(
	contests repository.PracticeContestRepository,
	users repository.UserRepository,
	sel *selector.Service,
	engine rating.Engine,
	locks *ContestLocker,
	db *sql.DB,
	logger zerolog.Logger,
) *ContestService {
	return &ContestService{
		contests: contests,
		users:    users,
		selector: sel,
		engine:   engine,
		locks:    locks,
		db:       db,
		logger:   logger.With().Str("component", "contest_service").Logger(),
	}
}

type GenerateContestRequest struct {
	Mode            string   `json:"mode" validate:"required"`
	Count           int      `json:"count" validate:"required,min=1,max=10"`
	DurationMinutes int      `json:"duration_minutes" validate:"omitempty,min=30,max=300"`
	MinRating       *int     `json:"min_rating,omitempty"`
	MaxRating       *int     `json:"max_rating,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	TargetFormat    string   `json:"target_format,omitempty"`
}

// Generate runs the selector and persists the resulting PENDING contest with
// its problems sorted ascending by rating and the generation parameters kept
// verbatim for audit.
func (s *ContestService) Generate(ctx context.Context, userID string, req GenerateContestRequest) (*model.PracticeContest, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	mode, err := model.ParseGenerationMode(req.Mode)
	if err != nil {
		return nil, err
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = defaultDurationMinutes
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if user.Handle == "" {
		return nil, fmt.Errorf("a linked Codeforces handle is required to generate contests: %w", common.ErrValidation)
	}

	sel, err := s.selector.Select(ctx, selector.Request{
		Handle:       user.Handle,
		Mode:         mode,
		Count:        req.Count,
		MinRating:    req.MinRating,
		MaxRating:    req.MaxRating,
		Tags:         req.Tags,
		TargetFormat: req.TargetFormat,
	})
	if err != nil {
		return nil, err
	}

	contest := &model.PracticeContest{
		ID:              uuid.NewString(),
		UserID:          userID,
		Status:          model.ContestPending,
		DurationMinutes: req.DurationMinutes,
		Params: model.GenerationParams{
			Mode:                     mode,
			Count:                    req.Count,
			MinRating:                req.MinRating,
			MaxRating:                req.MaxRating,
			Tags:                     model.NormalizeTags(req.Tags),
			TargetFormat:             req.TargetFormat,
			EffectiveMinRating:       sel.EffectiveMinRating,
			EffectiveMaxRating:       sel.EffectiveMaxRating,
			WasFallbackToGeneralMode: sel.WasFallbackToGeneralMode,
			WeakTagsUsed:             sel.WeakTagsUsed,
			SlotsFilled:              sel.SlotsFilled,
		},
	}
	for _, p := range sel.Problems {
		contest.Problems = append(contest.Problems, model.PracticeProblem{
			ProblemID: p.ID,
			Problem:   p,
		})
	}
	contest.SortProblemsByRating()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("generate begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.contests.Create(ctx, tx, contest); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("generate commit: %w", err)
	}

	s.logger.Info().
		Str("contest_id", contest.ID).
		Str("user_id", userID).
		Str("mode_requested", string(mode)).
		Str("mode_used", string(sel.ModeUsed)).
		Int("problems", len(contest.Problems)).
		Msg("practice contest generated")
	return contest, nil
}

// Start moves a PENDING contest to ONGOING and stamps its timer window.
func (s *ContestService) Start(ctx context.Context, userID, contestID string) (*model.PracticeContest, error) {
	release, err := s.locks.Acquire(ctx, contestID)
	if err != nil {
		return nil, err
	}
	defer release()

	var contest *model.PracticeContest
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		c, err := s.contests.FindByIDForUpdate(ctx, tx, contestID)
		if err != nil {
			return err
		}
		if err := s.checkOwnership(c, userID); err != nil {
			return err
		}
		if err := c.Start(time.Now().UTC()); err != nil {
			return err
		}
		if err := s.contests.UpdateLifecycle(ctx, tx, c); err != nil {
			return err
		}
		contest = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("contest_id", contestID).Msg("practice contest started")
	return contest, nil
}

// Complete finishes an ONGOING contest and computes its performance rating
// and rating delta. Completing an already COMPLETED contest re-evaluates the
// score idempotently. An empty userID skips the ownership check for the
// timeout path driven by the sync worker.
func (s *ContestService) Complete(ctx context.Context, userID, contestID string) (*model.PracticeContest, error) {
	release, err := s.locks.Acquire(ctx, contestID)
	if err != nil {
		return nil, err
	}
	defer release()

	var contest *model.PracticeContest
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		c, err := s.contests.FindByIDForUpdate(ctx, tx, contestID)
		if err != nil {
			return err
		}
		if userID != "" {
			if err := s.checkOwnership(c, userID); err != nil {
				return err
			}
		}
		if err := c.MarkCompleted(time.Now().UTC()); err != nil {
			return err
		}

		user, err := s.users.FindByID(ctx, c.UserID)
		if err != nil {
			return err
		}
		s.score(c, user)

		if err := s.contests.UpdateLifecycle(ctx, tx, c); err != nil {
			return err
		}
		contest = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("contest_id", contestID).
		Int("performance", *contest.Performance).
		Int("delta", *contest.RatingDelta).
		Msg("practice contest completed")
	return contest, nil
}

// score fills performance, delta and the single-entry leaderboard. Scoring
// never fails: missing data falls back to safe defaults so a completed
// contest always carries a number.
func (s *ContestService) score(c *model.PracticeContest, user *model.User) {
	perf := rating.PerformanceRating(c)

	oldRating := user.Rating
	if oldRating <= 0 {
		oldRating = rating.DefaultRating
	}
	delta := s.engine.Delta(perf, oldRating)

	c.Performance = &perf
	c.RatingDelta = &delta
	c.Leaderboard = &model.LeaderboardEntry{
		Rank:           1,
		UserID:         user.ID,
		Handle:         user.Handle,
		ProblemsSolved: c.SolvedCount(),
		Performance:    perf,
	}
}

// Get fetches a contest with an ownership check.
func (s *ContestService) Get(ctx context.Context, userID, contestID string) (*model.PracticeContest, error) {
	c, err := s.contests.FindByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(c, userID); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ContestService) List(ctx context.Context, userID string, limit, offset int) ([]model.PracticeContest, int, error) {
	return s.contests.ListByUser(ctx, userID, limit, offset)
}

// MarkEditorialAccessed records the one-way editorial flag for a problem of
// the user's contest.
func (s *ContestService) MarkEditorialAccessed(ctx context.Context, userID, contestID, problemID string) error {
	c, err := s.contests.FindByID(ctx, contestID)
	if err != nil {
		return err
	}
	if err := s.checkOwnership(c, userID); err != nil {
		return err
	}
	for _, p := range c.Problems {
		if p.ProblemID == problemID {
			return s.contests.MarkEditorialAccessed(ctx, contestID, problemID)
		}
	}
	return fmt.Errorf("problem %s is not part of contest %s: %w", problemID, contestID, common.ErrNotFound)
}

func (s *ContestService) checkOwnership(c *model.PracticeContest, userID string) error {
	if c.UserID != userID {
		return fmt.Errorf("contest belongs to another user: %w", common.ErrForbidden)
	}
	return nil
}

func (s *ContestService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
