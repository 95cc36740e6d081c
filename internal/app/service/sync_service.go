package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cfcatalyst/internal/common"
	"cfcatalyst/internal/domain/model"
	"cfcatalyst/internal/domain/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ArchiveClient is the slice of the Codeforces API the sync layer consumes.
type ArchiveClient interface {
	UserStatus(ctx context.Context, handle string, count int) ([]model.Submission, error)
	ContestList(ctx context.Context) ([]model.Contest, error)
	ProblemSet(ctx context.Context) ([]model.Problem, error)
}

// SyncService pulls submission results into ongoing practice contests and
// refreshes the local problem/contest archive from Codeforces.
type SyncService struct {
	archive    ArchiveClient
	users      repository.UserRepository
	contests   repository.PracticeContestRepository
	problems   repository.ProblemRepository
	contestSvc *ContestService
	locks      *ContestLocker
	rdb        *redis.Client
	queueName  string
	fetchCount int
	logger     zerolog.Logger
}

func NewSyncService(
	archive ArchiveClient,
	users repository.UserRepository,
	contests repository.PracticeContestRepository,
	problems repository.ProblemRepository,
	contestSvc *ContestService,
	locks *ContestLocker,
	rdb *redis.Client,
	queueName string,
	fetchCount int,
	logger zerolog.Logger,
) *SyncService {
	if fetchCount <= 0 {
		fetchCount = 100
	}
	return &SyncService{
		archive:    archive,
		users:      users,
		contests:   contests,
		problems:   problems,
		contestSvc: contestSvc,
		locks:      locks,
		rdb:        rdb,
		queueName:  queueName,
		fetchCount: fetchCount,
		logger:     logger.With().Str("component", "sync_service").Logger(),
	}
}

// EnqueueContestSync schedules a contest for a sync pass. Called whenever an
// ongoing contest is viewed, and by the periodic requeue of ongoing contests.
func (s *SyncService) EnqueueContestSync(ctx context.Context, contestID string) error {
	if err := s.rdb.LPush(ctx, s.queueName, contestID).Err(); err != nil {
		return fmt.Errorf("enqueue contest sync %s: %w", contestID, err)
	}
	return nil
}

// EnqueueOngoing pushes every ongoing contest onto the sync queue so expired
// timers get completed even when nobody is watching.
func (s *SyncService) EnqueueOngoing(ctx context.Context) error {
	ids, err := s.contests.ListOngoingIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.EnqueueContestSync(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SyncContest applies the owner's recent Codeforces submissions to an
// ongoing contest, then completes it if the timer has elapsed. A contest
// already being synced elsewhere is skipped, not retried.
func (s *SyncService) SyncContest(ctx context.Context, contestID string) error {
	release, err := s.locks.Acquire(ctx, contestID)
	if err != nil {
		if errors.Is(err, common.ErrContestLocked) {
			s.logger.Debug().Str("contest_id", contestID).Msg("contest locked, skipping sync cycle")
			return nil
		}
		return err
	}

	expired, err := s.applySubmissions(ctx, contestID)
	release()
	if err != nil {
		return err
	}

	if expired {
		// Timeout completion path; Complete takes its own lock.
		if _, err := s.contestSvc.Complete(ctx, "", contestID); err != nil {
			return fmt.Errorf("timeout completion for contest %s: %w", contestID, err)
		}
	}
	return nil
}

func (s *SyncService) applySubmissions(ctx context.Context, contestID string) (expired bool, err error) {
	c, err := s.contests.FindByID(ctx, contestID)
	if err != nil {
		return false, err
	}
	if c.Status != model.ContestOngoing || c.StartedAt == nil || c.EndsAt == nil {
		return false, nil
	}

	user, err := s.users.FindByID(ctx, c.UserID)
	if err != nil {
		return false, err
	}

	subs, err := s.archive.UserStatus(ctx, user.Handle, s.fetchCount)
	if err != nil {
		// Upstream hiccups are routine; the next cycle catches up.
		s.logger.Warn().Err(err).Str("contest_id", contestID).Msg("submission fetch failed, will retry on next sync")
		return c.IsExpired(time.Now().UTC()), nil
	}

	inContest := make(map[string]struct{}, len(c.Problems))
	for _, p := range c.Problems {
		inContest[p.ProblemID] = struct{}{}
	}

	for _, sub := range subs {
		if !sub.Accepted() {
			continue
		}
		if _, ok := inContest[sub.ProblemID]; !ok {
			continue
		}
		if sub.CreatedAt.Before(*c.StartedAt) || sub.CreatedAt.After(*c.EndsAt) {
			continue
		}
		solveTime := int(sub.CreatedAt.Sub(*c.StartedAt).Seconds())
		// The repository guards the already-solved invariant; replays keep
		// the first recorded solve.
		if err := s.contests.MarkProblemSolved(ctx, nil, contestID, sub.ProblemID, solveTime); err != nil {
			return false, err
		}
	}

	return c.IsExpired(time.Now().UTC()), nil
}

// SyncProblems refreshes the local problem archive from the Codeforces
// problemset, including solve statistics. Admin-triggered.
func (s *SyncService) SyncProblems(ctx context.Context) (int, error) {
	problems, err := s.archive.ProblemSet(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.problems.UpsertProblems(ctx, problems); err != nil {
		return 0, err
	}
	s.logger.Info().Int("count", len(problems)).Msg("problem archive synced")
	return len(problems), nil
}

// SyncContests refreshes the archive contest list used by the profile
// builder. Admin-triggered.
func (s *SyncService) SyncContests(ctx context.Context) (int, error) {
	contests, err := s.archive.ContestList(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.problems.UpsertContests(ctx, contests); err != nil {
		return 0, err
	}
	s.logger.Info().Int("count", len(contests)).Msg("contest archive synced")
	return len(contests), nil
}
