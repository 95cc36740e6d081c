package service

import (
	"context"
	"fmt"
	"time"

	"cfcatalyst/internal/common"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const contestLockKeyPrefix = "practice_contest_lock:"

// releaseLockScript deletes the lock only if this holder still owns it, so an
// expired lock taken over by another request is never clobbered.
var releaseLockScript = redis.NewScript(`
    if redis.call("get", KEYS[1]) == ARGV[1] then
        return redis.call("del", KEYS[1])
    else
        return 0
    end
`)

// ContestLocker serializes mutations of a single practice contest across
// concurrent requests and sync workers. Two simultaneous completions or
// syncs must not double-count a solve.
type ContestLocker struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewContestLocker(rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *ContestLocker {
	return &ContestLocker{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With().Str("component", "contest_locker").Logger(),
	}
}

// Acquire takes the per-contest lock and returns its release func. A held
// lock surfaces as ErrContestLocked; callers either retry or skip the cycle.
func (l *ContestLocker) Acquire(ctx context.Context, contestID string) (func(), error) {
	key := contestLockKeyPrefix + contestID
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("contest lock acquire %s: %w", contestID, err)
	}
	if !ok {
		return nil, fmt.Errorf("contest %s: %w", contestID, common.ErrContestLocked)
	}

	release := func() {
		deleted, err := releaseLockScript.Run(context.Background(), l.rdb, []string{key}, token).Result()
		if err != nil {
			l.logger.Error().Err(err).Str("contest_id", contestID).Msg("failed to release contest lock")
			return
		}
		if n, _ := deleted.(int64); n != 1 {
			l.logger.Warn().Str("contest_id", contestID).Msg("contest lock expired before release")
		}
	}
	return release, nil
}
