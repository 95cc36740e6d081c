package worker

import (
	"context"
	"errors"
	"time"

	"cfcatalyst/internal/app/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// requeuePeriod drives the periodic re-enqueue of all ongoing contests so
// expired timers complete even when nobody polls them.
const requeuePeriod = time.Minute

// SyncWorker drains the contest sync queue. Per-contest locking inside the
// sync service keeps concurrent workers from double-applying a solve.
type SyncWorker struct {
	rdb       *redis.Client
	syncSvc   *service.SyncService
	queueName string
	logger    zerolog.Logger
}

func NewSyncWorker(rdb *redis.Client, syncSvc *service.SyncService, queueName string, logger zerolog.Logger) *SyncWorker {
	return &SyncWorker{
		rdb:       rdb,
		syncSvc:   syncSvc,
		queueName: queueName,
		logger:    logger.With().Str("component", "sync_worker").Logger(),
	}
}

func (w *SyncWorker) Start(ctx context.Context) {
	w.logger.Info().Str("queue", w.queueName).Msg("sync worker started")

	ticker := time.NewTicker(requeuePeriod)
	defer ticker.Stop()
	go w.requeueLoop(ctx, ticker)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("sync worker stopping")
			return
		default:
			// Blocking pop with a short timeout so shutdown stays responsive.
			res, err := w.rdb.BRPop(ctx, 5*time.Second, w.queueName).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				w.logger.Error().Err(err).Msg("failed to pop from sync queue")
				time.Sleep(5 * time.Second)
				continue
			}
			if len(res) < 2 || res[1] == "" {
				continue
			}
			contestID := res[1]

			if err := w.syncSvc.SyncContest(ctx, contestID); err != nil {
				w.logger.Error().Err(err).Str("contest_id", contestID).Msg("contest sync failed")
			}
		}
	}
}

func (w *SyncWorker) requeueLoop(ctx context.Context, ticker *time.Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.syncSvc.EnqueueOngoing(ctx); err != nil {
				w.logger.Error().Err(err).Msg("failed to requeue ongoing contests")
			}
		}
	}
}
