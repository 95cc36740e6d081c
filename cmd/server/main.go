package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cfcatalyst/internal/api"
	"cfcatalyst/internal/app/profile"
	"cfcatalyst/internal/app/rating"
	"cfcatalyst/internal/app/selector"
	"cfcatalyst/internal/app/service"
	"cfcatalyst/internal/app/worker"
	"cfcatalyst/internal/codeforces"
	"cfcatalyst/internal/common/security"
	"cfcatalyst/internal/domain/repository"
	"cfcatalyst/internal/platform/config"
	"cfcatalyst/internal/platform/database"
	"cfcatalyst/internal/platform/queue"

	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// 1. Load Configuration
	config.Load()

	// 2. Initialize JWT
	security.InitJWT()

	// 3. Initialize Database
	database.Connect()
	defer database.Close()

	// 4. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()

	logger.Info().Msg("platform initialized")

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)
	contestRepo := repository.NewPgPracticeContestRepository(database.DB)

	// 6. Codeforces client and the selection/rating cores
	cfClient := codeforces.NewClient(config.AppConfig.CodeforcesBaseURL, &http.Client{
		Timeout: time.Duration(config.AppConfig.CodeforcesTimeoutSecs) * time.Second,
	})
	profileBuilder := profile.NewBuilder(problemRepo, config.AppConfig.ProfileContestWindow, logger)
	problemSelector := selector.NewService(problemRepo, cfClient, profileBuilder, config.AppConfig.SubmissionFetchCount, logger)
	ratingEngine := rating.NewEngine(nil)

	// 7. Initialize Services
	locker := service.NewContestLocker(queue.RDB, time.Duration(config.AppConfig.ContestLockTTLSeconds)*time.Second, logger)
	authService := service.NewAuthService(userRepo, cfClient, logger)
	problemService := service.NewProblemService(problemRepo)
	contestService := service.NewContestService(contestRepo, userRepo, problemSelector, ratingEngine, locker, database.DB, logger)
	syncService := service.NewSyncService(
		cfClient, userRepo, contestRepo, problemRepo,
		contestService, locker, queue.RDB,
		config.AppConfig.SyncQueueName, config.AppConfig.SubmissionFetchCount,
		logger,
	)

	// 8. Initialize Sync Worker (as a goroutine)
	syncWorker := worker.NewSyncWorker(queue.RDB, syncService, config.AppConfig.SyncQueueName, logger)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go syncWorker.Start(workerCtx)

	// 9. Initialize Router & HTTP Server
	router := api.NewRouter(authService, problemService, contestService, syncService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 10. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info().Str("port", config.AppConfig.APIPort).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Str("port", config.AppConfig.APIPort).Msg("server failed to listen")
		}
	}()

	<-stop // Wait for interrupt signal

	logger.Info().Msg("shutting down server")
	workerCancel() // Signal worker to stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}

	logger.Info().Msg("server and worker stopped gracefully")
}
