package api

import (
	"net/http"
	"time"

	"cfcatalyst/internal/api/handler"
	"cfcatalyst/internal/api/middleware"
	"cfcatalyst/internal/app/service"
	"cfcatalyst/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	problemService *service.ProblemService,
	contestService *service.ContestService,
	syncService *service.SyncService,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// JWT Auth Middleware Setup. Verifies the "Authorization: Bearer T" token
	// and puts claims in context; enforcement happens per route group.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		// Auth routes (public)
		authHandler := handler.NewAuthHandler(authService)
		v1.Route("/auth", authHandler.RegisterRoutes)

		// Problem archive browsing (public)
		problemHandler := handler.NewProblemHandler(problemService)
		v1.Route("/problems", problemHandler.RegisterRoutes)

		// Practice contests (authenticated)
		contestHandler := handler.NewContestHandler(contestService, syncService)
		v1.Route("/contests", func(cr chi.Router) {
			cr.Use(middleware.Authenticator)
			contestHandler.RegisterRoutes(cr)
		})

		// Archive sync triggers (admin)
		syncHandler := handler.NewSyncHandler(syncService)
		v1.Route("/admin/sync", func(ar chi.Router) {
			ar.Use(middleware.Authenticator)
			ar.Use(middleware.AdminOnly)
			syncHandler.RegisterRoutes(ar)
		})
	})

	return r
}
