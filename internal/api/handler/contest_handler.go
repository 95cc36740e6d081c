package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"cfcatalyst/internal/api/middleware"
	"cfcatalyst/internal/app/service"
	"cfcatalyst/internal/common"
	"cfcatalyst/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ContestHandler struct {
	contestService *service.ContestService
	syncService    *service.SyncService
}

func NewContestHandler(cs *service.ContestService, ss *service.SyncService) *ContestHandler {
	return &ContestHandler{contestService: cs, syncService: ss}
}

// All contest routes require authentication; the router wires the middleware.
func (h *ContestHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.generate)
	r.Get("/", h.list)
	r.Get("/{contestID}", h.get)
	r.Post("/{contestID}/start", h.start)
	r.Post("/{contestID}/complete", h.complete)
	r.Post("/{contestID}/problems/{problemID}/editorial", h.markEditorial)
}

func (h *ContestHandler) generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.GenerateContestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	contest, err := h.contestService.Generate(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, contest)
}

func (h *ContestHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if pageSize <= 0 || pageSize > 50 {
		pageSize = 20
	}

	contests, total, err := h.contestService.List(r.Context(), userID, pageSize, (page-1)*pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	type PaginatedContestsResponse struct {
		Contests []model.PracticeContest `json:"contests"`
		Total    int                     `json:"total"`
		Page     int                     `json:"page"`
		PageSize int                     `json:"page_size"`
	}
	common.RespondWithJSON(w, http.StatusOK, PaginatedContestsResponse{
		Contests: contests,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *ContestHandler) get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	contestID := chi.URLParam(r, "contestID")

	contest, err := h.contestService.Get(r.Context(), userID, contestID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	// Viewing an ongoing contest nudges a background sync so solves and the
	// expiry timer stay fresh without the client polling Codeforces itself.
	// Best effort; the periodic requeue covers a failed enqueue.
	if contest.Status == model.ContestOngoing {
		_ = h.syncService.EnqueueContestSync(r.Context(), contest.ID)
	}
	common.RespondWithJSON(w, http.StatusOK, contest)
}

func (h *ContestHandler) start(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	contestID := chi.URLParam(r, "contestID")

	contest, err := h.contestService.Start(r.Context(), userID, contestID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contest)
}

func (h *ContestHandler) complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	contestID := chi.URLParam(r, "contestID")

	contest, err := h.contestService.Complete(r.Context(), userID, contestID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contest)
}

func (h *ContestHandler) markEditorial(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	contestID := chi.URLParam(r, "contestID")
	problemID := chi.URLParam(r, "problemID")

	if err := h.contestService.MarkEditorialAccessed(r.Context(), userID, contestID, problemID); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}
