package handler

import (
	"net/http"

	"cfcatalyst/internal/app/service"
	"cfcatalyst/internal/common"

	"github.com/go-chi/chi/v5"
)

// SyncHandler exposes admin-only archive refresh triggers.
type SyncHandler struct {
	syncService *service.SyncService
}

func NewSyncHandler(ss *service.SyncService) *SyncHandler {
	return &SyncHandler{syncService: ss}
}

func (h *SyncHandler) RegisterRoutes(r chi.Router) {
	r.Post("/problems", h.syncProblems)
	r.Post("/contests", h.syncContests)
}

func (h *SyncHandler) syncProblems(w http.ResponseWriter, r *http.Request) {
	count, err := h.syncService.SyncProblems(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]int{"synced": count})
}

func (h *SyncHandler) syncContests(w http.ResponseWriter, r *http.Request) {
	count, err := h.syncService.SyncContests(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]int{"synced": count})
}
