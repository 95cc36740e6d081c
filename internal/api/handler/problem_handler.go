package handler

import (
	"net/http"
	"strconv"
	"strings"

	"cfcatalyst/internal/app/service"
	"cfcatalyst/internal/common"
	"cfcatalyst/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ProblemHandler struct {
	problemService *service.ProblemService
}

func NewProblemHandler(ps *service.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: ps}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listProblems) // GET /api/v1/problems
}

func (h *ProblemHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	minRating, err := strconv.Atoi(q.Get("minRating"))
	if err != nil || minRating <= 0 {
		minRating = 0
	}
	maxRating, err := strconv.Atoi(q.Get("maxRating"))
	if err != nil || maxRating <= 0 {
		maxRating = 5000
	}

	var tagsFilter []string
	if tagsStr := q.Get("tags"); tagsStr != "" {
		tagsFilter = strings.Split(tagsStr, ",")
	}

	problems, total, err := h.problemService.ListProblems(r.Context(), page, pageSize, minRating, maxRating, tagsFilter)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	type PaginatedProblemsResponse struct {
		Problems []model.Problem `json:"problems"`
		Total    int             `json:"total"`
		Page     int             `json:"page"`
		PageSize int             `json:"page_size"`
	}
	common.RespondWithJSON(w, http.StatusOK, PaginatedProblemsResponse{
		Problems: problems,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}
