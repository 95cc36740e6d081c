package service

import (
	"context"
	"fmt"

	"cfcatalyst/internal/common"
	"cfcatalyst/internal/domain/model"
	"cfcatalyst/internal/domain/repository"
)

// ProblemService exposes the synced archive for browsing. The pool itself is
// read-only outside of admin syncs.
type ProblemService struct {
	problemRepo repository.ProblemRepository
}

func NewProblemService(problemRepo repository.ProblemRepository) *ProblemService {
	return &ProblemService{problemRepo: problemRepo}
}

func (s *ProblemService) ListProblems(ctx context.Context, page, pageSize, minRating, maxRating int, tags []string) ([]model.Problem, int, error) {
	if minRating > maxRating {
		return nil, 0, fmt.Errorf("min rating %d exceeds max rating %d: %w", minRating, maxRating, common.ErrValidation)
	}
	filter := repository.ProblemFilter{
		MinRating: minRating,
		MaxRating: maxRating,
		Tags:      model.NormalizeTags(tags),
		Limit:     pageSize,
	}
	return s.problemRepo.ListProblems(ctx, filter, (page-1)*pageSize)
}
