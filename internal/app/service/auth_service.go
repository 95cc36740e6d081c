package service

import (
	"context"
	"errors"
	"fmt"

	"cfcatalyst/internal/common"
	"cfcatalyst/internal/common/security"
	"cfcatalyst/internal/domain/model"
	"cfcatalyst/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RatingSource resolves a Codeforces handle's current rating. Lookups are
// best-effort during auth; a dead upstream never blocks a login.
type RatingSource interface {
	UserRating(ctx context.Context, handle string) (int, error)
}

type AuthService struct {
	userRepo repository.UserRepository
	ratings  RatingSource
	logger   zerolog.Logger
}

func NewAuthService(userRepo repository.UserRepository, ratings RatingSource, logger zerolog.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		ratings:  ratings,
		logger:   logger.With().Str("component", "auth_service").Logger(),
	}
}

type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Handle   string `json:"handle" validate:"required"` // Codeforces handle
}

type LoginRequest struct {
	LoginField string `json:"login_field" validate:"required"` // Can be username or email
	Password   string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hashedPassword,
		Role:           model.RoleUser, // Default role
		Handle:         req.Handle,
		Rating:         s.lookupRating(ctx, req.Handle),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Repo might return common.ErrConflict
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := security.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	user.HashedPassword = "" // Clear password before returning
	return &AuthResponse{User: user, Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	var user *model.User
	var err error

	// Try finding by email first, then by username
	user, err = s.userRepo.FindByEmail(ctx, req.LoginField)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			user, err = s.userRepo.FindByUsername(ctx, req.LoginField)
		}
	}

	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized // Generic message for security
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.ErrUnauthorized
	}

	// Refresh the cached Codeforces rating while we have the user around.
	if rating := s.lookupRating(ctx, user.Handle); rating > 0 && rating != user.Rating {
		if err := s.userRepo.UpdateRating(ctx, user.ID, rating); err != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to persist refreshed rating")
		} else {
			user.Rating = rating
		}
	}

	token, err := security.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	user.HashedPassword = ""
	return &AuthResponse{User: user, Token: token}, nil
}

func (s *AuthService) lookupRating(ctx context.Context, handle string) int {
	if handle == "" || s.ratings == nil {
		return 0
	}
	rating, err := s.ratings.UserRating(ctx, handle)
	if err != nil {
		s.logger.Warn().Err(err).Str("handle", handle).Msg("rating lookup failed")
		return 0
	}
	return rating
}
