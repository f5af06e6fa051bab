package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/dto"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/repository"
	pkgerrors "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/errors"
)

// ── user errors ──

var (
	ErrUserNotFound       = pkgerrors.NotFound("user")
	ErrUserSelfRoleChange = pkgerrors.Validation("you cannot change your own role")
	// ErrIdentityEmailConflict: the token's email is stored under another
	// user id. Rows are never adopted by email; an admin has to reconcile.
	ErrIdentityEmailConflict = pkgerrors.AlreadyUsed("email is already linked to another account")
)

// placeholderEmailDomain stands in for tokens that carry no email claim.
const placeholderEmailDomain = "@users.habitat.invalid"

// UserService users mirrored from the identity provider.
type UserService interface {
	// Sync makes sure the token's user exists locally and returns the stored
	// row, whose role is authoritative over the token's.
	Sync(ctx context.Context, userID, email string) (*model.User, error)
	GetMe(ctx context.Context, userID string) (*dto.MeResponse, error)
	List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	AssignRole(ctx context.Context, id string, req *dto.AssignRoleRequest, callerID string) error
}

type userService struct {
	repo     *repository.Repository
	progress ProgressService
	logger   *zap.Logger
}

// NewUserService creates a UserService.
func NewUserService(repo *repository.Repository, progress ProgressService, logger *zap.Logger) UserService {
	return &userService{repo: repo, progress: progress, logger: logger}
}

// ────────────────────── Sync ──────────────────────

func (s *userService) Sync(ctx context.Context, userID, email string) (*model.User, error) {
	if email == "" {
		email = userID + placeholderEmailDomain
	}
	user, err := s.repo.User.Ensure(ctx, userID, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// the email belongs to another local user
			s.logger.Warn("identity email conflict", zap.String("user_id", userID))
			return nil, ErrIdentityEmailConflict
		}
		s.logger.Error("sync user failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// ────────────────────── GetMe ──────────────────────

func (s *userService) GetMe(ctx context.Context, userID string) (*dto.MeResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("load user failed", zap.String("id", userID), zap.Error(err))
		return nil, err
	}

	progress, err := s.progress.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Achievement.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("list achievements failed", zap.String("id", userID), zap.Error(err))
		return nil, err
	}
	achievements := make([]string, 0, len(rows))
	for _, a := range rows {
		achievements = append(achievements, a.Name)
	}

	return &dto.MeResponse{
		User:         *toUserResponse(user),
		Progress:     *progress,
		Achievements: achievements,
	}, nil
}

// ────────────────────── List / AssignRole ──────────────────────

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	filters := &repository.UserListFilters{
		Role:    req.Role,
		Keyword: req.Keyword,
	}
	users, total, err := s.repo.User.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("list users failed", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i]))
	}
	return result, total, nil
}

func (s *userService) AssignRole(ctx context.Context, id string, req *dto.AssignRoleRequest, callerID string) error {
	if id == callerID {
		return ErrUserSelfRoleChange
	}
	if err := s.repo.User.UpdateRole(ctx, id, req.Role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("assign role failed", zap.String("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("role assigned",
		zap.String("user_id", id),
		zap.String("role", req.Role),
		zap.String("by", callerID),
	)
	return nil
}

func toUserResponse(u *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:                 u.UserID,
		Email:              u.Email,
		Name:               u.Name,
		Role:               u.Role,
		SubscriptionStatus: u.SubscriptionStatus,
		CreatedAt:          formatTime(u.CreatedAt),
	}
}
