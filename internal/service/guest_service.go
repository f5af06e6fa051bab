package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/config"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/dto"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/guest"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/repository"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/clock"
	pkgerrors "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/errors"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/jwt"
)

// ── guest errors ──

var (
	ErrGuestCodeNotFound     = pkgerrors.NotFound("guest code")
	ErrGuestCodeExhausted    = pkgerrors.AlreadyUsed("guest code has no activations left")
	ErrGuestCodeExists       = pkgerrors.AlreadyUsed("guest code already exists")
	ErrGuestSessionNotFound  = pkgerrors.NotFound("guest session")
	ErrGuestAlreadyConverted = pkgerrors.AlreadyUsed("guest session has already been converted")
	ErrEmailTaken            = pkgerrors.Validation("email is already registered")
)

// guestEmailDomain keeps placeholder addresses out of any deliverable domain.
const guestEmailDomain = "@guest.habitat.invalid"

// GuestService time-boxed guest access.
type GuestService interface {
	CreateCode(ctx context.Context, req *dto.CreateGuestCodeRequest) (*dto.GuestCodeResponse, error)
	// Activate consumes a guest code, creates a guest user and session, and
	// issues a token that lives as long as the session.
	Activate(ctx context.Context, req *dto.ActivateGuestRequest) (*dto.GuestActivationResponse, error)
	Status(ctx context.Context, userID string) (*dto.GuestSessionResponse, error)
	// Convert turns the guest into a regular user with the given email.
	Convert(ctx context.Context, userID string, req *dto.ConvertGuestRequest) (*dto.UserResponse, error)
}

type guestService struct {
	cfg    *config.GuestConfig
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	clock  clock.Clock
	logger *zap.Logger
}

// NewGuestService creates a GuestService.
func NewGuestService(cfg *config.GuestConfig, repo *repository.Repository, jwtMgr *jwt.Manager, clk clock.Clock, logger *zap.Logger) GuestService {
	return &guestService{cfg: cfg, repo: repo, jwtMgr: jwtMgr, clock: clk, logger: logger}
}

func (s *guestService) CreateCode(ctx context.Context, req *dto.CreateGuestCodeRequest) (*dto.GuestCodeResponse, error) {
	code := NormalizeCode(req.Code)
	if code == "" {
		return nil, pkgerrors.Validation("guest code is required")
	}
	if _, err := s.repo.GuestCode.Get(ctx, code); err == nil {
		return nil, ErrGuestCodeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	gc := &model.GuestCode{
		Code:            code,
		DurationMinutes: req.DurationMinutes,
		MaxActivations:  req.MaxActivations,
	}
	if gc.DurationMinutes <= 0 {
		gc.DurationMinutes = int(s.cfg.DefaultDuration / time.Minute)
	}
	if gc.MaxActivations <= 0 {
		gc.MaxActivations = 1
	}
	if err := s.repo.GuestCode.Create(ctx, gc); err != nil {
		s.logger.Error("create guest code failed", zap.Error(err))
		return nil, err
	}
	return toGuestCodeResponse(gc), nil
}

// ────────────────────── Activate ──────────────────────

func (s *guestService) Activate(ctx context.Context, req *dto.ActivateGuestRequest) (*dto.GuestActivationResponse, error) {
	code := NormalizeCode(req.Code)
	if code == "" {
		return nil, pkgerrors.Validation("guest code is required")
	}

	gc, err := s.repo.GuestCode.Get(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestCodeNotFound
		}
		s.logger.Error("load guest code failed", zap.Error(err))
		return nil, err
	}

	duration := time.Duration(gc.DurationMinutes) * time.Minute
	if duration <= 0 {
		duration = s.cfg.DefaultDuration
	}

	now := s.clock.Now().UTC()
	user := &model.User{
		UserID:             uuid.NewString(),
		Role:               model.RoleGuest,
		SubscriptionStatus: model.SubscriptionNone,
	}
	user.Email = user.UserID + guestEmailDomain
	session := &model.GuestSession{
		UserID:    user.UserID,
		GuestCode: gc.Code,
		StartedAt: now,
		ExpiresAt: now.Add(duration),
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		ok, err := tx.GuestCode.Consume(ctx, gc.Code)
		if err != nil {
			return err
		}
		if !ok {
			return ErrGuestCodeExhausted
		}
		if err := tx.User.Create(ctx, user); err != nil {
			return err
		}
		return tx.GuestSession.Create(ctx, session)
	})
	if err != nil {
		if !errors.Is(err, ErrGuestCodeExhausted) {
			s.logger.Error("activate guest code failed", zap.String("code", gc.Code), zap.Error(err))
		}
		return nil, err
	}

	token, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Email, model.RoleGuest, duration)
	if err != nil {
		s.logger.Error("sign guest token failed", zap.Error(err))
		return nil, err
	}

	status, err := toGuestSessionResponse(session, now)
	if err != nil {
		return nil, err
	}

	s.logger.Info("guest session started",
		zap.String("user_id", user.UserID),
		zap.String("code", gc.Code),
		zap.Time("expires_at", session.ExpiresAt),
	)

	return &dto.GuestActivationResponse{
		UserID: user.UserID,
		Token: dto.TokenResponse{
			AccessToken: token,
			ExpiresIn:   int(duration / time.Second),
		},
		Session: *status,
	}, nil
}

// ────────────────────── Status / Convert ──────────────────────

func (s *guestService) Status(ctx context.Context, userID string) (*dto.GuestSessionResponse, error) {
	session, err := s.latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toGuestSessionResponse(session, s.clock.Now())
}

func (s *guestService) Convert(ctx context.Context, userID string, req *dto.ConvertGuestRequest) (*dto.UserResponse, error) {
	session, err := s.latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session.ConvertedAt != nil {
		return nil, ErrGuestAlreadyConverted
	}

	if existing, err := s.repo.User.GetByEmail(ctx, req.Email); err == nil && existing.UserID != userID {
		return nil, ErrEmailTaken
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := s.clock.Now().UTC()
	var user *model.User
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		ok, err := tx.GuestSession.MarkConverted(ctx, session.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrGuestAlreadyConverted
		}
		if err := tx.User.UpdateIdentity(ctx, userID, req.Email, model.RoleUser); err != nil {
			return err
		}
		user, err = tx.User.GetByID(ctx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		if !errors.Is(err, ErrGuestAlreadyConverted) {
			s.logger.Error("convert guest failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("guest converted", zap.String("user_id", userID))
	return toUserResponse(user), nil
}

func (s *guestService) latest(ctx context.Context, userID string) (*model.GuestSession, error) {
	session, err := s.repo.GuestSession.LatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestSessionNotFound
		}
		s.logger.Error("load guest session failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return session, nil
}

func toGuestSessionResponse(session *model.GuestSession, now time.Time) (*dto.GuestSessionResponse, error) {
	st, err := guest.EvaluateSession(session.StartedAt, session.ExpiresAt, session.ConvertedAt, now)
	if err != nil {
		return nil, err
	}
	return &dto.GuestSessionResponse{
		SessionID:        session.ID,
		StartedAt:        formatTime(session.StartedAt),
		ExpiresAt:        formatTime(session.ExpiresAt),
		RemainingSeconds: st.RemainingSeconds,
		PercentRemaining: st.PercentRemaining,
		PercentElapsed:   st.PercentElapsed,
		Expired:          st.Expired,
		Converted:        st.Converted,
		Active:           st.Active,
	}, nil
}

func toGuestCodeResponse(gc *model.GuestCode) *dto.GuestCodeResponse {
	return &dto.GuestCodeResponse{
		Code:            gc.Code,
		DurationMinutes: gc.DurationMinutes,
		MaxActivations:  gc.MaxActivations,
		Activations:     gc.Activations,
	}
}
