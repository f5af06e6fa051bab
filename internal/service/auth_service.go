package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/clock"
	pkgerrors "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/errors"
)

// AuthService token lifecycle. Sign-in itself belongs to the identity provider.
type AuthService interface {
	// Logout revokes the token identified by jti until it would have expired.
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
}

type authService struct {
	revoker TokenRevoker
	clock   clock.Clock
	logger  *zap.Logger
}

// NewAuthService creates an AuthService. revoker may be nil.
func NewAuthService(revoker TokenRevoker, clk clock.Clock, logger *zap.Logger) AuthService {
	return &authService{revoker: revoker, clock: clk, logger: logger}
}

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	if s.revoker == nil {
		s.logger.Warn("logout without token store, token stays valid until expiry", zap.String("jti", jti))
		return nil
	}
	ttl := expiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.BlacklistToken(ctx, jti, ttl); err != nil {
		s.logger.Error("revoke token failed", zap.String("jti", jti), zap.Error(err))
		return pkgerrors.Upstream("token store", err)
	}
	return nil
}
