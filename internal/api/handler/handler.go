package handler

import "github.com/SteveWTK/neptunes-tribe-english-sub006/internal/service"

// Handler aggregates every HTTP handler.
type Handler struct {
	Auth      *AuthHandler
	User      *UserHandler
	Progress  *ProgressHandler
	Exercise  *ExerciseHandler
	BetaCode  *BetaCodeHandler
	Guest     *GuestHandler
	Community *CommunityHandler
	Payment   *PaymentHandler
}

// NewHandler builds the aggregate.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(svc.Auth),
		User:      NewUserHandler(svc.User),
		Progress:  NewProgressHandler(svc.Progress),
		Exercise:  NewExerciseHandler(svc.Exercise),
		BetaCode:  NewBetaCodeHandler(svc.BetaCode),
		Guest:     NewGuestHandler(svc.Guest),
		Community: NewCommunityHandler(svc.Community, svc.Leaderboard, svc.Dashboard),
		Payment:   NewPaymentHandler(svc.Payment),
	}
}
