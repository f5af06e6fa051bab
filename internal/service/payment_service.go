package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/dto"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/repository"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/clock"
	pkgerrors "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/errors"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/payment"
)

// DonationXP is credited once per completed donation checkout.
const DonationXP = 100

var ErrWebhookSignature = pkgerrors.Unauthorized("invalid webhook signature")

// PaymentService handles payment-provider webhooks.
type PaymentService interface {
	// HandleWebhook verifies and applies one webhook delivery. Redelivery of
	// an already recorded checkout is acknowledged without side effects.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookResponse, error)
	// ListByUser returns the user's recorded checkouts, newest first.
	ListByUser(ctx context.Context, userID string) ([]dto.PaymentResponse, error)
}

type paymentService struct {
	repo     *repository.Repository
	verifier payment.Verifier
	progress ProgressService
	clock    clock.Clock
	logger   *zap.Logger
}

// NewPaymentService creates a PaymentService.
func NewPaymentService(
	repo *repository.Repository,
	verifier payment.Verifier,
	progress ProgressService,
	clk clock.Clock,
	logger *zap.Logger,
) PaymentService {
	return &paymentService{repo: repo, verifier: verifier, progress: progress, clock: clk, logger: logger}
}

func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookResponse, error) {
	if s.verifier == nil {
		return nil, pkgerrors.Upstream("payment provider", errors.New("webhook verifier not configured"))
	}
	evt, err := s.verifier.Verify(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			s.logger.Warn("rejected webhook", zap.Error(err))
			return nil, ErrWebhookSignature
		}
		s.logger.Error("decode webhook failed", zap.Error(err))
		return nil, pkgerrors.Upstream("payment provider", err)
	}

	ack := &dto.WebhookResponse{Received: true}
	if evt.Type != payment.EventCheckoutCompleted || evt.Checkout == nil {
		s.logger.Debug("ignored webhook event", zap.String("event_id", evt.ID), zap.String("type", evt.Type))
		return ack, nil
	}
	cs := evt.Checkout
	if cs.PaymentStatus != "paid" && cs.PaymentStatus != "no_payment_required" {
		s.logger.Info("checkout not paid yet", zap.String("session_id", cs.ID), zap.String("status", cs.PaymentStatus))
		return ack, nil
	}

	user, err := s.resolveUser(ctx, cs)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// acknowledge so the provider stops redelivering an unmatchable event
			s.logger.Warn("checkout for unknown user", zap.String("session_id", cs.ID))
			return ack, nil
		}
		return nil, err
	}

	kind := model.PaymentKindDonation
	if cs.Mode == payment.ModeSubscription {
		kind = model.PaymentKindSubscription
	}

	var (
		inserted bool
		newXP    = -1
	)
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		inserted, err = tx.Payment.CreateIfAbsent(ctx, &model.Payment{
			UserID:            user.UserID,
			ProviderSessionID: cs.ID,
			Kind:              kind,
			AmountTotal:       cs.AmountTotal,
			Currency:          strings.ToLower(cs.Currency),
			Status:            cs.PaymentStatus,
			CreatedAt:         s.clock.Now().UTC(),
		})
		if err != nil || !inserted {
			return err
		}

		if kind == model.PaymentKindSubscription {
			role := user.Role
			if roleRank[role] < roleRank[model.RolePremium] {
				role = model.RolePremium
			}
			return tx.User.UpdateSubscription(ctx, user.UserID, model.SubscriptionActive, role)
		}

		newXP, err = s.progress.Award(ctx, tx, user.UserID, DonationXP, model.PointsReasonDonation, cs.ID)
		return err
	})
	if err != nil {
		s.logger.Error("apply checkout failed", zap.String("session_id", cs.ID), zap.Error(err))
		return nil, err
	}

	if !inserted {
		ack.Duplicate = true
		return ack, nil
	}
	if newXP >= 0 {
		s.progress.Publish(ctx, user.UserID, newXP)
	}

	s.logger.Info("checkout recorded",
		zap.String("session_id", cs.ID),
		zap.String("user_id", user.UserID),
		zap.String("kind", kind),
		zap.Int64("amount_total", cs.AmountTotal),
	)
	return ack, nil
}

func (s *paymentService) ListByUser(ctx context.Context, userID string) ([]dto.PaymentResponse, error) {
	rows, err := s.repo.Payment.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("list payments failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	out := make([]dto.PaymentResponse, 0, len(rows))
	for _, p := range rows {
		out = append(out, dto.PaymentResponse{
			ID:          p.ID,
			Kind:        p.Kind,
			AmountTotal: p.AmountTotal,
			Currency:    p.Currency,
			Status:      p.Status,
			CreatedAt:   formatTime(p.CreatedAt),
		})
	}
	return out, nil
}

// resolveUser finds the paying user by metadata user_id, then by email.
func (s *paymentService) resolveUser(ctx context.Context, cs *payment.CheckoutSession) (*model.User, error) {
	var (
		user *model.User
		err  error
	)
	switch {
	case cs.Metadata["user_id"] != "":
		user, err = s.repo.User.GetByID(ctx, cs.Metadata["user_id"])
	case cs.Metadata["user_email"] != "":
		user, err = s.repo.User.GetByEmail(ctx, cs.Metadata["user_email"])
	case cs.CustomerEmail != "":
		user, err = s.repo.User.GetByEmail(ctx, cs.CustomerEmail)
	default:
		return nil, ErrUserNotFound
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("resolve paying user failed", zap.String("session_id", cs.ID), zap.Error(err))
		return nil, err
	}
	return user, nil
}
