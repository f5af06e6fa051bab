// Package payment verifies and decodes payment-provider webhook events.
package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/config"
)

// ErrInvalidSignature reports a payload whose signature does not verify.
var ErrInvalidSignature = errors.New("payment: invalid webhook signature")

// EventCheckoutCompleted is the event type that records a payment.
const EventCheckoutCompleted = "checkout.session.completed"

// Checkout modes.
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// CheckoutSession is the subset of a completed checkout the service needs.
type CheckoutSession struct {
	ID            string
	Mode          string
	PaymentStatus string
	AmountTotal   int64
	Currency      string
	CustomerEmail string
	Metadata      map[string]string
}

// Event is a verified webhook event.
type Event struct {
	ID       string
	Type     string
	Checkout *CheckoutSession
}

// Verifier checks webhook signatures and decodes events.
type Verifier interface {
	Verify(payload []byte, signatureHeader string) (*Event, error)
}

// StripeVerifier verifies Stripe-signed webhook payloads.
type StripeVerifier struct {
	secret    string
	tolerance time.Duration
}

// NewStripeVerifier creates a StripeVerifier from config.
func NewStripeVerifier(cfg *config.PaymentConfig) *StripeVerifier {
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &StripeVerifier{secret: cfg.WebhookSecret, tolerance: tolerance}
}

// Verify checks the Stripe-Signature header and decodes the event.
func (v *StripeVerifier) Verify(payload []byte, signatureHeader string) (*Event, error) {
	if v.secret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if out.Type != EventCheckoutCompleted {
		return out, nil
	}
	if evt.Data == nil {
		return nil, fmt.Errorf("payment: event %s has no data", evt.ID)
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("payment: decode checkout session: %w", err)
	}
	out.Checkout = &CheckoutSession{
		ID:            cs.ID,
		Mode:          string(cs.Mode),
		PaymentStatus: string(cs.PaymentStatus),
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
		Metadata:      cs.Metadata,
	}
	if cs.CustomerDetails != nil {
		out.Checkout.CustomerEmail = cs.CustomerDetails.Email
	}
	if out.Checkout.CustomerEmail == "" {
		out.Checkout.CustomerEmail = cs.CustomerEmail
	}
	return out, nil
}
