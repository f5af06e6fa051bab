package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/service"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/response"
)

// SignatureHeader carries the payment provider's webhook signature.
const SignatureHeader = "Stripe-Signature"

// PaymentHandler payment provider callbacks and the caller's payments.
type PaymentHandler struct {
	paymentSvc service.PaymentService
}

// NewPaymentHandler creates a PaymentHandler.
func NewPaymentHandler(paymentSvc service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// Webhook verifies and applies a payment webhook. The raw body is needed
// for signature verification, so it is never bound as JSON first.
// POST /api/v1/webhooks/payments
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return
	}

	ack, err := h.paymentSvc.HandleWebhook(c.Request.Context(), payload, c.GetHeader(SignatureHeader))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, ack)
}

// ListMine GET /api/v1/me/payments
func (h *PaymentHandler) ListMine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	items, err := h.paymentSvc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, items)
}
