package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/studyhub/adserver/internal/billing"
	"github.com/studyhub/adserver/internal/http/dto"
	"go.uber.org/zap"
)

type EventHandler interface {
	HandleEvent(ctx context.Context, evt *billing.WebhookEvent) error
}

type WebhookHandler struct {
	reconciler EventHandler
	secret     []byte
	log        *zap.Logger
}

func NewWebhookHandler(reconciler EventHandler, secret string, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, secret: []byte(secret), log: log}
}

// HandlePaymentWebhook authenticates and applies a payment-provider event.
// The signature is checked over the raw body before any JSON parsing.
// POST /webhooks/payment
func (h *WebhookHandler) HandlePaymentWebhook(c *fiber.Ctx) error {
	if len(h.secret) == 0 {
		h.log.Error("payment webhook secret is not configured")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "webhook not configured"})
	}

	rawBody := c.Body()
	signature := c.Get("X-Webhook-Signature")
	if !billing.VerifySignature(rawBody, signature, h.secret) {
		h.log.Warn("webhook signature verification failed", zap.String("ip", c.IP()))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid signature"})
	}

	evt, err := billing.ParseEvent(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "malformed payload"})
	}

	if err := h.reconciler.HandleEvent(c.Context(), evt); err != nil {
		if errors.Is(err, billing.ErrInvalidEvent) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		// Infrastructure failure: surface a 500 and let the provider's
		// redelivery retry. Idempotent handling makes the retry safe.
		h.log.Error("webhook processing failed", zap.String("type", evt.Type), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.WebhookAck{Received: true})
}
