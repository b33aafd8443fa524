package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orderrelay/orderrelay/internal/logger"
	"github.com/orderrelay/orderrelay/internal/service"
	"github.com/orderrelay/orderrelay/internal/webhook"
)

const (
	// SignatureHeader carries base64(HMAC-SHA256(raw body, shared secret))
	SignatureHeader = "X-WC-Webhook-Signature"
	// EventHeader names the WooCommerce event type; informational only
	EventHeader = "X-WC-Webhook-Event"
)

// WebhookHandler handles inbound WooCommerce webhook deliveries
type WebhookHandler struct {
	verifier webhook.Verifier
	sync     service.SyncService
	logger   *logger.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(
	verifier webhook.Verifier,
	sync service.SyncService,
	logger *logger.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		sync:     sync,
		logger:   logger,
	}
}

// HandleOrderWebhook processes a WooCommerce order-created delivery.
// The raw body is read before anything else: signature verification must
// run over the exact transmitted bytes, and the missing-signature check
// happens before any JSON parsing.
func (h *WebhookHandler) HandleOrderWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Errorw("failed to read webhook body", "error", err)
		NewErrorResponse(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	signature := c.GetHeader(SignatureHeader)
	if signature == "" {
		h.logger.Warnw("webhook delivery without signature header")
		NewErrorResponse(c, http.StatusBadRequest, "missing signature header")
		return
	}

	if !h.verifier.Verify(body, signature) {
		NewErrorResponse(c, http.StatusUnauthorized, "invalid signature")
		return
	}

	if event := c.GetHeader(EventHeader); event != "" {
		h.logger.Debugw("received webhook event", "event", event)
	}

	result, err := h.sync.ProcessOrder(c.Request.Context(), body)
	if err != nil {
		// Detail stays in the logs; the caller only sees a generic failure
		h.logger.Errorw("order sync failed", "error", err)
		NewErrorResponse(c, http.StatusInternalServerError, "failed to process webhook")
		return
	}

	if result.Duplicate {
		h.logger.Infow("duplicate delivery acknowledged", "order_id", result.OrderID)
	}

	c.String(http.StatusOK, "OK")
}
