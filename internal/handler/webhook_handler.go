package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nikolayk812/payhook/internal/domain"
	"github.com/nikolayk812/payhook/internal/service"
	"go.uber.org/zap"
)

// Stripe caps event payloads well below this.
const maxWebhookBody = 64 * 1024

const signatureHeader = "Stripe-Signature"

type reconcileService interface {
	Reconcile(ctx context.Context, payload []byte, signatureHeader string) (service.ReconcileResult, error)
}

type WebhookHandler struct {
	reconciler reconcileService
	logger     *zap.Logger
}

func NewWebhook(reconciler reconcileService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WebhookHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// HandleStripe acknowledges with 2xx for every outcome downstream of a valid
// signature: the provider retries on non-2xx only, and neither "order not
// found" nor "already processed" should trigger a redelivery. 4xx is
// reserved for signature failures, 5xx for infrastructure errors where a
// retry is genuinely wanted.
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	result, err := h.reconciler.Reconcile(c.Request.Context(), payload, c.GetHeader(signatureHeader))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			h.logger.Warn("webhook signature rejected",
				zap.String("request_id", c.GetString("request_id")))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}

		h.logger.Error("webhook reconciliation failed",
			zap.String("event_id", result.EventID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received": true,
		"outcome":  string(result.Outcome),
	})
}
