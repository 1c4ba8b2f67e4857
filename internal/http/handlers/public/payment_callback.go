package public

import (
	"strings"

	"github.com/pinmart/pinmart/internal/http/response"
	"github.com/pinmart/pinmart/internal/logger"

	"github.com/gin-gonic/gin"
)

// PaymentCallbackRedirect handles the browser redirect after gateway
// checkout. The reference arrives as a query parameter; the payload is not
// trusted and the outcome comes from re-verifying with the gateway.
func (h *Handler) PaymentCallbackRedirect(c *gin.Context) {
	reference := strings.TrimSpace(c.Query("reference"))
	if reference == "" {
		reference = strings.TrimSpace(c.Query("trxref"))
	}
	if reference == "" {
		response.BadRequest(c, "reference is required")
		return
	}
	h.reconcile(c, reference)
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// PaymentWebhook handles the gateway's server-to-server notification. Only
// the reference is read from the body; status and amount come from verify.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	var event webhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		logger.Warnw("payment_webhook_bad_payload", "error", err)
		response.BadRequest(c, "invalid webhook payload")
		return
	}
	reference := strings.TrimSpace(event.Data.Reference)
	if reference == "" {
		response.BadRequest(c, "reference is required")
		return
	}
	logger.Infow("payment_webhook_received", "event", event.Event, "reference", reference)
	h.reconcile(c, reference)
}

func (h *Handler) reconcile(c *gin.Context, reference string) {
	result, err := h.PaymentService.HandleCallback(c.Request.Context(), reference)
	if err != nil {
		respondCallbackError(c, err)
		return
	}
	response.Success(c, result)
}
