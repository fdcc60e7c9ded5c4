package webhook

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"phonebridge/internal/metrics"
	"phonebridge/internal/vitalpbx"
	"phonebridge/pkg/logger"
)

// Handler is the HTTP face of the PBX webhook. The PBX treats any
// non-200 as a delivery failure and re-queues, so the contract is an
// unconditional 200 ACK; failures are logged with the payload instead.
type Handler struct {
	router *Router
}

func NewHandler(router *Router) *Handler {
	return &Handler{router: router}
}

// Receive handles POST /webhooks/vitalpbx.
func (h *Handler) Receive(c *gin.Context) {
	webhookID := uuid.NewString()
	log := logger.FromGin(c).With("webhook_id", webhookID)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Error("reading webhook body failed", "err", err)
		metrics.WebhookEvents.WithLabelValues("unknown", "error").Inc()
		c.JSON(http.StatusOK, ackBody(webhookID))
		return
	}

	ev, perr := vitalpbx.ParseEvent(body)
	if perr != nil {
		// A payload we cannot parse is a dropped delivery, not a system
		// fault: warn and ACK so the PBX does not re-queue it.
		log.Warn("malformed webhook payload dropped", "err", perr, "payload", string(body))
		metrics.WebhookEvents.WithLabelValues("unknown", "malformed").Inc()
		c.JSON(http.StatusOK, ackBody(webhookID))
		return
	}
	event := ev.EventName()

	ctx := logger.With(c.Request.Context(), log)
	if err := h.router.Process(ctx, body); err != nil {
		// Payload included so the delivery can be replayed by hand.
		log.Error("webhook processing failed", "event", event, "err", err, "payload", string(body))
		metrics.WebhookEvents.WithLabelValues(event, "error").Inc()
	} else {
		metrics.WebhookEvents.WithLabelValues(event, "ok").Inc()
	}

	c.JSON(http.StatusOK, ackBody(webhookID))
}

func ackBody(webhookID string) gin.H {
	return gin.H{"status": "received", "webhook_id": webhookID}
}
