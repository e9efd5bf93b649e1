package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"evaluagent-relay-go/internal/relay"
	"evaluagent-relay-go/internal/types"
)

// WebhookPath is where the telephony platform posts call events.
const WebhookPath = "/api/webhook"

const maxWebhookBody = 1 << 20

// EventHandler processes one decoded webhook event.
type EventHandler interface {
	Handle(ctx context.Context, log *logrus.Entry, ev types.Event) relay.Outcome
}

// RegisterWebhookRoutes registers the inbound webhook.
//
// POST /api/webhook
// - No inbound auth; the sender is trusted
// - 200 for imported or skipped events, 400 for caller defects, 500 for downstream failures
// - processing outlives a sender disconnect but is bounded by timeout
func RegisterWebhookRoutes(r gin.IRoutes, h EventHandler, timeout time.Duration) {
	r.POST(WebhookPath, func(c *gin.Context) {
		log := RequestLog(c).WithField("handler", "webhook")

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
		raw, err := c.GetRawData()
		if err != nil {
			log.WithField("error", err.Error()).Warn("failed to read webhook body")
			c.String(http.StatusBadRequest, "invalid JSON payload")
			return
		}

		ev, err := types.DecodeEvent(raw)
		if err != nil {
			log.WithField("error", err.Error()).Warn("invalid webhook payload")
			c.String(http.StatusBadRequest, "invalid JSON payload")
			return
		}

		log.WithFields(logrus.Fields{
			"event_id": ev.ID,
			"flows":    len(ev.Flows),
		}).Info("webhook received")
		log.WithField("payload", string(raw)).Debug("webhook payload")

		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), timeout)
		defer cancel()

		out := h.Handle(ctx, log, ev)
		c.String(out.Status(), out.Message)
	})
}
