package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storebridge/server/internal/shared/metrics"
	"go.uber.org/zap"
)

// Signature header names used by the platform. The second form shows up on
// some proxy setups that rewrite headers.
const (
	signatureHeader       = "X-Linkedstore-Hmac-Sha256"
	signatureHeaderLegacy = "Http_x_linkedstore_hmac_sha256"
)

// Handler serves the webhook ingress routes.
type Handler struct {
	reconciler *Reconciler
	verifier   *SignatureVerifier
	sink       ComplianceSink
	eventLog   EventLog // optional
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewHandler creates a webhook handler. eventLog and m may be nil.
func NewHandler(
	reconciler *Reconciler,
	verifier *SignatureVerifier,
	sink ComplianceSink,
	eventLog EventLog,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		reconciler: reconciler,
		verifier:   verifier,
		sink:       sink,
		eventLog:   eventLog,
		logger:     logger,
		metrics:    m,
	}
}

// RegisterRoutes registers the webhook routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/order-paid", h.Healthcheck)
	r.POST("/order-paid", h.HandlePaymentNotification)
	r.POST("/store-redact", h.complianceHandler("store-redact", h.sink.RedactStore))
	r.POST("/customers-redact", h.complianceHandler("customers-redact", h.sink.RedactCustomers))
	r.POST("/customers-data-request", h.complianceHandler("customers-data-request", h.sink.ExportCustomerData))
}

// Healthcheck lets the processor's webhook configuration probe succeed.
func (h *Handler) Healthcheck(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// HandlePaymentNotification ingests a payment notification in any of the
// processor's wire shapes. Every internal outcome is acknowledged with a
// 200; the processor retries aggressively on anything else and a retry
// storm is worse than a logged, manually recoverable gap.
func (h *Handler) HandlePaymentNotification(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Warn("failed to read notification body", zap.Error(err))
		body = nil
	}

	event := ParseEvent(c.Request.URL.Query(), body)
	if h.metrics != nil {
		h.metrics.WebhookEventsTotal.WithLabelValues(string(event.Kind)).Inc()
	}

	outcome := h.reconciler.Handle(c.Request.Context(), event)

	h.record(c, &NotificationRecord{
		Source:    "payment",
		PaymentID: event.PaymentID,
		Kind:      string(event.Kind),
		Outcome:   string(outcome),
		Payload:   string(body),
	})

	c.JSON(http.StatusOK, gin.H{"status": string(outcome)})
}

// complianceHandler verifies the signature over the exact raw bytes
// received and dispatches to the sink. Signature failures are the only
// webhook responses that are not a 200.
func (h *Handler) complianceHandler(name string, dispatch func(ctx context.Context, req *ComplianceRequest) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawBody, err := io.ReadAll(c.Request.Body)
		if err != nil {
			h.logger.Warn("failed to read compliance body", zap.String("endpoint", name), zap.Error(err))
			c.String(http.StatusBadRequest, "invalid body")
			return
		}

		signature := c.GetHeader(signatureHeader)
		if signature == "" {
			signature = c.GetHeader(signatureHeaderLegacy)
		}

		if !h.verifier.Verify(rawBody, signature) {
			if h.metrics != nil {
				h.metrics.SignatureFailuresTotal.Inc()
			}
			h.logger.Error("invalid webhook signature", zap.String("endpoint", name))
			c.String(http.StatusUnauthorized, "invalid signature")
			return
		}

		var req ComplianceRequest
		if err := json.Unmarshal(rawBody, &req); err != nil {
			h.logger.Error("malformed compliance payload", zap.String("endpoint", name), zap.Error(err))
			// Signature passed, so acknowledge; the raw payload is logged
			// for manual handling.
			h.record(c, &NotificationRecord{Source: "compliance", Kind: name, Outcome: "malformed", Payload: string(rawBody)})
			c.String(http.StatusOK, "logged")
			return
		}

		if err := dispatch(c.Request.Context(), &req); err != nil {
			h.logger.Error("compliance dispatch failed", zap.String("endpoint", name), zap.Error(err))
		}

		h.record(c, &NotificationRecord{Source: "compliance", Kind: name, Outcome: "dispatched", Payload: string(rawBody)})
		c.String(http.StatusOK, "OK")
	}
}

func (h *Handler) record(c *gin.Context, rec *NotificationRecord) {
	if h.eventLog == nil {
		return
	}
	if err := h.eventLog.Record(c.Request.Context(), rec); err != nil {
		h.logger.Warn("event log write failed", zap.Error(err))
	}
}
