package webhook

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/storebridge/server/internal/module/gateway"
	"github.com/storebridge/server/internal/module/storefront"
	"github.com/storebridge/server/internal/shared/metrics"
	"go.uber.org/zap"
)

// Outcome is the result of reconciling one notification. Every outcome
// except a signature failure is acknowledged with a 200 to the notifier;
// the outcome token is for logs, metrics and the response body.
type Outcome string

const (
	OutcomeIgnored        Outcome = "ignored"
	OutcomeNotApproved    Outcome = "not-approved"
	OutcomeMissingMeta    Outcome = "missing-metadata"
	OutcomeAmountMismatch Outcome = "amount-mismatch"
	OutcomeForwarded      Outcome = "forwarded"
	OutcomeFetchError     Outcome = "gateway-fetch-error"
	OutcomeForwardError   Outcome = "forward-error"
)

// OrderForwarder creates the order on the storefront platform.
// storefront.Client implements it.
type OrderForwarder interface {
	CreateOrder(ctx context.Context, payload *storefront.OrderPayload) (*storefront.Order, error)
}

// IntentLookup recovers an order intent by external reference when the
// payment metadata came back empty. checkout.IntentStore implements it.
type IntentLookup interface {
	Get(ctx context.Context, externalReference string) (*gateway.OrderIntent, error)
}

// ReconcilerConfig holds reconciliation policy settings.
type ReconcilerConfig struct {
	DefaultProvince string
	DefaultCountry  string
	Currency        string
	ValidateAmount  bool
}

// Reconciler turns payment notifications into at-most-one storefront order
// per payment id. It fetches the authoritative payment state itself; the
// notification is only a hint that something changed.
type Reconciler struct {
	payments  gateway.Client
	forwarder OrderForwarder
	attempts  AttemptStore
	intents   IntentLookup // optional
	cfg       ReconcilerConfig
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewReconciler creates a reconciler. intents and m may be nil.
func NewReconciler(
	payments gateway.Client,
	forwarder OrderForwarder,
	attempts AttemptStore,
	intents IntentLookup,
	cfg ReconcilerConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultProvince == "" {
		cfg.DefaultProvince = "SP"
	}
	if cfg.DefaultCountry == "" {
		cfg.DefaultCountry = "BR"
	}
	return &Reconciler{
		payments:  payments,
		forwarder: forwarder,
		attempts:  attempts,
		intents:   intents,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Handle reconciles one notification event.
func (r *Reconciler) Handle(ctx context.Context, event Event) Outcome {
	outcome := r.handle(ctx, event)
	if r.metrics != nil {
		r.metrics.ReconciliationOutcomes.WithLabelValues(string(outcome)).Inc()
	}
	return outcome
}

func (r *Reconciler) handle(ctx context.Context, event Event) Outcome {
	// Decided without any network call.
	if event.Kind != KindPayment || event.PaymentID == "" {
		r.logger.Debug("notification without payment id, ignoring")
		return OutcomeIgnored
	}

	log := r.logger.With(zap.String("payment_id", event.PaymentID))

	payment, err := r.payments.GetPayment(ctx, event.PaymentID)
	if err != nil {
		log.Error("payment fetch failed", zap.Error(err))
		return OutcomeFetchError
	}

	log = log.With(
		zap.String("status", string(payment.Status)),
		zap.String("external_reference", payment.ExternalReference),
	)

	if payment.Status != gateway.StatusApproved {
		// Safe to receive again later once the status changes.
		log.Info("payment not approved, no order created")
		return OutcomeNotApproved
	}

	// Idempotency: at most one order per payment id.
	if forwarded, err := r.attempts.Forwarded(ctx, payment.ID); err != nil {
		log.Warn("attempt store read failed, continuing", zap.Error(err))
	} else if forwarded {
		log.Info("payment already reconciled, replay acknowledged")
		return OutcomeForwarded
	}

	intent := payment.Metadata
	if intent == nil && r.intents != nil && payment.ExternalReference != "" {
		recovered, err := r.intents.Get(ctx, payment.ExternalReference)
		if err != nil {
			log.Warn("intent store lookup failed", zap.Error(err))
		} else if recovered != nil {
			log.Info("order intent recovered from checkout intent store")
			intent = recovered
		}
	}
	if intent == nil || len(intent.LineItems) == 0 {
		// No retry path exists: the source-of-truth metadata was never
		// recovered. Reported loudly for manual follow-up.
		log.Error("approved payment has no order intent metadata",
			zap.String("external_reference", payment.ExternalReference))
		return OutcomeMissingMeta
	}

	if r.cfg.ValidateAmount && intent.Total > 0 {
		if math.Abs(payment.TransactionAmount-intent.Total) > 0.005 {
			log.Error("transaction amount does not match intent total",
				zap.Float64("transaction_amount", payment.TransactionAmount),
				zap.Float64("intent_total", intent.Total))
			return OutcomeAmountMismatch
		}
	}

	begun, err := r.attempts.Begin(ctx, payment.ID)
	if err != nil {
		log.Error("attempt store reservation failed", zap.Error(err))
		return OutcomeForwardError
	}
	if !begun {
		// A concurrent duplicate holds or completed the reservation.
		log.Info("duplicate notification, reconciliation already in flight")
		return OutcomeForwarded
	}

	payload := r.buildOrderPayload(payment, intent)

	order, err := r.forwarder.CreateOrder(ctx, payload)
	if err != nil {
		// Leave the attempt unmarked so a later duplicate can retry.
		if relErr := r.attempts.Release(ctx, payment.ID); relErr != nil {
			log.Warn("attempt release failed", zap.Error(relErr))
		}
		log.Error("order forwarding failed", zap.Error(err))
		return OutcomeForwardError
	}

	if err := r.attempts.Commit(ctx, payment.ID); err != nil {
		log.Warn("attempt commit failed", zap.Error(err))
	}
	if r.metrics != nil {
		r.metrics.OrdersForwardedTotal.Inc()
	}
	log.Info("order created on storefront", zap.Int64("order_id", order.ID))
	return OutcomeForwarded
}

// buildOrderPayload maps an order intent into the storefront order shape.
func (r *Reconciler) buildOrderPayload(payment *gateway.Payment, intent *gateway.OrderIntent) *storefront.OrderPayload {
	products := make([]storefront.OrderProduct, 0, len(intent.LineItems))
	for _, item := range intent.LineItems {
		products = append(products, storefront.OrderProduct{
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	province := intent.Customer.State
	if province == "" {
		province = r.cfg.DefaultProvince
	}
	address := storefront.Address{
		Address:  intent.Customer.Address,
		City:     intent.Customer.City,
		Province: province,
		Country:  r.cfg.DefaultCountry,
		Zipcode:  intent.Customer.Zipcode,
	}

	customer := storefront.OrderCustomer{
		Name:  intent.Customer.Name,
		Email: intent.Customer.Email,
	}
	if intent.Customer.Document != "" {
		customer.Identification = &storefront.Identification{
			Type:   "CPF",
			Number: intent.Customer.Document,
		}
	}

	return &storefront.OrderPayload{
		Gateway:         "offline",
		PaymentStatus:   "paid",
		PaidAt:          r.now().UTC().Format(time.RFC3339),
		Products:        products,
		Customer:        customer,
		BillingAddress:  address,
		ShippingAddress: address,
		ShippingPickup:  "ship",
		Shipping:        "Correios",
		ShippingOption:  "PAC",
		Total:           intent.Total,
		OwnerNote: fmt.Sprintf("Paid via hosted checkout - Payment ID: %s, Ref: %s",
			payment.ID, orDash(payment.ExternalReference)),
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
