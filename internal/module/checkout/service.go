package checkout

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storebridge/server/internal/module/gateway"
	apperrors "github.com/storebridge/server/internal/shared/errors"
)

// ServiceConfig holds checkout session policy settings.
type ServiceConfig struct {
	// FrontBaseURL is where the buyer's browser returns after checkout.
	FrontBaseURL string
	// BackBaseURL is this service's public base URL for notifications.
	BackBaseURL string
	Currency    string
	// Mode is "test" or "prod". The payer block is only attached in prod;
	// the sandbox rejects preferences whose payer matches the collector.
	Mode string
}

// Service creates hosted-checkout sessions: it validates the order intent,
// opens a preference with the processor and backs the intent up in the
// intent store under the external reference.
type Service struct {
	prefs   gateway.PreferenceClient
	intents IntentStore
	cfg     ServiceConfig
	logger  *zap.Logger
}

// NewService creates a checkout service.
func NewService(prefs gateway.PreferenceClient, intents IntentStore, cfg ServiceConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Currency == "" {
		cfg.Currency = "BRL"
	}
	return &Service{prefs: prefs, intents: intents, cfg: cfg, logger: logger}
}

// CreateCheckout opens a hosted-checkout session for the request.
func (s *Service) CreateCheckout(ctx context.Context, req *CreateCheckoutRequest) (*CheckoutSession, error) {
	intent := req.intent()
	if err := validateIntent(intent); err != nil {
		return nil, err
	}

	externalReference := "order_" + uuid.NewString()
	log := s.logger.With(zap.String("external_reference", externalReference))

	// Stored before the preference is created so the reference is
	// resolvable the moment the processor can emit a notification.
	if err := s.intents.Put(ctx, externalReference, intent); err != nil {
		log.Warn("intent store write failed, metadata is the only copy", zap.Error(err))
	}

	pref, err := s.prefs.CreatePreference(ctx, s.buildPreference(intent, externalReference))
	if err != nil {
		log.Error("preference creation failed", zap.Error(err))
		return nil, apperrors.Upstream("failed to create checkout session", err)
	}

	log.Info("checkout session created",
		zap.String("preference_id", pref.ID),
		zap.Int("line_items", len(intent.LineItems)),
		zap.Float64("total", intent.Total))

	return &CheckoutSession{
		RedirectURL:       pref.RedirectURL(),
		PreferenceID:      pref.ID,
		ExternalReference: externalReference,
	}, nil
}

func (s *Service) buildPreference(intent *gateway.OrderIntent, externalReference string) *gateway.PreferenceRequest {
	items := make([]gateway.PreferenceItem, 0, len(intent.LineItems))
	for _, item := range intent.LineItems {
		title := item.Name
		if title == "" {
			title = "Pedido " + externalReference
		}
		items = append(items, gateway.PreferenceItem{
			Title:      title,
			Quantity:   item.Quantity,
			UnitPrice:  item.Price,
			CurrencyID: s.cfg.Currency,
		})
	}

	front := strings.TrimRight(s.cfg.FrontBaseURL, "/")
	back := strings.TrimRight(s.cfg.BackBaseURL, "/")

	pref := &gateway.PreferenceRequest{
		Items: items,
		BackURLs: gateway.BackURLs{
			Success: front + "/checkout/success",
			Pending: front + "/checkout/pending",
			Failure: front + "/checkout/failure",
		},
		AutoReturn:        "approved",
		NotificationURL:   back + "/webhooks/order-paid",
		ExternalReference: externalReference,
		Metadata:          intent,
	}

	if s.cfg.Mode == "prod" {
		payer := &gateway.Payer{
			Name:  intent.Customer.Name,
			Email: intent.Customer.Email,
		}
		if intent.Customer.Document != "" {
			payer.Identification = &gateway.Identification{
				Type:   "CPF",
				Number: intent.Customer.Document,
			}
		}
		pref.Payer = payer
	}
	return pref
}

func validateIntent(intent *gateway.OrderIntent) error {
	if len(intent.LineItems) == 0 {
		return apperrors.BadRequest("order has no line items")
	}
	for _, item := range intent.LineItems {
		if item.Price <= 0 {
			return apperrors.BadRequest("line item price must be positive")
		}
	}
	if intent.Total <= 0 {
		return apperrors.BadRequest("order total must be positive")
	}
	if intent.Customer.Email == "" {
		return apperrors.BadRequest("customer email is required")
	}
	if intent.Customer.Name == "" {
		return apperrors.BadRequest("customer name is required")
	}
	return nil
}
