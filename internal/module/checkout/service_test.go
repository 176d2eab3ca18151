package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storebridge/server/internal/module/gateway"
	apperrors "github.com/storebridge/server/internal/shared/errors"
)

type fakePreferences struct {
	requests []*gateway.PreferenceRequest
	err      error
}

func (f *fakePreferences) CreatePreference(_ context.Context, req *gateway.PreferenceRequest) (*gateway.Preference, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, req)
	return &gateway.Preference{
		ID:        "pref-123",
		InitPoint: "https://checkout.example.com/pref-123",
	}, nil
}

func validRequest() *CreateCheckoutRequest {
	return &CreateCheckoutRequest{
		LineItems: []LineItemRequest{
			{VariantID: 101, Name: "Vinho Tinto Reserva", Quantity: 2, Price: 59.90},
			{VariantID: 202, Name: "Vinho Branco Seco", Quantity: 1, Price: 70.00},
		},
		Customer: &CustomerRequest{
			Name:    "Ana Souza",
			Email:   "ana@example.com",
			CPF:     "12345678901",
			Address: "Rua das Flores 10",
			City:    "Campinas",
			State:   "SP",
			Zipcode: "13010-000",
		},
		Total: 189.80,
	}
}

func newTestService(prefs gateway.PreferenceClient, intents IntentStore, cfg ServiceConfig) *Service {
	if intents == nil {
		intents = NewMemoryIntentStore(time.Hour)
	}
	if cfg.FrontBaseURL == "" {
		cfg.FrontBaseURL = "https://loja.example.com"
	}
	if cfg.BackBaseURL == "" {
		cfg.BackBaseURL = "https://api.example.com"
	}
	return NewService(prefs, intents, cfg, zap.NewNop())
}

func TestCreateCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a session with redirect url", func(t *testing.T) {
		prefs := &fakePreferences{}
		svc := newTestService(prefs, nil, ServiceConfig{})

		session, err := svc.CreateCheckout(ctx, validRequest())
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.example.com/pref-123", session.RedirectURL)
		assert.Equal(t, "pref-123", session.PreferenceID)
		assert.True(t, strings.HasPrefix(session.ExternalReference, "order_"))
	})

	t.Run("preference carries items, urls and metadata", func(t *testing.T) {
		prefs := &fakePreferences{}
		svc := newTestService(prefs, nil, ServiceConfig{})

		session, err := svc.CreateCheckout(ctx, validRequest())
		require.NoError(t, err)
		require.Len(t, prefs.requests, 1)

		pref := prefs.requests[0]
		require.Len(t, pref.Items, 2)
		assert.Equal(t, "Vinho Tinto Reserva", pref.Items[0].Title)
		assert.Equal(t, 2, pref.Items[0].Quantity)
		assert.Equal(t, 59.90, pref.Items[0].UnitPrice)
		assert.Equal(t, "BRL", pref.Items[0].CurrencyID)

		assert.Equal(t, "https://loja.example.com/checkout/success", pref.BackURLs.Success)
		assert.Equal(t, "https://api.example.com/webhooks/order-paid", pref.NotificationURL)
		assert.Equal(t, "approved", pref.AutoReturn)
		assert.Equal(t, session.ExternalReference, pref.ExternalReference)

		require.NotNil(t, pref.Metadata)
		assert.Len(t, pref.Metadata.LineItems, 2)
		assert.Equal(t, "ana@example.com", pref.Metadata.Customer.Email)
		assert.Equal(t, 189.80, pref.Metadata.Total)
	})

	t.Run("portuguese keys normalize to the same intent", func(t *testing.T) {
		prefs := &fakePreferences{}
		svc := newTestService(prefs, nil, ServiceConfig{})

		req := &CreateCheckoutRequest{
			Produtos: []LineItemRequest{
				{VariantID: 101, Nome: "Vinho Tinto", Qty: 2, UnitPrice: 59.90},
			},
			Cliente: &CustomerRequest{
				Nome:     "Ana Souza",
				Email:    "ana@example.com",
				CPF:      "12345678901",
				Endereco: "Rua das Flores 10",
				Cidade:   "Campinas",
				Estado:   "SP",
				CEP:      "13010-000",
			},
			Total: 119.80,
		}
		_, err := svc.CreateCheckout(ctx, req)
		require.NoError(t, err)

		intent := prefs.requests[0].Metadata
		require.Len(t, intent.LineItems, 1)
		assert.Equal(t, int64(101), intent.LineItems[0].VariantID)
		assert.Equal(t, 2, intent.LineItems[0].Quantity)
		assert.Equal(t, 59.90, intent.LineItems[0].Price)
		assert.Equal(t, "Ana Souza", intent.Customer.Name)
		assert.Equal(t, "12345678901", intent.Customer.Document)
		assert.Equal(t, "13010-000", intent.Customer.Zipcode)
	})

	t.Run("zero quantity defaults to one", func(t *testing.T) {
		prefs := &fakePreferences{}
		svc := newTestService(prefs, nil, ServiceConfig{})

		req := validRequest()
		req.LineItems[0].Quantity = 0
		_, err := svc.CreateCheckout(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, 1, prefs.requests[0].Items[0].Quantity)
	})

	t.Run("intent is stored under the external reference", func(t *testing.T) {
		prefs := &fakePreferences{}
		intents := NewMemoryIntentStore(time.Hour)
		svc := newTestService(prefs, intents, ServiceConfig{})

		session, err := svc.CreateCheckout(ctx, validRequest())
		require.NoError(t, err)

		stored, err := intents.Get(ctx, session.ExternalReference)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Len(t, stored.LineItems, 2)
		assert.Equal(t, 189.80, stored.Total)
	})

	t.Run("payer only attached in prod mode", func(t *testing.T) {
		prefs := &fakePreferences{}
		svc := newTestService(prefs, nil, ServiceConfig{Mode: "test"})
		_, err := svc.CreateCheckout(ctx, validRequest())
		require.NoError(t, err)
		assert.Nil(t, prefs.requests[0].Payer)

		prodPrefs := &fakePreferences{}
		prodSvc := newTestService(prodPrefs, nil, ServiceConfig{Mode: "prod"})
		_, err = prodSvc.CreateCheckout(ctx, validRequest())
		require.NoError(t, err)
		require.NotNil(t, prodPrefs.requests[0].Payer)
		assert.Equal(t, "ana@example.com", prodPrefs.requests[0].Payer.Email)
		require.NotNil(t, prodPrefs.requests[0].Payer.Identification)
		assert.Equal(t, "CPF", prodPrefs.requests[0].Payer.Identification.Type)
	})

	t.Run("validation failures", func(t *testing.T) {
		svc := newTestService(&fakePreferences{}, nil, ServiceConfig{})

		cases := []struct {
			name   string
			mutate func(*CreateCheckoutRequest)
		}{
			{"no line items", func(r *CreateCheckoutRequest) { r.LineItems = nil }},
			{"zero total", func(r *CreateCheckoutRequest) { r.Total = 0 }},
			{"missing email", func(r *CreateCheckoutRequest) { r.Customer.Email = "" }},
			{"missing name", func(r *CreateCheckoutRequest) { r.Customer.Name = "" }},
			{"non-positive price", func(r *CreateCheckoutRequest) { r.LineItems[0].Price = -1 }},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				req := validRequest()
				tc.mutate(req)
				_, err := svc.CreateCheckout(ctx, req)
				require.Error(t, err)
				assert.Equal(t, 400, apperrors.GetStatusCode(err))
			})
		}
	})

	t.Run("preference failure surfaces as upstream error", func(t *testing.T) {
		prefs := &fakePreferences{err: errors.New("processor 500")}
		svc := newTestService(prefs, nil, ServiceConfig{})

		_, err := svc.CreateCheckout(ctx, validRequest())
		require.Error(t, err)
		assert.NotEqual(t, 400, apperrors.GetStatusCode(err))
	})
}

func TestMemoryIntentStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		s := NewMemoryIntentStore(time.Hour)
		intent := &gateway.OrderIntent{Total: 10}
		require.NoError(t, s.Put(ctx, "order_1", intent))

		got, err := s.Get(ctx, "order_1")
		require.NoError(t, err)
		assert.Equal(t, intent, got)
	})

	t.Run("unknown reference returns nil", func(t *testing.T) {
		s := NewMemoryIntentStore(time.Hour)
		got, err := s.Get(ctx, "order_missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("expired entries are dropped", func(t *testing.T) {
		s := NewMemoryIntentStore(time.Minute)
		current := time.Now()
		s.now = func() time.Time { return current }

		require.NoError(t, s.Put(ctx, "order_1", &gateway.OrderIntent{Total: 10}))
		current = current.Add(2 * time.Minute)

		got, err := s.Get(ctx, "order_1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
