package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientGetPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("approved payment with metadata", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/payments/123", r.URL.Path)
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"id": 123,
				"status": "approved",
				"status_detail": "accredited",
				"external_reference": "order_1",
				"transaction_amount": 20,
				"currency_id": "BRL",
				"metadata": {
					"produtos": [{"variant_id": 7, "quantity": 2, "price": 10}],
					"cliente": {"name": "Ana", "email": "ana@example.com", "state": "RJ"},
					"total": 20
				}
			}`))
		}))
		defer srv.Close()

		client := NewHTTPClient(ClientConfig{BaseURL: srv.URL, AccessToken: "test-token"}, srv.Client(), nil)

		p, err := client.GetPayment(ctx, "123")
		require.NoError(t, err)
		assert.Equal(t, "123", p.ID)
		assert.Equal(t, StatusApproved, p.Status)
		assert.Equal(t, "order_1", p.ExternalReference)
		assert.Equal(t, 20.0, p.TransactionAmount)
		assert.Equal(t, "BRL", p.CurrencyID)
		require.NotNil(t, p.Metadata)
		require.Len(t, p.Metadata.LineItems, 1)
		assert.Equal(t, int64(7), p.Metadata.LineItems[0].VariantID)
		assert.Equal(t, 2, p.Metadata.LineItems[0].Quantity)
		assert.Equal(t, 10.0, p.Metadata.LineItems[0].Price)
		assert.Equal(t, "Ana", p.Metadata.Customer.Name)
		assert.Equal(t, 20.0, p.Metadata.Total)
	})

	t.Run("absent metadata yields nil intent", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id": "pay_9", "status": "approved", "external_reference": "order_9", "transaction_amount": 5, "currency_id": "BRL", "metadata": {}}`))
		}))
		defer srv.Close()

		client := NewHTTPClient(ClientConfig{BaseURL: srv.URL}, srv.Client(), nil)

		p, err := client.GetPayment(ctx, "pay_9")
		require.NoError(t, err)
		assert.Nil(t, p.Metadata)
	})

	t.Run("server error yields ErrFetch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewHTTPClient(ClientConfig{BaseURL: srv.URL}, srv.Client(), nil)

		_, err := client.GetPayment(ctx, "pay_1")
		assert.ErrorIs(t, err, ErrFetch)
	})

	t.Run("404 yields ErrNotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		client := NewHTTPClient(ClientConfig{BaseURL: srv.URL}, srv.Client(), nil)

		_, err := client.GetPayment(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("timeout yields ErrFetch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		client := NewHTTPClient(ClientConfig{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, srv.Client(), nil)

		_, err := client.GetPayment(ctx, "slow")
		assert.ErrorIs(t, err, ErrFetch)
	})

	t.Run("breaker opens after consecutive failures", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := NewHTTPClient(ClientConfig{BaseURL: srv.URL}, srv.Client(), nil)

		for i := 0; i < 5; i++ {
			_, err := client.GetPayment(ctx, "x")
			assert.ErrorIs(t, err, ErrFetch)
		}
		// Breaker is now open; the error is still classified as a fetch error.
		_, err := client.GetPayment(ctx, "x")
		assert.ErrorIs(t, err, ErrFetch)
	})
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"approved":    StatusApproved,
		"pending":     StatusPending,
		"in_process":  StatusPending,
		"authorized":  StatusPending,
		"rejected":    StatusRejected,
		"cancelled":   StatusRejected,
		"refunded":    StatusRejected,
		"charged_back": StatusRejected,
		"whatever":    StatusOther,
		"":            StatusOther,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseStatus(in), "status %q", in)
	}
}

func TestParseIntent(t *testing.T) {
	t.Run("canonical keys", func(t *testing.T) {
		raw := json.RawMessage(`{
			"line_items": [{"variant_id": 3, "quantity": 1, "unit_price": 42.5, "name": "Reserva"}],
			"customer": {"name": "Bia", "email": "b@example.com"},
			"total": 42.5
		}`)
		intent := parseIntent(raw)
		require.NotNil(t, intent)
		require.Len(t, intent.LineItems, 1)
		assert.Equal(t, 42.5, intent.LineItems[0].Price)
		assert.Equal(t, "Reserva", intent.LineItems[0].Name)
		assert.Equal(t, "Bia", intent.Customer.Name)
	})

	t.Run("zero quantity defaults to one", func(t *testing.T) {
		raw := json.RawMessage(`{"produtos": [{"variant_id": 1, "price": 5}], "total": 5}`)
		intent := parseIntent(raw)
		require.NotNil(t, intent)
		assert.Equal(t, 1, intent.LineItems[0].Quantity)
	})

	t.Run("null and empty metadata", func(t *testing.T) {
		assert.Nil(t, parseIntent(nil))
		assert.Nil(t, parseIntent(json.RawMessage(`null`)))
		assert.Nil(t, parseIntent(json.RawMessage(`{}`)))
	})

	t.Run("malformed metadata", func(t *testing.T) {
		assert.Nil(t, parseIntent(json.RawMessage(`"just a string"`)))
	})
}
