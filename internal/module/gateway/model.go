package gateway

import "encoding/json"

// Status is the payment status reported by the processor.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusOther    Status = "other"
)

// ParseStatus maps the processor's status string to the closed Status set.
func ParseStatus(s string) Status {
	switch s {
	case "pending", "in_process", "authorized":
		return StatusPending
	case "approved":
		return StatusApproved
	case "rejected", "cancelled", "refunded", "charged_back":
		return StatusRejected
	default:
		return StatusOther
	}
}

// Payment is the authoritative payment record fetched from the processor.
type Payment struct {
	ID                string
	Status            Status
	StatusDetail      string
	ExternalReference string
	Metadata          *OrderIntent
	TransactionAmount float64
	CurrencyID        string
}

// LineItem is a purchased variant inside an order intent.
type LineItem struct {
	VariantID int64   `json:"variant_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Name      string  `json:"name,omitempty"`
}

// Customer is the buyer data captured at checkout time.
type Customer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Document string `json:"document,omitempty"`
	Address  string `json:"address,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Zipcode  string `json:"zipcode,omitempty"`
}

// OrderIntent is the order data embedded in the payment metadata at
// preference-creation time and consumed during reconciliation.
type OrderIntent struct {
	LineItems []LineItem `json:"line_items"`
	Customer  Customer   `json:"customer"`
	Total     float64    `json:"total"`
}

// paymentWire is the processor's payment response shape.
type paymentWire struct {
	ID                json.Number     `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	Metadata          json.RawMessage `json:"metadata"`
	TransactionAmount float64         `json:"transaction_amount"`
	CurrencyID        string          `json:"currency_id"`
}

// intentWire tolerates both the canonical metadata keys and the legacy
// Portuguese ones the checkout flow historically wrote.
type intentWire struct {
	LineItems []lineItemWire `json:"line_items"`
	Produtos  []lineItemWire `json:"produtos"`
	Customer  *Customer      `json:"customer"`
	Cliente   *Customer      `json:"cliente"`
	Total     *float64       `json:"total"`
}

type lineItemWire struct {
	VariantID int64    `json:"variant_id"`
	Quantity  int      `json:"quantity"`
	Price     *float64 `json:"price"`
	UnitPrice *float64 `json:"unit_price"`
	Name      string   `json:"name"`
}

// parseIntent decodes payment metadata into an OrderIntent. It returns nil
// when the metadata carries no usable intent (absent, empty object, or no
// line items and no customer), which the reconciler reports as metadata loss.
func parseIntent(raw json.RawMessage) *OrderIntent {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var w intentWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil
	}

	items := w.LineItems
	if len(items) == 0 {
		items = w.Produtos
	}
	customer := w.Customer
	if customer == nil {
		customer = w.Cliente
	}

	if len(items) == 0 && customer == nil && w.Total == nil {
		return nil
	}

	intent := &OrderIntent{}
	for _, it := range items {
		li := LineItem{
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			Name:      it.Name,
		}
		if li.Quantity == 0 {
			li.Quantity = 1
		}
		switch {
		case it.Price != nil:
			li.Price = *it.Price
		case it.UnitPrice != nil:
			li.Price = *it.UnitPrice
		}
		intent.LineItems = append(intent.LineItems, li)
	}
	if customer != nil {
		intent.Customer = *customer
	}
	if w.Total != nil {
		intent.Total = *w.Total
	}
	return intent
}

func (w *paymentWire) toPayment() *Payment {
	return &Payment{
		ID:                w.ID.String(),
		Status:            ParseStatus(w.Status),
		StatusDetail:      w.StatusDetail,
		ExternalReference: w.ExternalReference,
		Metadata:          parseIntent(w.Metadata),
		TransactionAmount: w.TransactionAmount,
		CurrencyID:        w.CurrencyID,
	}
}
