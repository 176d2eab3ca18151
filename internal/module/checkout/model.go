package checkout

import (
	"strings"

	"github.com/storebridge/server/internal/module/gateway"
)

// CreateCheckoutRequest is the storefront's checkout payload. The legacy
// storefront script posts Portuguese keys (produtos, cliente); the current
// one posts the canonical ones. Both are accepted.
type CreateCheckoutRequest struct {
	LineItems []LineItemRequest `json:"line_items"`
	Produtos  []LineItemRequest `json:"produtos"`
	Customer  *CustomerRequest  `json:"customer"`
	Cliente   *CustomerRequest  `json:"cliente"`
	Total     float64           `json:"total"`
}

// LineItemRequest is one purchased variant in the checkout request.
type LineItemRequest struct {
	VariantID int64   `json:"variant_id"`
	Name      string  `json:"name"`
	Nome      string  `json:"nome"`
	Quantity  int     `json:"quantity"`
	Qty       int     `json:"qty"`
	Price     float64 `json:"price"`
	UnitPrice float64 `json:"unit_price"`
}

// CustomerRequest is the buyer data in the checkout request.
type CustomerRequest struct {
	Name     string `json:"name"`
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	Document string `json:"document"`
	CPF      string `json:"cpf"`
	Address  string `json:"address"`
	Endereco string `json:"endereco"`
	City     string `json:"city"`
	Cidade   string `json:"cidade"`
	State    string `json:"state"`
	Estado   string `json:"estado"`
	Zipcode  string `json:"zipcode"`
	CEP      string `json:"cep"`
}

// CheckoutSession is the created hosted-checkout session returned to the
// storefront script, which redirects the browser to RedirectURL.
type CheckoutSession struct {
	RedirectURL       string `json:"redirect_url"`
	PreferenceID      string `json:"preference_id"`
	ExternalReference string `json:"external_reference"`
}

// intent normalizes the request into the canonical order intent shape.
func (r *CreateCheckoutRequest) intent() *gateway.OrderIntent {
	items := r.LineItems
	if len(items) == 0 {
		items = r.Produtos
	}

	lineItems := make([]gateway.LineItem, 0, len(items))
	for _, item := range items {
		qty := item.Quantity
		if qty == 0 {
			qty = item.Qty
		}
		if qty <= 0 {
			qty = 1
		}
		price := item.Price
		if price == 0 {
			price = item.UnitPrice
		}
		lineItems = append(lineItems, gateway.LineItem{
			VariantID: item.VariantID,
			Quantity:  qty,
			Price:     price,
			Name:      firstNonEmpty(item.Name, item.Nome),
		})
	}

	customer := r.Customer
	if customer == nil {
		customer = r.Cliente
	}
	if customer == nil {
		customer = &CustomerRequest{}
	}

	return &gateway.OrderIntent{
		LineItems: lineItems,
		Customer: gateway.Customer{
			Name:     firstNonEmpty(customer.Name, customer.Nome),
			Email:    strings.TrimSpace(customer.Email),
			Document: firstNonEmpty(customer.Document, customer.CPF),
			Address:  firstNonEmpty(customer.Address, customer.Endereco),
			City:     firstNonEmpty(customer.City, customer.Cidade),
			State:    firstNonEmpty(customer.State, customer.Estado),
			Zipcode:  firstNonEmpty(customer.Zipcode, customer.CEP),
		},
		Total: r.Total,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
