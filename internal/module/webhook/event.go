package webhook

import (
	"encoding/json"
	"net/url"
	"strings"
)

// EventKind tags a parsed notification. The set is closed; the reconciler
// matches it exhaustively.
type EventKind string

const (
	KindPayment EventKind = "payment"
	KindOther   EventKind = "other"
)

// Event is a parsed inbound payment notification.
type Event struct {
	Kind      EventKind
	PaymentID string
}

// ParseEvent extracts a payment event from the notification's query
// parameters and/or JSON body. The processor has shipped several formats
// over the years and still replays old ones:
//
//	legacy IPN:  ?type=payment&id=123  or  ?data.id=123
//	JSON A:      {"type": "payment", "data": {"id": "123"}}
//	JSON B:      {"action": "payment.updated", "data": {"id": "123"}}
//
// Anything without a payment id parses as KindOther.
func ParseEvent(query url.Values, body []byte) Event {
	if topic := firstNonEmpty(query.Get("type"), query.Get("topic")); topic != "" && topic != "payment" {
		return Event{Kind: KindOther}
	}
	if id := firstNonEmpty(query.Get("id"), query.Get("data.id")); id != "" {
		return Event{Kind: KindPayment, PaymentID: id}
	}

	if len(body) == 0 {
		return Event{Kind: KindOther}
	}

	var wire struct {
		Type   string `json:"type"`
		Action string `json:"action"`
		Data   struct {
			ID json.Number `json:"id"`
		} `json:"data"`
		ID        json.Number `json:"id"`
		PaymentID json.Number `json:"payment_id"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return Event{Kind: KindOther}
	}

	if wire.Type != "" && wire.Type != "payment" {
		return Event{Kind: KindOther}
	}
	if wire.Action != "" && !strings.HasPrefix(wire.Action, "payment.") {
		return Event{Kind: KindOther}
	}

	if id := firstNonEmpty(wire.Data.ID.String(), wire.ID.String(), wire.PaymentID.String()); id != "" {
		return Event{Kind: KindPayment, PaymentID: id}
	}
	return Event{Kind: KindOther}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
