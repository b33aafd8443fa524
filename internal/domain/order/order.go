package order

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	ierr "github.com/orderrelay/orderrelay/internal/errors"
)

// FallbackLastName is used when an order carries no usable billing name at all.
// Zoho rejects contacts without a Last_Name so the chain must terminate in a
// non-empty literal.
const FallbackLastName = "Unknown"

// Billing holds the customer fields of a WooCommerce order. Every field is
// optional: an absent billing object decodes to the zero value.
type Billing struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LineItem is a single purchased item
type LineItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    json.RawMessage `json:"price"`
}

// Order is the decoded WooCommerce order payload. Raw fields stay raw so the
// amount resolution policy can deal with string and numeric encodings alike.
type Order struct {
	ID          json.RawMessage `json:"id"`
	Billing     Billing         `json:"billing"`
	Total       json.RawMessage `json:"total"`
	TotalPrice  json.RawMessage `json:"total_price"`
	TotalAmount json.RawMessage `json:"total_amount"`
	LineItems   []LineItem      `json:"line_items"`
}

// Parse decodes a raw webhook body into an Order. A malformed document is a
// terminal failure for the whole sync.
func Parse(body []byte) (*Order, error) {
	var o Order
	if err := json.Unmarshal(body, &o); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Webhook body is not a valid order document").
			Mark(ierr.ErrValidation)
	}
	return &o, nil
}

// OrderID returns the order id as a string regardless of whether the
// platform sent it as a JSON number or string. Empty when absent.
func (o *Order) OrderID() string {
	return rawToString(o.ID)
}

// Amount resolves the order total. The resolution policy is an explicit
// ordered list of field names: total, then total_price, then total_amount.
// The first present value that coerces to a number wins; everything else,
// including an order with no total at all, resolves to zero.
func (o *Order) Amount() decimal.Decimal {
	for _, raw := range []json.RawMessage{o.Total, o.TotalPrice, o.TotalAmount} {
		if amount, ok := coerceAmount(raw); ok {
			return amount
		}
	}
	return decimal.Zero
}

// ContactLastName applies the Last_Name fallback chain:
// billing last name, then first name, then the literal fallback.
func (o *Order) ContactLastName() string {
	if last := strings.TrimSpace(o.Billing.LastName); last != "" {
		return last
	}
	if first := strings.TrimSpace(o.Billing.FirstName); first != "" {
		return first
	}
	return FallbackLastName
}

// ContactFullName returns "First Last" with whatever parts exist
func (o *Order) ContactFullName() string {
	parts := make([]string, 0, 2)
	if first := strings.TrimSpace(o.Billing.FirstName); first != "" {
		parts = append(parts, first)
	}
	if last := strings.TrimSpace(o.Billing.LastName); last != "" {
		parts = append(parts, last)
	}
	return strings.Join(parts, " ")
}

// Email returns the trimmed billing email, empty when absent
func (o *Order) Email() string {
	return strings.TrimSpace(o.Billing.Email)
}

func coerceAmount(raw json.RawMessage) (decimal.Decimal, bool) {
	s := rawToString(raw)
	if s == "" || s == "null" {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

func rawToString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return string(trimmed)
}
