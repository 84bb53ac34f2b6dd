// Package domain holds the order and payment state types the adapter
// reconciles between the storefront and the FooPay provider.
package domain

import "time"

// OrderStatus is the storefront's coarse order state.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusOnHold     OrderStatus = "on-hold"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
	StatusFailed     OrderStatus = "failed"
)

// IsAbsorbing reports whether reconciliation must leave the order alone.
// Once an order reaches one of these statuses the engine performs no
// provider call and no mutation. processing is absorbing: after markPaid
// the payment outcome is settled and further provider polling is noise.
func (s OrderStatus) IsAbsorbing() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusCancelled, StatusRefunded, StatusFailed:
		return true
	default:
		return false
	}
}

// Customer is the billing identity snapshot sent with a hosted session.
type Customer struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// Address is the billing address snapshot sent with a hosted session.
type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// LineItem is one order line. Virtual products map to the provider's
// digital category, everything else is physical.
type LineItem struct {
	Name           string
	Quantity       int
	UnitPriceCents int64
	Virtual        bool
}

// Order is a read-only snapshot of a storefront order. The engine only
// reads the fields needed to build a hosted-session request; status and
// metadata writes go through the OrderStore port.
type Order struct {
	ID          string
	Status      OrderStatus
	AmountCents int64
	Currency    string
	Customer    Customer
	Address     Address
	Items       []LineItem
	CreatedAt   time.Time
}

// Metadata keys under which the payment session reference is stored on
// an order.
const (
	MetaPaymentID   = "foopay_payment_id"
	MetaRedirectURL = "foopay_redirect_url"
)

// SessionRef is the provider session attached to an order after a
// successful hosted-session creation. At most one live session exists
// per order; a session whose order reconciled to failed is dead and may
// be replaced.
type SessionRef struct {
	PaymentID   string
	RedirectURL string
}
