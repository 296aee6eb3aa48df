package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/hungrypanda/internal/domain/pricing"
)

// Order is a placed customer order. After creation only Status and
// UpdatedAt change.
type Order struct {
	ID              string
	UserID          string
	Items           []Item
	Status          Status
	TotalAmount     decimal.Decimal
	DeliveryAddress string
	PaymentMethod   PaymentMethod
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item is an order line. Price is the menu price frozen at creation time.
type Item struct {
	ID         string
	MenuItemID string
	Name       string
	Quantity   int
	Price      decimal.Decimal
}

// LineTotal returns Price * Quantity.
func (i Item) LineTotal() decimal.Decimal {
	return pricing.LineTotal(i.Price, i.Quantity)
}

// ItemCount returns the number of units across all lines.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Transition moves the order to status to, stamping UpdatedAt with now.
// Illegal edges return *InvalidTransitionError and leave o unchanged.
func (o *Order) Transition(to Status, now time.Time) error {
	if !o.Status.CanTransitionTo(to) {
		return &InvalidTransitionError{From: o.Status, To: to}
	}
	o.Status = to
	o.UpdatedAt = now
	return nil
}

// PaymentMethod is how the customer intends to pay on delivery or at
// checkout. No payment is processed.
type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentCash       PaymentMethod = "CASH"
	PaymentPayPal     PaymentMethod = "PAYPAL"
)

// ParsePaymentMethod validates v against the supported methods.
func ParsePaymentMethod(v string) (PaymentMethod, error) {
	switch pm := PaymentMethod(v); pm {
	case PaymentCreditCard, PaymentCash, PaymentPayPal:
		return pm, nil
	default:
		return "", errors.Errorf("unsupported payment method %q", v)
	}
}

// Filter narrows order listings. Zero fields match everything.
type Filter struct {
	UserID string
	Status Status
	Limit  int
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create stores the order and its items atomically.
	Create(ctx context.Context, o *Order) error
	// Get returns *apperr.NotFoundError for an unknown id.
	Get(ctx context.Context, id string) (*Order, error)
	// List returns orders newest first.
	List(ctx context.Context, f Filter) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status, updatedAt time.Time) error
}
