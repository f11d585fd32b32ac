package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/mbjj-storefront/internal/domain/cart"
)

// Sentinel errors for checkout.
var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrNotFound           = errors.New("order not found")
)

// Status is the lifecycle state of an order.
type Status string

// StatusPaid marks an order whose payment went through.
const StatusPaid Status = "paid"

// Order is a paid snapshot of a cart.
type Order struct {
	ID         string
	CartID     string
	Lines      []cart.Line
	Total      decimal.Decimal
	PaymentRef string
	Status     Status
	CreatedAt  time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
}
