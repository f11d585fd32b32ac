package order

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/mbjj-storefront/internal/domain/cart"
	"github.com/xenking/mbjj-storefront/internal/domain/payment"
)

// CartSource looks up carts by id.
type CartSource interface {
	Get(id string) (*cart.Cart, error)
}

// Service turns carts into paid orders.
type Service struct {
	carts    CartSource
	payments payment.Processor
	orders   Repository
	clock    clockwork.Clock
	tracer   trace.Tracer

	checkouts metric.Int64Counter
	revenue   metric.Float64Counter

	inFlight sync.Map // cart id -> struct{}
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	carts CartSource,
	payments payment.Processor,
	orders Repository,
	clock clockwork.Clock,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Service, error) {
	meter := mp.Meter("storefront/order")

	checkouts, err := meter.Int64Counter("storefront.checkouts",
		metric.WithDescription("Number of completed checkouts"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create checkouts counter")
	}
	revenue, err := meter.Float64Counter("storefront.revenue",
		metric.WithDescription("Sum of paid order totals"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create revenue counter")
	}

	return &Service{
		carts:     carts,
		payments:  payments,
		orders:    orders,
		clock:     clock,
		tracer:    tp.Tracer("storefront/order"),
		checkouts: checkouts,
		revenue:   revenue,
	}, nil
}

// Checkout charges the contents of the cart, stores the order and removes the
// paid lines from the cart.
func (s *Service) Checkout(ctx context.Context, cartID string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Checkout",
		trace.WithAttributes(attribute.String("cart.id", cartID)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	c, err := s.carts.Get(cartID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	if _, busy := s.inFlight.LoadOrStore(cartID, struct{}{}); busy {
		return nil, ErrCheckoutInProgress
	}
	defer s.inFlight.Delete(cartID)

	lines := c.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	total := cart.Total(lines)

	receipt, err := s.payments.Charge(ctx, payment.Request{
		Amount:      total,
		Description: summary(lines),
	})
	if err != nil {
		return nil, errors.Wrap(err, "charge")
	}

	o := &Order{
		ID:         uuid.New().String(),
		CartID:     cartID,
		Lines:      lines,
		Total:      total,
		PaymentRef: receipt.Reference,
		Status:     StatusPaid,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	c.Deduct(lines)

	span.SetAttributes(
		attribute.String("order.id", o.ID),
		attribute.Int("order.lines", len(lines)),
	)
	s.checkouts.Add(ctx, 1)
	s.revenue.Add(ctx, total.InexactFloat64())

	return o, nil
}

// Get returns a stored order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return o, nil
}

func summary(lines []cart.Line) string {
	var (
		b     strings.Builder
		units int
	)
	for i, l := range lines {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s x%d", l.Product.Name, l.Quantity)
		units += l.Quantity
	}
	return fmt.Sprintf("%d items: %s", units, b.String())
}
