package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/mbjj-storefront/internal/domain/cart"
	"github.com/xenking/mbjj-storefront/internal/domain/payment"
	"github.com/xenking/mbjj-storefront/internal/domain/product"
)

// --- Mock implementations ---

type mockProcessor struct {
	mu       sync.Mutex
	requests []payment.Request
	err      error
	// release, when set, blocks Charge until closed.
	release chan struct{}
}

func (m *mockProcessor) Charge(_ context.Context, req payment.Request) (*payment.Receipt, error) {
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.requests = append(m.requests, req)
	return &payment.Receipt{Reference: "ref-1", Amount: req.Amount}, nil
}

type mockOrderRepo struct {
	lastOrder *Order
	err       error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.err != nil {
		return m.err
	}
	m.lastOrder = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	if m.lastOrder == nil || m.lastOrder.ID != id {
		return nil, ErrNotFound
	}
	return m.lastOrder, nil
}

// --- Helpers ---

func newTestProduct(id, name string, price decimal.Decimal) product.Product {
	return product.Product{
		ID:       id,
		Name:     name,
		Price:    price,
		Category: "gi",
		InStock:  true,
		Images:   []string{id + ".jpg"},
	}
}

func newTestService(t *testing.T, p payment.Processor, orders Repository) (*Service, *cart.Registry, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	carts := cart.NewRegistry(clock)
	svc, err := NewService(carts, p, orders, clock, tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	require.NoError(t, err)
	return svc, carts, clock
}

// --- Tests ---

func TestCheckout_EmptyCart(t *testing.T) {
	svc, carts, _ := newTestService(t, &mockProcessor{}, &mockOrderRepo{})
	c := carts.Create()

	_, err := svc.Checkout(context.Background(), c.ID())
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_UnknownCart(t *testing.T) {
	svc, _, _ := newTestService(t, &mockProcessor{}, &mockOrderRepo{})

	_, err := svc.Checkout(context.Background(), "missing")
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	proc := &mockProcessor{}
	orders := &mockOrderRepo{}
	svc, carts, clock := newTestService(t, proc, orders)

	c := carts.Create()
	require.NoError(t, c.Add(ctx, newTestProduct("gi", "Pearl Weave Gi", decimal.RequireFromString("149.99")), 1))
	require.NoError(t, c.Add(ctx, newTestProduct("belt", "Black Belt", decimal.RequireFromString("24.50")), 2))

	o, err := svc.Checkout(ctx, c.ID())
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, c.ID(), o.CartID)
	assert.Equal(t, StatusPaid, o.Status)
	assert.Equal(t, "ref-1", o.PaymentRef)
	assert.Equal(t, clock.Now(), o.CreatedAt)
	assert.True(t, decimal.RequireFromString("198.99").Equal(o.Total), "got %s", o.Total)
	require.Len(t, o.Lines, 2)

	require.Len(t, proc.requests, 1)
	assert.Equal(t, "3 items: Pearl Weave Gi x1, Black Belt x2", proc.requests[0].Description)
	assert.True(t, o.Total.Equal(proc.requests[0].Amount))

	assert.Same(t, o, orders.lastOrder)
	assert.Empty(t, c.Lines())

	got, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Same(t, o, got)
}

func TestCheckout_PaymentError(t *testing.T) {
	ctx := context.Background()
	payErr := errors.New("declined")
	svc, carts, _ := newTestService(t, &mockProcessor{err: payErr}, &mockOrderRepo{})
	c := carts.Create()
	require.NoError(t, c.Add(ctx, newTestProduct("gi", "Gi", decimal.NewFromInt(100)), 1))

	_, err := svc.Checkout(ctx, c.ID())
	require.ErrorIs(t, err, payErr)
	assert.Len(t, c.Lines(), 1, "cart must be kept when payment fails")
}

func TestCheckout_OrderCreateError(t *testing.T) {
	ctx := context.Background()
	svc, carts, _ := newTestService(t, &mockProcessor{}, &mockOrderRepo{err: errors.New("write failed")})
	c := carts.Create()
	require.NoError(t, c.Add(ctx, newTestProduct("gi", "Gi", decimal.NewFromInt(100)), 1))

	_, err := svc.Checkout(ctx, c.ID())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
	assert.Len(t, c.Lines(), 1)
}

func TestCheckout_InProgress(t *testing.T) {
	ctx := context.Background()
	proc := &mockProcessor{release: make(chan struct{})}
	svc, carts, _ := newTestService(t, proc, &mockOrderRepo{})
	c := carts.Create()
	require.NoError(t, c.Add(ctx, newTestProduct("gi", "Gi", decimal.NewFromInt(100)), 1))

	done := make(chan error, 1)
	go func() {
		_, err := svc.Checkout(ctx, c.ID())
		done <- err
	}()

	assert.Eventually(t, func() bool {
		_, busy := svc.inFlight.Load(c.ID())
		return busy
	}, time.Second, 5*time.Millisecond)

	_, err := svc.Checkout(ctx, c.ID())
	require.ErrorIs(t, err, ErrCheckoutInProgress)

	close(proc.release)
	require.NoError(t, <-done)
}
