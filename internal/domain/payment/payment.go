// Package payment contains the simulated payment processor used at checkout.
// It never talks to a real provider and never sees card data.
package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

// DefaultDelay is the simulated processing time.
const DefaultDelay = 1500 * time.Millisecond

// ErrInvalidAmount is returned for negative charge amounts.
var ErrInvalidAmount = errors.New("amount must not be negative")

// Request describes a charge.
type Request struct {
	Amount      decimal.Decimal
	Description string
}

// Receipt is the result of a successful charge.
type Receipt struct {
	Reference string
	Amount    decimal.Decimal
	PaidAt    time.Time
}

// Processor charges a payment.
type Processor interface {
	Charge(ctx context.Context, req Request) (*Receipt, error)
}

var _ Processor = (*Simulator)(nil)

// Simulator approves every charge after a fixed delay.
type Simulator struct {
	clock  clockwork.Clock
	delay  time.Duration
	newRef func() string
}

// NewSimulator returns a Simulator that waits delay on clock before approving.
func NewSimulator(clock clockwork.Clock, delay time.Duration) *Simulator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Simulator{
		clock:  clock,
		delay:  delay,
		newRef: func() string { return "sim_" + uuid.New().String() },
	}
}

// Charge waits for the configured delay and returns a receipt. It fails only
// for negative amounts or when ctx is done first.
func (s *Simulator) Charge(ctx context.Context, req Request) (*Receipt, error) {
	if req.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	if s.delay > 0 {
		timer := s.clock.NewTimer(s.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "charge")
		case <-timer.Chan():
		}
	}

	return &Receipt{
		Reference: s.newRef(),
		Amount:    req.Amount,
		PaidAt:    s.clock.Now(),
	}, nil
}
