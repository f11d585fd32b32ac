package payment

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_ChargeAfterDelay(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	sim := NewSimulator(clock, DefaultDelay)

	type result struct {
		receipt *Receipt
		err     error
	}
	done := make(chan result, 1)
	go func() {
		r, err := sim.Charge(ctx, Request{Amount: decimal.RequireFromString("174.49"), Description: "order"})
		done <- result{r, err}
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
	select {
	case <-done:
		t.Fatal("charge finished before the delay elapsed")
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(500 * time.Millisecond)
	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Contains(t, res.receipt.Reference, "sim_")
		assert.True(t, decimal.RequireFromString("174.49").Equal(res.receipt.Amount))
		assert.Equal(t, clock.Now(), res.receipt.PaidAt)
	case <-time.After(time.Second):
		t.Fatal("charge did not finish")
	}
}

func TestSimulator_ContextCancelled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sim := NewSimulator(clock, DefaultDelay)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Charge(ctx, Request{Amount: decimal.NewFromInt(10)})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSimulator_NegativeAmount(t *testing.T) {
	sim := NewSimulator(clockwork.NewFakeClock(), 0)

	_, err := sim.Charge(context.Background(), Request{Amount: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSimulator_NoDelay(t *testing.T) {
	sim := NewSimulator(clockwork.NewFakeClock(), 0)

	r, err := sim.Charge(context.Background(), Request{Amount: decimal.Zero})
	require.NoError(t, err)
	assert.NotEqual(t, "sim_", r.Reference)
}
