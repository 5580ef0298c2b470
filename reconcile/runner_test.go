package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/wickbot/broker"
	"github.com/rustyeddy/wickbot/market"
	"github.com/rustyeddy/wickbot/signal"
)

// signalCandles builds a series whose last bar drops under the EMA
// with a wide wick: an unsuppressed buy signal.
func signalCandles() []market.Candle {
	closes := []float64{1.2000, 1.2010, 1.2020, 1.2030, 1.1900}
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{
			Symbol:   "EURUSD",
			OpenTime: base.Add(time.Duration(i) * time.Minute),
			Open:     c,
			High:     c + 0.0020,
			Low:      c - 0.0020,
			Close:    c,
		}
	}
	return out
}

func TestRunnerEvaluatesAndReconciles(t *testing.T) {
	pe := newPaper(t)
	pe.SetCandles("EURUSD", signalCandles())

	eng := NewEngine(pe, &memJournal{}, zerolog.Nop())
	r := NewRunner(pe, signal.NewDetector(signal.DefaultConfig(), zerolog.Nop()), eng,
		zerolog.Nop(), []string{"EURUSD"}, time.Minute, 100)

	r.RunOnce(context.Background())

	pending, err := pe.PendingOrders(context.Background(), "EURUSD")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, market.Buy, pending[0].Side)
}

func TestRunnerSkipsSymbolWithoutQuote(t *testing.T) {
	pe := newPaper(t)
	pe.SetCandles("GBPUSD", signalCandles()) // no GBPUSD quote seeded

	eng := NewEngine(pe, &memJournal{}, zerolog.Nop())
	r := NewRunner(pe, signal.NewDetector(signal.DefaultConfig(), zerolog.Nop()), eng,
		zerolog.Nop(), []string{"GBPUSD"}, time.Minute, 100)

	assert.NotPanics(t, func() { r.RunOnce(context.Background()) })

	positions, err := pe.Positions(context.Background(), "GBPUSD")
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	pe := newPaper(t)
	eng := NewEngine(pe, &memJournal{}, zerolog.Nop())
	r := NewRunner(pe, signal.NewDetector(signal.DefaultConfig(), zerolog.Nop()), eng,
		zerolog.Nop(), []string{"EURUSD"}, 10*time.Millisecond, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}

var _ broker.Broker = (*countingBroker)(nil)
