package paper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/wickbot/broker"
	"github.com/rustyeddy/wickbot/market"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	e := NewEngine(broker.Account{Balance: 10000, Equity: 10000})
	require.NoError(t, e.Connect(context.Background()))
	e.SetQuote(market.Quote{Symbol: "EURUSD", Bid: 1.0849, Ask: 1.0851})
	return e
}

func TestNotConnected(t *testing.T) {
	e := NewEngine(broker.Account{Balance: 1000})

	_, err := e.Account(context.Background())
	assert.True(t, broker.IsTransport(err))
}

func TestMarketOrderOpensPosition(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.SubmitOrder(ctx, broker.OrderRequest{
		Symbol: "EURUSD", Side: market.Buy, Volume: 0.1, Kind: broker.Market,
	})
	require.NoError(t, err)
	assert.Equal(t, broker.RetDone, res.RetCode)
	assert.Equal(t, 1.0851, res.Price) // buys fill at ask

	positions, err := e.Positions(ctx, "EURUSD")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, market.Buy, positions[0].Side)
}

func TestOppositeMarketOrderNetsOut(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.SubmitOrder(ctx, broker.OrderRequest{
		Symbol: "EURUSD", Side: market.Buy, Volume: 0.1, Kind: broker.Market,
	})
	require.NoError(t, err)

	// Price moves up, then the position is closed by an equal sell.
	e.SetQuote(market.Quote{Symbol: "EURUSD", Bid: 1.0900, Ask: 1.0902})
	res, err := e.SubmitOrder(ctx, broker.OrderRequest{
		Symbol: "EURUSD", Side: market.Sell, Volume: 0.1, Kind: broker.Market,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0900, res.Price) // closing leg fills at bid

	positions, err := e.Positions(ctx, "EURUSD")
	require.NoError(t, err)
	assert.Empty(t, positions)

	acct, err := e.Account(ctx)
	require.NoError(t, err)
	assert.Greater(t, acct.Balance, 10000.0)
}

func TestPendingStopAndCancel(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.SubmitOrder(ctx, broker.OrderRequest{
		Symbol: "EURUSD", Side: market.Buy, Volume: 0.1,
		StopPrice: 1.0900, Kind: broker.PendingStop,
	})
	require.NoError(t, err)

	pending, err := e.PendingOrders(ctx, "EURUSD")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, broker.PendingStop, pending[0].Kind)

	require.NoError(t, e.CancelOrder(ctx, res.Ticket))

	pending, err = e.PendingOrders(ctx, "EURUSD")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCancelUnknownTicket(t *testing.T) {
	e := newTestEngine(t)

	err := e.CancelOrder(context.Background(), "nope")
	_, ok := broker.IsRejection(err)
	assert.True(t, ok)
}

func TestMaxTradesRejected(t *testing.T) {
	e := newTestEngine(t)
	e.SetMaxTrades(1)
	e.SetQuote(market.Quote{Symbol: "GBPUSD", Bid: 1.2500, Ask: 1.2502})
	ctx := context.Background()

	_, err := e.SubmitOrder(ctx, broker.OrderRequest{
		Symbol: "EURUSD", Side: market.Buy, Volume: 0.1, Kind: broker.Market,
	})
	require.NoError(t, err)

	_, err = e.SubmitOrder(ctx, broker.OrderRequest{
		Symbol: "GBPUSD", Side: market.Buy, Volume: 0.1, Kind: broker.Market,
	})
	assert.True(t, broker.IsMaxTrades(err))
}

func TestInjectedFailures(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.InjectReject(broker.RetNoMoney)
	_, err := e.SubmitOrder(ctx, broker.OrderRequest{
		Symbol: "EURUSD", Side: market.Buy, Volume: 0.1, Kind: broker.Market,
	})
	rej, ok := broker.IsRejection(err)
	require.True(t, ok)
	assert.Equal(t, broker.RetNoMoney, rej.RetCode)

	// Hook is one-shot.
	_, err = e.SubmitOrder(ctx, broker.OrderRequest{
		Symbol: "EURUSD", Side: market.Buy, Volume: 0.1, Kind: broker.Market,
	})
	assert.NoError(t, err)
}

func TestCandlesReturnsTail(t *testing.T) {
	e := newTestEngine(t)

	series := make([]market.Candle, 5)
	for i := range series {
		series[i] = market.Candle{Symbol: "EURUSD", Close: float64(i)}
	}
	e.SetCandles("EURUSD", series)

	got, err := e.Candles(context.Background(), "EURUSD", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 3.0, got[0].Close)
	assert.Equal(t, 4.0, got[1].Close)
}
