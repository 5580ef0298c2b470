// Package broker defines the narrow contract the bot core depends on.
// Adapters for concrete brokers live in subpackages and translate their
// own wire encodings to these types at the boundary.
package broker

import (
	"context"
	"time"

	"github.com/rustyeddy/wickbot/market"
)

// Broker is everything the reconciliation engine needs from a broker.
// Connections are an explicit lifecycle: construct, Connect, use,
// Disconnect. Implementations must be safe for concurrent use.
type Broker interface {
	Connect(ctx context.Context) error
	Disconnect() error

	Account(ctx context.Context) (Account, error)
	Quote(ctx context.Context, symbol string) (market.Quote, error)
	Candles(ctx context.Context, symbol string, count int) ([]market.Candle, error)

	Positions(ctx context.Context, symbol string) ([]Position, error)
	PendingOrders(ctx context.Context, symbol string) ([]Order, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	CancelOrder(ctx context.Context, ticket string) error
}

// Account is a live snapshot of broker-held funds.
type Account struct {
	Balance float64
	Equity  float64
	Margin  float64
}

// Position is an open filled trade held at the broker.
type Position struct {
	Ticket       string
	Symbol       string
	Side         market.Side
	Volume       float64
	EntryPrice   float64
	CurrentPrice float64
	OpenTime     time.Time
}

// OrderKind distinguishes immediate fills from resting stop entries.
type OrderKind string

const (
	Market      OrderKind = "market"
	PendingStop OrderKind = "pending-stop"
)

// Order is a broker-side pending order that has not filled yet.
type Order struct {
	Ticket string
	Symbol string
	Side   market.Side
	Volume float64
	Price  float64
	Kind   OrderKind
}

// OrderRequest describes one order to submit. StopPrice applies to
// pending-stop entries only.
type OrderRequest struct {
	Symbol    string
	Side      market.Side
	Volume    float64
	Price     float64
	StopPrice float64
	Kind      OrderKind
	Comment   string
}

// OrderResult is the broker's answer to a submission. RetCode is the
// broker return code; Done means filled or placed.
type OrderResult struct {
	Ticket  string
	RetCode RetCode
	Price   float64
	Volume  float64
}
