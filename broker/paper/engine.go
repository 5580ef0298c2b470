// Package paper is an in-memory Broker used by tests and dry runs. It
// keeps positions, pending orders and account equity under one mutex
// and nets opposite market orders against open positions the way a
// netting broker does.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/wickbot/broker"
	"github.com/rustyeddy/wickbot/internal/id"
	"github.com/rustyeddy/wickbot/market"
)

type Engine struct {
	mu        sync.Mutex
	connected bool
	acct      broker.Account
	quotes    map[string]market.Quote
	candles   map[string][]market.Candle
	positions map[string]*broker.Position
	pending   map[string]*broker.Order
	maxTrades int

	// Test hooks: consumed by the next SubmitOrder call.
	nextSubmitErr    error
	nextSubmitReject broker.RetCode
}

func NewEngine(acct broker.Account) *Engine {
	return &Engine{
		acct:      acct,
		quotes:    make(map[string]market.Quote),
		candles:   make(map[string][]market.Candle),
		positions: make(map[string]*broker.Position),
		pending:   make(map[string]*broker.Order),
	}
}

// SetMaxTrades caps concurrently held positions plus pending orders.
// Zero means unlimited.
func (e *Engine) SetMaxTrades(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maxTrades = n
}

func (e *Engine) SetQuote(q market.Quote) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.quotes[q.Symbol] = q
}

func (e *Engine) SetCandles(symbol string, candles []market.Candle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.candles[symbol] = candles
}

// InjectSubmitError makes the next SubmitOrder fail with a transport
// error wrapping err.
func (e *Engine) InjectSubmitError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextSubmitErr = err
}

// InjectReject makes the next SubmitOrder return a rejection with the
// given return code.
func (e *Engine) InjectReject(code broker.RetCode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextSubmitReject = code
}

func (e *Engine) Connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = true
	return nil
}

func (e *Engine) Disconnect() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = false
	return nil
}

func (e *Engine) Account(ctx context.Context) (broker.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return broker.Account{}, e.notConnected("account", "")
	}
	return e.acct, nil
}

func (e *Engine) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return market.Quote{}, e.notConnected("quote", symbol)
	}
	q, ok := e.quotes[symbol]
	if !ok {
		return market.Quote{}, &broker.TransportError{
			Op: "quote", Symbol: symbol, Err: fmt.Errorf("no quote for %s", symbol),
		}
	}
	return q, nil
}

func (e *Engine) Candles(ctx context.Context, symbol string, count int) ([]market.Candle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return nil, e.notConnected("candles", symbol)
	}
	series := e.candles[symbol]
	if count > 0 && len(series) > count {
		series = series[len(series)-count:]
	}
	out := make([]market.Candle, len(series))
	copy(out, series)
	return out, nil
}

func (e *Engine) Positions(ctx context.Context, symbol string) ([]broker.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return nil, e.notConnected("positions", symbol)
	}
	var out []broker.Position
	for _, p := range e.positions {
		if symbol == "" || p.Symbol == symbol {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (e *Engine) PendingOrders(ctx context.Context, symbol string) ([]broker.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return nil, e.notConnected("pending orders", symbol)
	}
	var out []broker.Order
	for _, o := range e.pending {
		if symbol == "" || o.Symbol == symbol {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (e *Engine) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return broker.OrderResult{}, e.notConnected("submit", req.Symbol)
	}

	if err := e.nextSubmitErr; err != nil {
		e.nextSubmitErr = nil
		return broker.OrderResult{}, &broker.TransportError{Op: "submit", Symbol: req.Symbol, Err: err}
	}
	if code := e.nextSubmitReject; code != 0 {
		e.nextSubmitReject = 0
		return broker.OrderResult{RetCode: code}, &broker.RejectionError{
			Op: "submit", Symbol: req.Symbol, RetCode: code,
		}
	}

	if !req.Side.Valid() || req.Volume <= 0 {
		return broker.OrderResult{RetCode: broker.RetInvalidVolume}, &broker.RejectionError{
			Op: "submit", Symbol: req.Symbol, RetCode: broker.RetInvalidVolume,
		}
	}

	q, ok := e.quotes[req.Symbol]
	if !ok {
		return broker.OrderResult{}, &broker.TransportError{
			Op: "submit", Symbol: req.Symbol, Err: fmt.Errorf("no quote for %s", req.Symbol),
		}
	}

	// A market order against an opposite open position nets it out
	// first; only a remainder opens new exposure.
	if req.Kind == broker.Market {
		if remainder, res, closed := e.netLocked(req, q); closed {
			if remainder <= 0 {
				return res, nil
			}
			req.Volume = remainder
		}
	}

	if e.maxTrades > 0 && len(e.positions)+len(e.pending) >= e.maxTrades {
		return broker.OrderResult{RetCode: broker.RetLimitPositions}, &broker.RejectionError{
			Op: "submit", Symbol: req.Symbol, RetCode: broker.RetLimitPositions,
		}
	}

	ticket := id.New()
	switch req.Kind {
	case broker.PendingStop:
		e.pending[ticket] = &broker.Order{
			Ticket: ticket,
			Symbol: req.Symbol,
			Side:   req.Side,
			Volume: req.Volume,
			Price:  req.StopPrice,
			Kind:   broker.PendingStop,
		}
	default:
		fill := q.PriceFor(req.Side)
		e.positions[ticket] = &broker.Position{
			Ticket:       ticket,
			Symbol:       req.Symbol,
			Side:         req.Side,
			Volume:       req.Volume,
			EntryPrice:   fill,
			CurrentPrice: fill,
			OpenTime:     e.now(q),
		}
	}

	return broker.OrderResult{
		Ticket:  ticket,
		RetCode: broker.RetDone,
		Price:   q.PriceFor(req.Side),
		Volume:  req.Volume,
	}, nil
}

// netLocked closes opposite exposure on the symbol against a market
// order. Returns the unfilled remainder, the fill result for the
// closing leg, and whether any netting happened.
func (e *Engine) netLocked(req broker.OrderRequest, q market.Quote) (float64, broker.OrderResult, bool) {
	for ticket, pos := range e.positions {
		if pos.Symbol != req.Symbol || pos.Side == req.Side {
			continue
		}

		closePrice := q.PriceFor(req.Side)
		closed := req.Volume
		if closed > pos.Volume {
			closed = pos.Volume
		}

		pnl := (closePrice - pos.EntryPrice) * closed
		if pos.Side == market.Sell {
			pnl = -pnl
		}
		e.acct.Balance += pnl
		e.acct.Equity += pnl

		pos.Volume -= closed
		if pos.Volume <= 0 {
			delete(e.positions, ticket)
		}

		return req.Volume - closed, broker.OrderResult{
			Ticket:  ticket,
			RetCode: broker.RetDone,
			Price:   closePrice,
			Volume:  closed,
		}, true
	}
	return req.Volume, broker.OrderResult{}, false
}

func (e *Engine) CancelOrder(ctx context.Context, ticket string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return e.notConnected("cancel", "")
	}
	if _, ok := e.pending[ticket]; !ok {
		return &broker.RejectionError{
			Op: "cancel", RetCode: broker.RetPriceOff,
			Reason: fmt.Sprintf("pending order %s not found", ticket),
		}
	}
	delete(e.pending, ticket)
	return nil
}

func (e *Engine) notConnected(op, symbol string) error {
	return &broker.TransportError{
		Op: op, Symbol: symbol, Err: fmt.Errorf("not connected"),
	}
}

func (e *Engine) now(q market.Quote) time.Time {
	if !q.Time.IsZero() {
		return q.Time
	}
	return time.Now()
}
