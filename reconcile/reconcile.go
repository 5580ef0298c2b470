// Package reconcile turns a trade signal into broker orders while
// holding the one-position-per-symbol invariant.
//
// For each symbol the engine acts as the single writer of position
// state: only one reconciliation per symbol may be in flight, a second
// one is rejected immediately with a ConflictError. Reconciliations
// for different symbols run independently.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/wickbot/broker"
	"github.com/rustyeddy/wickbot/journal"
	"github.com/rustyeddy/wickbot/market"
	"github.com/rustyeddy/wickbot/metrics"
	"github.com/rustyeddy/wickbot/risk"
	"github.com/rustyeddy/wickbot/signal"
)

// Outcome names what a reconciliation did.
type Outcome string

const (
	// Noop: an open position on the signal side already exists.
	Noop Outcome = "no-op"
	// Opened: a new entry order was placed from flat.
	Opened Outcome = "opened"
	// Reversed: the opposite position was closed and the new side opened.
	Reversed Outcome = "reversed"
	// ClosedOnly: the close leg succeeded but the re-entry failed; the
	// symbol is flat and the failure is reported alongside.
	ClosedOnly Outcome = "closed-only"
	// Rejected: the broker refused the entry; prior state stands.
	Rejected Outcome = "rejected"
)

// Result reports what happened to one signal.
type Result struct {
	Outcome      Outcome
	Ticket       string
	Volume       float64
	ClosedTicket string
}

// ConflictError means a reconciliation for the symbol was already in
// flight. The signal is dropped, not queued.
type ConflictError struct {
	Symbol string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("reconcile: %s already reconciling", e.Symbol)
}

// ErrShutdown is returned once Shutdown has been called; in-flight
// reconciliations finish, new ones do not start.
var ErrShutdown = errors.New("reconcile: shutting down")

// Engine is the reconciliation state machine. States per symbol are
// derived from the broker on every run (Flat, Pending, Open(side));
// the engine itself keeps no position cache that could go stale.
type Engine struct {
	broker  broker.Broker
	journal journal.Journal
	log     zerolog.Logger
	timeout time.Duration

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	shutdown bool
	inflight sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithCallTimeout bounds every broker call made during reconciliation.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

func NewEngine(b broker.Broker, j journal.Journal, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		broker:  b,
		journal: j,
		log:     log.With().Str("component", "reconcile").Logger(),
		timeout: 10 * time.Second,
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Shutdown stops new reconciliations and waits for in-flight ones to
// finish. A reconciliation holding a broker-side side effect is always
// allowed to complete.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	e.shutdown = true
	e.mu.Unlock()
	e.inflight.Wait()
}

// Reconcile drives the symbol toward the signal's side. It is
// idempotent: a repeated signal against an open position on the same
// side does nothing.
func (e *Engine) Reconcile(ctx context.Context, sig signal.Signal) (Result, error) {
	if !sig.Side.Valid() {
		return Result{}, fmt.Errorf("reconcile: invalid side %q", sig.Side)
	}

	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return Result{}, ErrShutdown
	}
	lock, ok := e.locks[sig.Symbol]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[sig.Symbol] = lock
	}
	e.inflight.Add(1)
	e.mu.Unlock()
	defer e.inflight.Done()

	if !lock.TryLock() {
		metrics.ConflictsTotal.WithLabelValues(sig.Symbol).Inc()
		return Result{}, &ConflictError{Symbol: sig.Symbol}
	}
	defer lock.Unlock()

	return e.reconcileLocked(ctx, sig)
}

func (e *Engine) reconcileLocked(ctx context.Context, sig signal.Signal) (Result, error) {
	log := e.log.With().Str("symbol", sig.Symbol).Str("side", sig.Side.String()).Logger()

	existing, err := e.openPosition(ctx, sig.Symbol)
	if err != nil {
		return Result{}, e.noteBrokerErr(sig.Symbol, err)
	}

	// Open(side) + same side: nothing to do.
	if existing != nil && existing.Side == sig.Side {
		log.Info().Str("ticket", existing.Ticket).Msg("position already on signal side")
		return Result{Outcome: Noop, Ticket: existing.Ticket}, nil
	}

	// Stray or conflicting pending orders go first, in every state.
	if err := e.cancelPending(ctx, sig.Symbol, log); err != nil {
		return Result{}, e.noteBrokerErr(sig.Symbol, err)
	}

	if existing == nil {
		return e.openNew(ctx, sig, log)
	}
	return e.closeAndReverse(ctx, sig, *existing, log)
}

// openPosition returns the symbol's single open position, nil when
// flat.
func (e *Engine) openPosition(ctx context.Context, symbol string) (*broker.Position, error) {
	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	positions, err := e.broker.Positions(cctx, symbol)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		if positions[i].Symbol == symbol {
			return &positions[i], nil
		}
	}
	return nil, nil
}

func (e *Engine) cancelPending(ctx context.Context, symbol string, log zerolog.Logger) error {
	cctx, cancel := e.callCtx(ctx)
	pending, err := e.broker.PendingOrders(cctx, symbol)
	cancel()
	if err != nil {
		return err
	}

	for _, order := range pending {
		cctx, cancel := e.callCtx(ctx)
		err := e.broker.CancelOrder(cctx, order.Ticket)
		cancel()
		if err != nil {
			// A rejection usually means the order is already gone;
			// transport failures abort so we never submit on top of a
			// live conflicting order.
			if _, rejected := broker.IsRejection(err); rejected {
				log.Warn().Err(err).Str("ticket", order.Ticket).Msg("cancel rejected, order likely gone")
				continue
			}
			return err
		}
		log.Info().Str("ticket", order.Ticket).Msg("cancelled pending order")
	}
	return nil
}

// openNew sizes and submits a fresh entry from flat. Entries are
// resting stop orders at the current quote.
func (e *Engine) openNew(ctx context.Context, sig signal.Signal, log zerolog.Logger) (Result, error) {
	volume, price, err := e.sizeOrder(ctx, sig)
	if err != nil {
		return Result{}, e.noteBrokerErr(sig.Symbol, err)
	}

	res, err := e.submit(ctx, broker.OrderRequest{
		Symbol:    sig.Symbol,
		Side:      sig.Side,
		Volume:    volume,
		Price:     price,
		StopPrice: price,
		Kind:      broker.PendingStop,
		Comment:   "new position",
	}, log)
	if err != nil {
		return Result{Outcome: Rejected}, err
	}

	e.record(journal.TradeRecord{
		Ticket:     res.Ticket,
		Symbol:     sig.Symbol,
		Side:       sig.Side,
		Volume:     res.Volume,
		EntryPrice: res.Price,
		OpenedAt:   e.clock(sig),
		Comment:    "new position",
	}, log)

	log.Info().Str("ticket", res.Ticket).Float64("volume", res.Volume).Msg("entry order placed")
	return Result{Outcome: Opened, Ticket: res.Ticket, Volume: res.Volume}, nil
}

// closeAndReverse closes the opposite position at market and opens the
// signal side, as one logical unit. If the close lands but the
// re-entry fails the symbol ends flat and the failure is returned; no
// automatic retry.
func (e *Engine) closeAndReverse(ctx context.Context, sig signal.Signal, pos broker.Position, log zerolog.Logger) (Result, error) {
	closeRes, err := e.submit(ctx, broker.OrderRequest{
		Symbol:  sig.Symbol,
		Side:    sig.Side,
		Volume:  pos.Volume,
		Kind:    broker.Market,
		Comment: "close and reverse",
	}, log)
	if err != nil {
		return Result{Outcome: Rejected}, err
	}

	pnl := (closeRes.Price - pos.EntryPrice) * pos.Volume
	if pos.Side == market.Sell {
		pnl = -pnl
	}
	e.record(journal.TradeRecord{
		Ticket:     pos.Ticket,
		Symbol:     sig.Symbol,
		Side:       pos.Side,
		Volume:     pos.Volume,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  closeRes.Price,
		OpenedAt:   pos.OpenTime,
		ClosedAt:   e.clock(sig),
		PnL:        pnl,
		Comment:    "close and reverse",
	}, log)
	log.Info().Str("ticket", pos.Ticket).Float64("pnl", pnl).Msg("closed opposite position")

	volume, price, err := e.sizeOrder(ctx, sig)
	if err != nil {
		return Result{Outcome: ClosedOnly, ClosedTicket: pos.Ticket}, e.noteBrokerErr(sig.Symbol, err)
	}

	entryRes, err := e.submit(ctx, broker.OrderRequest{
		Symbol:  sig.Symbol,
		Side:    sig.Side,
		Volume:  volume,
		Price:   price,
		Kind:    broker.Market,
		Comment: "reverse entry",
	}, log)
	if err != nil {
		// The close already happened; report and leave the symbol flat.
		log.Error().Err(err).Msg("re-entry failed after close, symbol left flat")
		return Result{Outcome: ClosedOnly, ClosedTicket: pos.Ticket}, err
	}

	e.record(journal.TradeRecord{
		Ticket:     entryRes.Ticket,
		Symbol:     sig.Symbol,
		Side:       sig.Side,
		Volume:     entryRes.Volume,
		EntryPrice: entryRes.Price,
		OpenedAt:   e.clock(sig),
		Comment:    "reverse entry",
	}, log)

	log.Info().Str("ticket", entryRes.Ticket).Msg("reversed position")
	return Result{
		Outcome:      Reversed,
		Ticket:       entryRes.Ticket,
		Volume:       entryRes.Volume,
		ClosedTicket: pos.Ticket,
	}, nil
}

// sizeOrder fetches account and quote and computes a bounded volume.
func (e *Engine) sizeOrder(ctx context.Context, sig signal.Signal) (float64, float64, error) {
	cctx, cancel := e.callCtx(ctx)
	acct, err := e.broker.Account(cctx)
	cancel()
	if err != nil {
		return 0, 0, err
	}

	cctx, cancel = e.callCtx(ctx)
	quote, err := e.broker.Quote(cctx, sig.Symbol)
	cancel()
	if err != nil {
		return 0, 0, err
	}

	price := quote.PriceFor(sig.Side)
	volume, err := risk.Volume(market.Lookup(sig.Symbol), acct.Balance, price)
	if err != nil {
		// Volume is already clamped to a safe value; just log why.
		e.log.Warn().Err(err).Str("symbol", sig.Symbol).Msg("sizing degraded")
	}
	return volume, price, nil
}

// submit sends one order and classifies the failure modes. After a
// transport failure the broker state is queried before reporting, so a
// caller never re-submits an order that may have landed.
func (e *Engine) submit(ctx context.Context, req broker.OrderRequest, log zerolog.Logger) (broker.OrderResult, error) {
	cctx, cancel := e.callCtx(ctx)
	res, err := e.broker.SubmitOrder(cctx, req)
	cancel()
	if err == nil {
		metrics.OrdersTotal.WithLabelValues(req.Symbol, req.Side.String(), string(req.Kind)).Inc()
		return res, nil
	}

	if rej, ok := broker.IsRejection(err); ok {
		metrics.RejectionsTotal.WithLabelValues(req.Symbol, rej.RetCode.String()).Inc()
		if broker.IsMaxTrades(err) {
			log.Warn().Err(err).Msg("max concurrent trades reached, entry rejected")
		} else {
			log.Warn().Err(err).Msg("order rejected")
		}
		return res, err
	}

	metrics.TransportErrorsTotal.WithLabelValues(req.Symbol, "submit").Inc()
	// A timeout is not "not placed". Look at the broker before handing
	// the error up so duplicate submissions are never the fix.
	e.verifyAfterTransportFailure(ctx, req, log)
	return res, err
}

// verifyAfterTransportFailure queries positions and pending orders so
// the log records whether the lost submission actually landed.
func (e *Engine) verifyAfterTransportFailure(ctx context.Context, req broker.OrderRequest, log zerolog.Logger) {
	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	positions, perr := e.broker.Positions(cctx, req.Symbol)
	pending, oerr := e.broker.PendingOrders(cctx, req.Symbol)
	if perr != nil || oerr != nil {
		log.Error().Str("symbol", req.Symbol).
			Msg("submit failed and state verification failed; manual check required")
		return
	}
	log.Warn().
		Int("open_positions", len(positions)).
		Int("pending_orders", len(pending)).
		Msg("submit transport failure; broker state queried before any retry")
}

func (e *Engine) record(rec journal.TradeRecord, log zerolog.Logger) {
	if err := e.journal.RecordTrade(rec); err != nil {
		// Persistence must not undo a live order; log and move on.
		log.Error().Err(err).Str("ticket", rec.Ticket).Msg("journal write failed")
	}
}

func (e *Engine) noteBrokerErr(symbol string, err error) error {
	if broker.IsTransport(err) {
		metrics.TransportErrorsTotal.WithLabelValues(symbol, "query").Inc()
	}
	return err
}

func (e *Engine) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *Engine) clock(sig signal.Signal) time.Time {
	if !sig.Time.IsZero() {
		return sig.Time
	}
	return time.Now()
}
