package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/wickbot/broker"
	"github.com/rustyeddy/wickbot/market"
	"github.com/rustyeddy/wickbot/metrics"
	"github.com/rustyeddy/wickbot/signal"
)

// Runner polls candles for a set of symbols and feeds any detected
// signal through the engine. It is the trigger for broker-driven
// operation; the webhook ingress is the other trigger and both share
// the engine's per-symbol serialization.
type Runner struct {
	broker   broker.Broker
	detector *signal.Detector
	engine   *Engine
	log      zerolog.Logger

	symbols     []string
	interval    time.Duration
	candleCount int
}

func NewRunner(b broker.Broker, d *signal.Detector, e *Engine, log zerolog.Logger, symbols []string, interval time.Duration, candleCount int) *Runner {
	if interval <= 0 {
		interval = time.Minute
	}
	if candleCount <= 0 {
		candleCount = 100
	}
	return &Runner{
		broker:      b,
		detector:    d,
		engine:      e,
		log:         log.With().Str("component", "runner").Logger(),
		symbols:     symbols,
		interval:    interval,
		candleCount: candleCount,
	}
}

// Run polls until ctx is cancelled. An evaluation pass already under
// way finishes; no new pass starts after cancellation.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.evalAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.evalAll(ctx)
		}
	}
}

// RunOnce performs a single evaluation pass over all symbols.
func (r *Runner) RunOnce(ctx context.Context) {
	r.evalAll(ctx)
}

func (r *Runner) evalAll(ctx context.Context) {
	for _, symbol := range r.symbols {
		if ctx.Err() != nil {
			return
		}
		r.evalSymbol(ctx, symbol)
	}
}

func (r *Runner) evalSymbol(ctx context.Context, symbol string) {
	log := r.log.With().Str("symbol", symbol).Logger()

	candles, err := r.broker.Candles(ctx, symbol, r.candleCount)
	if err != nil {
		log.Warn().Err(err).Msg("candle fetch failed, skipping evaluation")
		return
	}
	quote, err := r.broker.Quote(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Msg("quote fetch failed, skipping evaluation")
		return
	}

	sig := r.detector.Detect(candles, market.Lookup(symbol), quote)
	if sig == nil {
		return
	}
	metrics.SignalsTotal.WithLabelValues(sig.Symbol, sig.Side.String()).Inc()

	result, err := r.engine.Reconcile(ctx, *sig)
	switch {
	case err == nil:
		log.Info().Str("outcome", string(result.Outcome)).Msg("reconciled")
	case errors.Is(err, ErrShutdown):
		return
	case isConflict(err):
		log.Debug().Msg("reconciliation already in flight, signal dropped")
	case broker.IsTransport(err):
		log.Error().Err(err).Msg("broker unreachable during reconciliation")
	default:
		log.Warn().Err(err).Str("outcome", string(result.Outcome)).Msg("reconciliation failed")
	}
}

func isConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
