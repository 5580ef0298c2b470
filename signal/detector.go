// Package signal turns a candle window into at most one trade signal.
//
// The detector is pure and stateless between evaluations: every call
// recomputes the full indicator frame from the candles it is given.
// Bad input never aborts the evaluation loop: validation and
// computation failures are logged and downgraded to "no signal". That
// fail-open behavior favors loop availability over strict correctness
// and is part of the contract.
package signal

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/wickbot/indicators"
	"github.com/rustyeddy/wickbot/market"
)

// Signal is a single trade intent for one symbol. At most one exists
// per symbol per evaluation; buy and sell are mutually exclusive.
type Signal struct {
	Symbol         string
	Side           market.Side
	ReferencePrice float64
	Time           time.Time
}

// Config holds the detector windows and the wick threshold. Window
// values are clamped to the candle series length at evaluation time.
type Config struct {
	EMALength    int     `json:"ema_length" yaml:"ema_length"`
	GapWindow    int     `json:"gap_window" yaml:"gap_window"`
	BarLimit     int     `json:"bar_limit" yaml:"bar_limit"`
	PipThreshold float64 `json:"pip_threshold" yaml:"pip_threshold"`
	ATRWindow    int     `json:"atr_window" yaml:"atr_window"`
	RSIWindow    int     `json:"rsi_window" yaml:"rsi_window"`
}

// DefaultConfig mirrors the production tuning: 100-bar EMA and gap
// window, 1000-bar limit, 10-pip wick threshold, 14-bar ATR/RSI.
func DefaultConfig() Config {
	return Config{
		EMALength:    100,
		GapWindow:    100,
		BarLimit:     1000,
		PipThreshold: 10,
		ATRWindow:    14,
		RSIWindow:    14,
	}
}

type Detector struct {
	cfg Config
	log zerolog.Logger
}

func NewDetector(cfg Config, log zerolog.Logger) *Detector {
	if cfg.PipThreshold <= 0 {
		cfg.PipThreshold = 10
	}
	return &Detector{cfg: cfg, log: log.With().Str("component", "detector").Logger()}
}

// Detect evaluates the candle window and returns a signal when the
// last bar satisfies the wick condition for exactly one side, with the
// reference price taken from the live quote (ask for buy, bid for
// sell). It returns nil, never an error: all failure modes downgrade
// to "no signal".
func (d *Detector) Detect(candles []market.Candle, meta market.InstrumentMeta, quote market.Quote) (sig *Signal) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Msg("analysis failed, dropping signal")
			sig = nil
		}
	}()

	if err := validate(candles, meta); err != nil {
		d.log.Warn().Err(err).Msg("invalid candle data, dropping signal")
		return nil
	}

	n := len(candles)
	emaLength := indicators.ClampWindow(d.cfg.EMALength, n)
	gapWindow := indicators.ClampWindow(d.cfg.GapWindow, n)
	atrWindow := indicators.ClampWindow(d.cfg.ATRWindow, n)
	rsiWindow := indicators.ClampWindow(d.cfg.RSIWindow, n)

	frame := computeFrame(candles, meta.Point, emaLength, gapWindow, atrWindow, rsiWindow)

	// Only the last bar can emit a signal.
	last := n - 1
	wickOK := frame.WickSize[last] >= d.cfg.PipThreshold

	var side market.Side
	switch {
	case frame.BuyCondition[last] && wickOK:
		side = market.Buy
	case frame.SellCondition[last] && wickOK:
		side = market.Sell
	default:
		return nil
	}

	ts := quote.Time
	if ts.IsZero() {
		ts = candles[last].OpenTime
	}

	d.log.Info().
		Str("symbol", candles[last].Symbol).
		Str("side", side.String()).
		Float64("gap", frame.Gap[last]).
		Float64("wick_size", frame.WickSize[last]).
		Msg("wick signal")

	return &Signal{
		Symbol:         candles[last].Symbol,
		Side:           side,
		ReferencePrice: quote.PriceFor(side),
		Time:           ts,
	}
}

// validationError reports unusable candle input.
type validationError struct{ reason string }

func (e *validationError) Error() string { return "validate candles: " + e.reason }

func validate(candles []market.Candle, meta market.InstrumentMeta) error {
	if len(candles) == 0 {
		return &validationError{reason: "empty series"}
	}
	if meta.Point <= 0 {
		return &validationError{reason: "non-positive instrument point"}
	}
	for i, c := range candles {
		if c.Symbol == "" {
			return &validationError{reason: "candle missing symbol"}
		}
		if c.OpenTime.IsZero() {
			return &validationError{reason: "candle missing open time"}
		}
		for _, v := range [...]float64{c.Open, c.High, c.Low, c.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &validationError{reason: "non-finite price field"}
			}
		}
		if c.Close == 0 {
			return &validationError{reason: "candle missing close"}
		}
		if i > 0 && !candles[i].OpenTime.After(candles[i-1].OpenTime) {
			return &validationError{reason: "candles not strictly ascending by open time"}
		}
	}
	return nil
}
