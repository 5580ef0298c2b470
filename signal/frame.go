package signal

import (
	"github.com/rustyeddy/wickbot/indicators"
	"github.com/rustyeddy/wickbot/market"
)

// Frame holds the per-candle derived series for one evaluation batch.
// It is recomputed in full from the candle window on every evaluation
// and never mutated incrementally.
type Frame struct {
	EMALong    []float64
	Gap        []float64
	LongestGap []float64
	ATR        []float64
	RSI        []float64
	Fib59      []float64
	Fib163     []float64
	WickSize   []float64

	BuyCondition  []bool
	SellCondition []bool

	// Walk is the alternating position token per bar after the
	// suppression pass; entries are Buy, Sell or empty (flat).
	Walk []market.Side
}

// computeFrame derives all indicator series for the batch. Window
// parameters arrive already clamped to the series length.
func computeFrame(candles []market.Candle, point float64, emaLength, gapWindow, atrWindow, rsiWindow int) *Frame {
	closes := market.Closes(candles)
	highs := market.Highs(candles)
	lows := market.Lows(candles)
	n := len(candles)

	f := &Frame{
		EMALong:       indicators.EMA(closes, emaLength),
		ATR:           indicators.ATR(highs, lows, closes, atrWindow),
		RSI:           indicators.RSI(closes, rsiWindow),
		Fib59:         indicators.Fib(lows, highs, 0.59),
		Fib163:        indicators.Fib(lows, highs, 1.63),
		Gap:           make([]float64, n),
		WickSize:      make([]float64, n),
		BuyCondition:  make([]bool, n),
		SellCondition: make([]bool, n),
		Walk:          make([]market.Side, n),
	}

	for i := 0; i < n; i++ {
		f.Gap[i] = closes[i] - f.EMALong[i]
		f.WickSize[i] = abs(highs[i]-lows[i]) / point
		f.BuyCondition[i] = f.Gap[i] < 0
		f.SellCondition[i] = f.Gap[i] > 0
	}
	f.LongestGap = indicators.RollingMax(f.Gap, gapWindow)

	f.walk()
	return f
}

// walk enforces strict alternation: while the token is long, further
// buy conditions are suppressed and only a sell condition flips it, and
// symmetrically while short. Raw conditions firing on consecutive bars
// therefore yield an alternating buy/sell sequence.
func (f *Frame) walk() {
	var pos market.Side
	for i := range f.BuyCondition {
		switch pos {
		case market.Buy:
			f.BuyCondition[i] = false
			if f.SellCondition[i] {
				pos = market.Sell
				f.Walk[i] = market.Sell
			}
		case market.Sell:
			f.SellCondition[i] = false
			if f.BuyCondition[i] {
				pos = market.Buy
				f.Walk[i] = market.Buy
			}
		default:
			if f.BuyCondition[i] {
				pos = market.Buy
				f.Walk[i] = market.Buy
			} else if f.SellCondition[i] {
				pos = market.Sell
				f.Walk[i] = market.Sell
			}
		}
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
