// Package market defines the core value types shared across the bot:
// candles, quotes, trade sides and instrument metadata.
package market

import "time"

// Candle is a single OHLC bar. Candles in a series are ordered ascending
// by OpenTime and OpenTime is unique per symbol.
type Candle struct {
	Symbol     string
	OpenTime   time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	TickVolume float64
	Spread     float64
	RealVolume float64
}

// Closes extracts the close series from a candle slice.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high series from a candle slice.
func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low series from a candle slice.
func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}
