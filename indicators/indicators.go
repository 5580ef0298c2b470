// Package indicators provides technical analysis indicators computed
// over an ordered candle series.
//
// Every function is pure and deterministic: the result derives only
// from the input slice, so the same window of candles always produces
// the same values in live, replay and tests. Windows longer than the
// series are clamped to the available length instead of failing, and
// positions before a window has filled carry NaN rather than zero, so
// callers can distinguish "no value yet" from a genuine zero.
package indicators

import "math"

// ClampWindow bounds an indicator window to the available series
// length. A non-positive window degenerates to 1.
func ClampWindow(window, available int) int {
	if window > available {
		window = available
	}
	if window < 1 {
		window = 1
	}
	return window
}

// RollingMax computes the rolling maximum over the given window.
// Positions before the window fills are NaN.
func RollingMax(series []float64, window int) []float64 {
	window = ClampWindow(window, len(series))
	out := nanSlice(len(series))
	for i := window - 1; i < len(series); i++ {
		max := series[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			if series[j] > max {
				max = series[j]
			}
		}
		out[i] = max
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
