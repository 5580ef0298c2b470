package indicators

import "math"

// TrueRange returns the per-bar true range series:
// max(high-low, |high-prevClose|, |low-prevClose|). The first bar has
// no previous close, so its true range is simply high-low.
func TrueRange(high, low, close []float64) []float64 {
	n := len(close)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		hl := high[i] - low[i]
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR computes the average true range as a rolling mean of the true
// range over the given window. Positions before the window fills are
// NaN.
func ATR(high, low, close []float64, window int) []float64 {
	n := len(close)
	if n == 0 {
		return nil
	}
	window = ClampWindow(window, n)
	tr := TrueRange(high, low, close)

	out := nanSlice(n)
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += tr[i]
		if i >= window {
			sum -= tr[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}
