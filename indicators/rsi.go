package indicators

// RSI computes the relative strength index from rolling means of gains
// and losses over the given window. The first delta needs a previous
// close, so values are NaN until index window; after that the value is
// always defined: a window with zero average loss yields exactly 100,
// never NaN.
func RSI(close []float64, window int) []float64 {
	n := len(close)
	if n == 0 {
		return nil
	}
	// Deltas start at index 1, so at most n-1 of them exist.
	window = ClampWindow(window, n-1)

	out := nanSlice(n)
	gainSum, lossSum := 0.0, 0.0
	for i := 1; i < n; i++ {
		delta := close[i] - close[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
		if i > window {
			old := close[i-window] - close[i-window-1]
			if old > 0 {
				gainSum -= old
			} else {
				lossSum += old
			}
		}
		if i < window {
			continue
		}

		avgGain := gainSum / float64(window)
		avgLoss := lossSum / float64(window)
		if avgLoss == 0 {
			out[i] = 100
		} else {
			rs := avgGain / avgLoss
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}
