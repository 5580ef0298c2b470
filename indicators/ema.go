package indicators

// EMA computes the exponential moving average with the usual span
// smoothing factor 2/(length+1). The average is seeded with the first
// value, so every position has a value and no look-ahead occurs.
func EMA(series []float64, length int) []float64 {
	if len(series) == 0 {
		return nil
	}
	length = ClampWindow(length, len(series))
	alpha := 2.0 / float64(length+1)

	out := make([]float64, len(series))
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = alpha*series[i] + (1-alpha)*out[i-1]
	}
	return out
}
