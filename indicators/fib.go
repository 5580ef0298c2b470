package indicators

// Fib computes the Fibonacci retracement level
// low + (high-low)*ratio using the bar immediately preceding each
// position (shift 1). The first bar has no predecessor and is NaN.
func Fib(low, high []float64, ratio float64) []float64 {
	n := len(low)
	out := nanSlice(n)
	for i := 1; i < n; i++ {
		out[i] = low[i-1] + (high[i-1]-low[i-1])*ratio
	}
	return out
}
