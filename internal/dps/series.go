package dps

// Deltas turns a cumulative per-second series into per-tick values.
// Δ[0] is D[0]; every later tick is the difference to its predecessor.
func Deltas(cum []float64) []float64 {
	if len(cum) == 0 {
		return nil
	}
	out := make([]float64, len(cum))
	out[0] = cum[0]
	for t := 1; t < len(cum); t++ {
		out[t] = cum[t] - cum[t-1]
	}
	return out
}

// CumSum is the inverse of Deltas.
func CumSum(series []float64) []float64 {
	if len(series) == 0 {
		return nil
	}
	out := make([]float64, len(series))
	out[0] = series[0]
	for t := 1; t < len(series); t++ {
		out[t] = out[t-1] + series[t]
	}
	return out
}

// MovingAverage averages each tick with its neighbours within radius.
// Windows are truncated at both ends, never padded.
func MovingAverage(series []float64, radius int) []float64 {
	n := len(series)
	out := make([]float64, n)
	for i := range series {
		lo := max(i-radius, 0)
		hi := min(i+radius, n-1)
		var sum float64
		for _, v := range series[lo : hi+1] {
			sum += v
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// BurstMax returns the largest increase of cum over any window of exactly
// w ticks. Zero when the series is shorter than the window.
func BurstMax(cum []float64, w int) float64 {
	var best float64
	for t := w; t < len(cum); t++ {
		if d := cum[t] - cum[t-w]; d > best {
			best = d
		}
	}
	return best
}

// at reads a cumulative series at tick i. Reads past the end return the
// last value since the series no longer grows.
func at(cum []float64, i int) float64 {
	if len(cum) == 0 || i < 0 {
		return 0
	}
	if i >= len(cum) {
		return cum[len(cum)-1]
	}
	return cum[i]
}

func sum(series []float64) float64 {
	var s float64
	for _, v := range series {
		s += v
	}
	return s
}
