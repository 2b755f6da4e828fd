package indicators

import "math"

// EMASeries computes an exponential moving average over values. Positions
// before the warm-up window (period-1 leading entries) are NaN. The first
// defined value is seeded from the first input value, k = 2/(period+1).
func EMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period+1 {
		return out
	}
	k := 2.0 / float64(period+1)
	prev := values[0]
	for i := 1; i < len(values); i++ {
		prev = values[i]*k + prev*(1-k)
		if i >= period {
			out[i] = prev
		}
	}
	return out
}

// EMA returns the latest EMA value, ok=false when the series is not ready
func EMA(values []float64, period int) (float64, bool) {
	series := EMASeries(values, period)
	if len(series) == 0 {
		return 0, false
	}
	last := series[len(series)-1]
	if math.IsNaN(last) {
		return 0, false
	}
	return last, true
}

// SMASeries computes a simple moving average with NaN warm-up
func SMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// SMA returns the latest SMA value, ok=false when the series is not ready
func SMA(values []float64, period int) (float64, bool) {
	series := SMASeries(values, period)
	if len(series) == 0 {
		return 0, false
	}
	last := series[len(series)-1]
	if math.IsNaN(last) {
		return 0, false
	}
	return last, true
}
