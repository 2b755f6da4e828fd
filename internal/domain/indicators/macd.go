package indicators

import "math"

// MACDResult holds aligned MACD series; entries are NaN until the slow EMA
// plus signal EMA warm-up has elapsed.
type MACDResult struct {
	Line   []float64
	Signal []float64
	Hist   []float64
}

// MACDSeries computes macdLine = EMA(fast) - EMA(slow), signalLine =
// EMA(macdLine, signalPeriod), hist = macdLine - signalLine.
func MACDSeries(values []float64, fast, slow, signal int) MACDResult {
	n := len(values)
	res := MACDResult{
		Line:   make([]float64, n),
		Signal: make([]float64, n),
		Hist:   make([]float64, n),
	}
	for i := 0; i < n; i++ {
		res.Line[i] = math.NaN()
		res.Signal[i] = math.NaN()
		res.Hist[i] = math.NaN()
	}
	if fast <= 0 || slow <= fast || signal <= 0 || n < slow+1 {
		return res
	}

	fastEMA := EMASeries(values, fast)
	slowEMA := EMASeries(values, slow)
	for i := 0; i < n; i++ {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			res.Line[i] = fastEMA[i] - slowEMA[i]
		}
	}

	// Signal line is an EMA over the defined portion of the MACD line.
	start := -1
	for i := 0; i < n; i++ {
		if !math.IsNaN(res.Line[i]) {
			start = i
			break
		}
	}
	if start < 0 {
		return res
	}
	sig := EMASeries(res.Line[start:], signal)
	for i := range sig {
		res.Signal[start+i] = sig[i]
		if !math.IsNaN(sig[i]) {
			res.Hist[start+i] = res.Line[start+i] - sig[i]
		}
	}
	return res
}

// MACDHist returns the latest `bars` histogram values (oldest first), ok=false
// when fewer defined values exist.
func MACDHist(values []float64, fast, slow, signal, bars int) ([]float64, bool) {
	res := MACDSeries(values, fast, slow, signal)
	defined := res.Hist[:0:0]
	for _, h := range res.Hist {
		if !math.IsNaN(h) {
			defined = append(defined, h)
		}
	}
	if len(defined) < bars {
		return nil, false
	}
	return defined[len(defined)-bars:], true
}
