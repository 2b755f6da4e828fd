package indicators

import (
	"math"

	"github.com/trendgate/trendgate/internal/domain"
)

// RSISeries computes the Wilder-smoothed Relative Strength Index. Entries
// before index `period` are NaN. RSI is pinned to 100 when the average loss
// is zero.
func RSISeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period+1 {
		return out
	}

	alpha := 1.0 / float64(period)
	var avgGain, avgLoss float64
	for i := 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		if i <= period {
			avgGain += gain / float64(period)
			avgLoss += loss / float64(period)
		} else {
			avgGain = avgGain*(1-alpha) + gain*alpha
			avgLoss = avgLoss*(1-alpha) + loss*alpha
		}
		if i >= period {
			if avgLoss == 0 {
				out[i] = 100.0
			} else {
				rs := avgGain / avgLoss
				out[i] = 100.0 - 100.0/(1.0+rs)
			}
		}
	}
	return out
}

// RSI returns the latest RSI value, ok=false when the series is not ready
func RSI(values []float64, period int) (float64, bool) {
	series := RSISeries(values, period)
	if len(series) == 0 {
		return 0, false
	}
	last := series[len(series)-1]
	if math.IsNaN(last) {
		return 0, false
	}
	return last, true
}

func trueRange(cur, prev domain.Candle) float64 {
	hl := cur.High - cur.Low
	hc := math.Abs(cur.High - prev.Close)
	lc := math.Abs(cur.Low - prev.Close)
	return math.Max(hl, math.Max(hc, lc))
}

// ATRSeries computes the Wilder-smoothed Average True Range over candles.
// Entries before index `period` are NaN.
func ATRSeries(candles []domain.Candle, period int) []float64 {
	out := make([]float64, len(candles))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(candles) < period+1 {
		return out
	}

	alpha := 1.0 / float64(period)
	var atr float64
	for i := 1; i < len(candles); i++ {
		tr := trueRange(candles[i], candles[i-1])
		if i <= period {
			atr += tr / float64(period)
		} else {
			atr = atr*(1-alpha) + tr*alpha
		}
		if i >= period {
			out[i] = atr
		}
	}
	return out
}

// ATR returns the latest ATR value, ok=false when the series is not ready
func ATR(candles []domain.Candle, period int) (float64, bool) {
	series := ATRSeries(candles, period)
	if len(series) == 0 {
		return 0, false
	}
	last := series[len(series)-1]
	if math.IsNaN(last) {
		return 0, false
	}
	return last, true
}

// ADXResult carries the directional index values of one evaluation
type ADXResult struct {
	ADX float64
	PDI float64
	MDI float64
}

// ADX computes the Average Directional Index with Wilder smoothing applied to
// +DM, -DM, TR and to the DX series itself. Requires 2*period+1 candles;
// ok=false otherwise.
func ADX(candles []domain.Candle, period int) (ADXResult, bool) {
	if period <= 0 || len(candles) < 2*period+1 {
		return ADXResult{}, false
	}

	alpha := 1.0 / float64(period)
	var smTR, smPlusDM, smMinusDM float64
	var adx float64
	var res ADXResult
	dxCount := 0

	for i := 1; i < len(candles); i++ {
		cur, prev := candles[i], candles[i-1]
		tr := trueRange(cur, prev)

		plusMove := cur.High - prev.High
		minusMove := prev.Low - cur.Low
		plusDM, minusDM := 0.0, 0.0
		if plusMove > minusMove && plusMove > 0 {
			plusDM = plusMove
		}
		if minusMove > plusMove && minusMove > 0 {
			minusDM = minusMove
		}

		if i <= period {
			smTR += tr
			smPlusDM += plusDM
			smMinusDM += minusDM
			if i < period {
				continue
			}
		} else {
			smTR = smTR*(1-alpha) + tr
			smPlusDM = smPlusDM*(1-alpha) + plusDM
			smMinusDM = smMinusDM*(1-alpha) + minusDM
		}

		if smTR <= 0 {
			continue
		}
		pdi := 100.0 * smPlusDM / smTR
		mdi := 100.0 * smMinusDM / smTR
		res.PDI = pdi
		res.MDI = mdi

		sum := pdi + mdi
		dx := 0.0
		if sum > 0 {
			dx = 100.0 * math.Abs(pdi-mdi) / sum
		}
		dxCount++
		if dxCount <= period {
			adx += dx / float64(period)
		} else {
			adx = adx*(1-alpha) + dx*alpha
		}
		if dxCount >= period {
			res.ADX = adx
		}
	}
	return res, true
}
