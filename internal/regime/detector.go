package regime

import (
	"math"

	"github.com/trendgate/trendgate/internal/domain"
	"github.com/trendgate/trendgate/internal/domain/indicators"
)

// Status classifies the higher-timeframe trend regime
type Status string

const (
	// StatusBull / StatusBear: a tradeable trend regime in that direction
	StatusBull Status = "BULL"
	StatusBear Status = "BEAR"
	// StatusNoTrade: price sits inside the no-trade band around EMA200
	StatusNoTrade Status = "NO_TRADE"
	// StatusNone: outside the no-trade band but the EMA stack does not line up
	StatusNone Status = "NONE"
	// StatusNotReady: not enough candles to assess the regime
	StatusNotReady Status = "NOT_READY"
)

// Config tunes the detector. Values come from the gate thresholds.
type Config struct {
	NoTradeATRK float64 // half-width of the EMA200 no-trade band, in ATR units
	ExtendATRK  float64 // max |close-EMA50| distance, in ATR units
	ReclaimM    int     // required run of opposite-side closes before the reclaim
	ReclaimK    int     // required run of on-side closes ending at the latest bar
}

// Verdict is the full regime reading consumed by the gate pipeline
type Verdict struct {
	Status    Status
	Direction domain.Direction // set for BULL/BEAR only

	ReclaimOK bool // K-after-M reclaim of EMA50 present
	SetupOK   bool // EMA21 pullback-and-hold or EMA21/EMA50 cross present
	Extended  bool // close too far from EMA50

	CloseEMA21DistATR float64 // |close-EMA21| in ATR units, for HTF permission
	ATR               float64
}

const (
	emaPullback = 21
	emaFast     = 50
	emaSlow     = 200
	atrPeriod   = 14

	// setupLookback bounds how far back the EMA21 touch or EMA21/EMA50 cross
	// may sit and still count as a live setup.
	setupLookback = 8
)

// Assess reads the regime off a higher-timeframe series. The caller is
// responsible for supplying enough candles; fewer than EMA200 warm-up yields
// StatusNotReady.
func Assess(candles []domain.Candle, cfg Config) Verdict {
	n := len(candles)
	ema50 := indicators.EMASeries(domain.Closes(candles), emaFast)
	ema200 := indicators.EMASeries(domain.Closes(candles), emaSlow)
	ema21 := indicators.EMASeries(domain.Closes(candles), emaPullback)
	atr, atrOK := indicators.ATR(candles, atrPeriod)

	if n < emaSlow+1 || !atrOK || math.IsNaN(ema200[n-1]) || atr <= 0 {
		return Verdict{Status: StatusNotReady}
	}

	closePrice := candles[n-1].Close
	verdict := Verdict{
		ATR:               atr,
		CloseEMA21DistATR: math.Abs(closePrice-ema21[n-1]) / atr,
	}

	// No-trade band around EMA200.
	if math.Abs(closePrice-ema200[n-1]) < cfg.NoTradeATRK*atr {
		verdict.Status = StatusNoTrade
		return verdict
	}

	rising := ema50[n-1] > ema50[n-2]
	falling := ema50[n-1] < ema50[n-2]
	switch {
	case closePrice > ema200[n-1] && ema50[n-1] > ema200[n-1] && rising:
		verdict.Status = StatusBull
		verdict.Direction = domain.DirectionLong
	case closePrice < ema200[n-1] && ema50[n-1] < ema200[n-1] && falling:
		verdict.Status = StatusBear
		verdict.Direction = domain.DirectionShort
	default:
		verdict.Status = StatusNone
		return verdict
	}

	long := verdict.Direction == domain.DirectionLong
	verdict.Extended = math.Abs(closePrice-ema50[n-1])/atr > cfg.ExtendATRK
	verdict.ReclaimOK = reclaimPresent(candles, ema50, long, cfg.ReclaimK, cfg.ReclaimM)
	verdict.SetupOK = setupPresent(candles, ema21, ema50, long)
	return verdict
}

// reclaimPresent checks for at least k consecutive closes on the trend side
// of EMA50 ending at the latest bar, immediately preceded by at least m
// consecutive closes on the opposite side.
func reclaimPresent(candles []domain.Candle, ema50 []float64, long bool, k, m int) bool {
	n := len(candles)
	onSide := func(i int) bool {
		if math.IsNaN(ema50[i]) {
			return false
		}
		if long {
			return candles[i].Close > ema50[i]
		}
		return candles[i].Close < ema50[i]
	}

	i := n - 1
	run := 0
	for i >= 0 && onSide(i) {
		run++
		i--
	}
	if run < k {
		return false
	}

	opposite := 0
	for i >= 0 && !math.IsNaN(ema50[i]) && !onSide(i) {
		opposite++
		i--
	}
	return opposite >= m
}

// setupPresent detects a live entry setup: price pulled back to touch EMA21
// and closed back on-side, or EMA21 crossed EMA50 in the trend direction.
func setupPresent(candles []domain.Candle, ema21, ema50 []float64, long bool) bool {
	n := len(candles)
	if math.IsNaN(ema21[n-1]) {
		return false
	}

	// Latest close must already be back on-side of EMA21.
	closedOnSide := candles[n-1].Close > ema21[n-1]
	if !long {
		closedOnSide = candles[n-1].Close < ema21[n-1]
	}

	if closedOnSide {
		for i := n - 1; i >= 0 && i > n-1-setupLookback; i-- {
			if math.IsNaN(ema21[i]) {
				break
			}
			touched := candles[i].Low <= ema21[i] && ema21[i] <= candles[i].High
			if touched {
				return true
			}
		}
	}

	// EMA21/EMA50 cross in the trend direction within the lookback.
	for i := n - 1; i > 0 && i > n-1-setupLookback; i-- {
		if math.IsNaN(ema21[i-1]) || math.IsNaN(ema50[i-1]) {
			break
		}
		if long && ema21[i] > ema50[i] && ema21[i-1] <= ema50[i-1] {
			return true
		}
		if !long && ema21[i] < ema50[i] && ema21[i-1] >= ema50[i-1] {
			return true
		}
	}
	return false
}
