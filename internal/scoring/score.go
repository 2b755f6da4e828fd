package scoring

import (
	"math"

	"github.com/trendgate/trendgate/internal/domain"
	"github.com/trendgate/trendgate/internal/domain/indicators"
)

// Score labels by composite value
const (
	LabelElite    = "ELITE"
	LabelStrong   = "STRONG"
	LabelOK       = "OK"
	LabelNoSignal = "NO SIGNAL"
)

// MacroBias is the market-wide risk appetite derived from a BTC trend proxy
type MacroBias string

const (
	MacroRiskOn  MacroBias = "RISK_ON"
	MacroRiskOff MacroBias = "RISK_OFF"
	MacroNeutral MacroBias = "NEUTRAL"
)

// Component point caps
const (
	capTrend    = 30.0
	capPullback = 25.0
	capRSI      = 15.0
	capADX      = 20.0
	capATRPct   = 10.0
	capMACD     = 10.0
	capSMA20    = 5.0
	macroSwing  = 8.0
)

// Inputs carries every factor the scorer weighs. All values are taken at the
// evaluation close; distances are pre-normalized to ATR units by the caller.
type Inputs struct {
	Direction domain.Direction
	Auto      bool // automated evaluation vs on-demand scan

	TrendSepATR float64 // |EMA55-EMA200| / ATR
	PullbackATR float64 // |close-EMA21| / ATR
	RSI         float64
	ADX         float64
	ADXFloor    float64 // ADX below this earns no trend-strength points
	ATRPct      float64 // ATR as % of close
	ATRPctMin   float64 // minimum-volatility threshold

	MACDHist []float64 // last three histogram values, oldest first
	SMA20    float64
	Close    float64

	Macro   MacroBias
	Compass indicators.CloudBias
}

// Result is the composite score with its per-factor breakdown
type Result struct {
	Total  float64
	Label  string
	Points map[string]float64
}

// Compute sums the weighted factor contributions and clamps to [0,100].
// The breakdown map records every contribution, including negative ones.
func Compute(in Inputs) Result {
	points := map[string]float64{}

	points["trend"] = math.Min(capTrend, math.Max(0, in.TrendSepATR*15.0))

	switch {
	case in.PullbackATR <= 0.6:
		points["pullback"] = capPullback
	case in.PullbackATR <= 1.0:
		points["pullback"] = 15.0
	default:
		points["pullback"] = 5.0
	}

	// RSI momentum relative to 50, direction-aware.
	momentum := in.RSI - 50.0
	if in.Direction == domain.DirectionShort {
		momentum = 50.0 - in.RSI
	}
	points["rsi"] = math.Min(capRSI, math.Max(0, momentum*0.75))

	points["adx"] = 0.0
	if in.ADX >= in.ADXFloor {
		points["adx"] = math.Min(capADX, math.Max(0, (in.ADX-10.0)*0.8))
	}

	ratio := 0.0
	if in.ATRPctMin > 0 {
		ratio = in.ATRPct / in.ATRPctMin
	}
	switch {
	case ratio >= 2.0:
		points["atr_pct"] = capATRPct
	case ratio >= 1.5:
		points["atr_pct"] = 7.0
	case ratio >= 1.0:
		points["atr_pct"] = 4.0
	default:
		points["atr_pct"] = 0.0
	}

	points["macd"] = macdPoints(in.Direction, in.MACDHist)

	if in.SMA20 > 0 && in.Close > 0 {
		onSide := in.Close > in.SMA20
		if in.Direction == domain.DirectionShort {
			onSide = in.Close < in.SMA20
		}
		if onSide {
			points["sma20"] = capSMA20
		} else {
			points["sma20"] = 0.0
		}
	}

	switch in.Macro {
	case MacroRiskOn:
		if in.Direction == domain.DirectionLong {
			points["macro"] = macroSwing
		} else {
			points["macro"] = -macroSwing
		}
	case MacroRiskOff:
		if in.Direction == domain.DirectionShort {
			points["macro"] = macroSwing
		} else {
			points["macro"] = -macroSwing
		}
	default:
		points["macro"] = 0.0
	}

	// Manual scans reach this point even with an unreadable compass; the
	// penalty replaces the hard block automated evaluation applies.
	if !in.Auto {
		switch in.Compass {
		case indicators.CloudBull:
			if in.Direction == domain.DirectionLong {
				points["compass"] = 4.0
			}
		case indicators.CloudBear:
			if in.Direction == domain.DirectionShort {
				points["compass"] = 4.0
			}
		case indicators.CloudNeutral, indicators.CloudUnknown:
			points["compass"] = -12.0
		}
	}

	total := 0.0
	for _, v := range points {
		total += v
	}
	total = math.Max(0, math.Min(100, total))

	return Result{Total: total, Label: Label(total), Points: points}
}

func macdPoints(dir domain.Direction, hist []float64) float64 {
	if len(hist) < 2 {
		return 0
	}
	last := hist[len(hist)-1]
	onSide := last > 0
	rising := risingRun(hist)
	if dir == domain.DirectionShort {
		onSide = last < 0
		rising = fallingRun(hist)
	}
	switch {
	case onSide && rising:
		return capMACD
	case onSide:
		return 6.0
	case rising:
		return 4.0
	default:
		return 0.0
	}
}

func risingRun(hist []float64) bool {
	for i := 1; i < len(hist); i++ {
		if hist[i] <= hist[i-1] {
			return false
		}
	}
	return len(hist) >= 2
}

func fallingRun(hist []float64) bool {
	for i := 1; i < len(hist); i++ {
		if hist[i] >= hist[i-1] {
			return false
		}
	}
	return len(hist) >= 2
}

// Label maps a composite score to its display label
func Label(score float64) string {
	switch {
	case score >= 90:
		return LabelElite
	case score >= 80:
		return LabelStrong
	case score >= 70:
		return LabelOK
	default:
		return LabelNoSignal
	}
}

// MacroFromBTC derives the macro bias from a BTC higher-timeframe close
// series: EMA50 above EMA200 reads risk-on, below reads risk-off. An
// unreadable proxy is neutral.
func MacroFromBTC(btcCloses []float64) MacroBias {
	fast, okF := indicators.EMA(btcCloses, 50)
	slow, okS := indicators.EMA(btcCloses, 200)
	if !okF || !okS {
		return MacroNeutral
	}
	switch {
	case fast > slow:
		return MacroRiskOn
	case fast < slow:
		return MacroRiskOff
	default:
		return MacroNeutral
	}
}
