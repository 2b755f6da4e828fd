package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendgate/trendgate/internal/domain"
	"github.com/trendgate/trendgate/internal/domain/indicators"
)

func strongLongInputs() Inputs {
	return Inputs{
		Direction:   domain.DirectionLong,
		Auto:        true,
		TrendSepATR: 2.5,
		PullbackATR: 0.4,
		RSI:         62,
		ADX:         38,
		ADXFloor:    18,
		ATRPct:      0.9,
		ATRPctMin:   0.35,
		MACDHist:    []float64{0.1, 0.2, 0.3},
		SMA20:       98,
		Close:       100,
		Macro:       MacroRiskOn,
		Compass:     indicators.CloudBull,
	}
}

func TestCompute_StrongLongCapsAt100(t *testing.T) {
	res := Compute(strongLongInputs())

	assert.InDelta(t, 30, res.Points["trend"], 1e-9)
	assert.InDelta(t, 25, res.Points["pullback"], 1e-9)
	assert.InDelta(t, 9, res.Points["rsi"], 1e-9)
	assert.InDelta(t, 20, res.Points["adx"], 1e-9)
	assert.InDelta(t, 10, res.Points["atr_pct"], 1e-9)
	assert.InDelta(t, 10, res.Points["macd"], 1e-9)
	assert.InDelta(t, 5, res.Points["sma20"], 1e-9)
	assert.InDelta(t, 8, res.Points["macro"], 1e-9)

	assert.InDelta(t, 100, res.Total, 1e-9, "sum exceeds 100 and must clamp")
	assert.Equal(t, LabelElite, res.Label)
}

func TestCompute_MacroPenalizesCounterTrendSide(t *testing.T) {
	in := strongLongInputs()
	in.Direction = domain.DirectionShort
	res := Compute(in)
	assert.InDelta(t, -8, res.Points["macro"], 1e-9, "risk-on penalizes SHORT")
}

func TestCompute_CompassAdjustmentOnManualScans(t *testing.T) {
	in := strongLongInputs()
	in.Auto = false

	in.Compass = indicators.CloudBull
	assert.InDelta(t, 4, Compute(in).Points["compass"], 1e-9)

	in.Compass = indicators.CloudNeutral
	assert.InDelta(t, -12, Compute(in).Points["compass"], 1e-9)

	in.Compass = indicators.CloudUnknown
	assert.InDelta(t, -12, Compute(in).Points["compass"], 1e-9)
}

func TestCompute_NoCompassAdjustmentInAutoMode(t *testing.T) {
	in := strongLongInputs()
	in.Compass = indicators.CloudNeutral
	_, present := Compute(in).Points["compass"]
	assert.False(t, present, "auto mode hard-blocks on neutral compass instead of scoring it")
}

func TestCompute_ADXFloor(t *testing.T) {
	in := strongLongInputs()

	in.ADX = 17.9
	assert.InDelta(t, 0, Compute(in).Points["adx"], 1e-9, "below the floor earns nothing")

	in.ADX = 18
	assert.InDelta(t, 6.4, Compute(in).Points["adx"], 1e-9)

	// Without a floor the ramp applies from its own baseline.
	in.ADXFloor = 0
	in.ADX = 17.9
	assert.InDelta(t, 6.32, Compute(in).Points["adx"], 1e-9)
}

func TestCompute_BoundedForHostileInputs(t *testing.T) {
	tests := []Inputs{
		{},
		{Direction: domain.DirectionShort, RSI: 100, ADX: -50, TrendSepATR: -3},
		{Direction: domain.DirectionLong, TrendSepATR: 1e9, ADX: 1e9, RSI: 1e9, ATRPct: 1e9, ATRPctMin: 0.1},
		{Direction: domain.DirectionLong, Macro: MacroRiskOff, Compass: indicators.CloudUnknown},
	}
	for i, in := range tests {
		res := Compute(in)
		assert.GreaterOrEqual(t, res.Total, 0.0, "case %d", i)
		assert.LessOrEqual(t, res.Total, 100.0, "case %d", i)
	}
}

func TestCompute_PullbackTiers(t *testing.T) {
	in := Inputs{Direction: domain.DirectionLong}

	in.PullbackATR = 0.6
	assert.InDelta(t, 25, Compute(in).Points["pullback"], 1e-9)

	in.PullbackATR = 0.61
	assert.InDelta(t, 15, Compute(in).Points["pullback"], 1e-9)

	in.PullbackATR = 1.01
	assert.InDelta(t, 5, Compute(in).Points["pullback"], 1e-9)
}

func TestCompute_MACDTiers(t *testing.T) {
	in := Inputs{Direction: domain.DirectionLong}

	in.MACDHist = []float64{0.3, 0.2, 0.1} // on side, not rising
	assert.InDelta(t, 6, Compute(in).Points["macd"], 1e-9)

	in.MACDHist = []float64{-0.3, -0.2, -0.1} // rising toward the side
	assert.InDelta(t, 4, Compute(in).Points["macd"], 1e-9)

	in.MACDHist = []float64{-0.1, -0.2, -0.3} // neither
	assert.InDelta(t, 0, Compute(in).Points["macd"], 1e-9)

	in.MACDHist = nil
	assert.InDelta(t, 0, Compute(in).Points["macd"], 1e-9)
}

func TestLabelBoundaries(t *testing.T) {
	assert.Equal(t, LabelElite, Label(90))
	assert.Equal(t, LabelStrong, Label(89.9))
	assert.Equal(t, LabelStrong, Label(80))
	assert.Equal(t, LabelOK, Label(79.9))
	assert.Equal(t, LabelOK, Label(70))
	assert.Equal(t, LabelNoSignal, Label(69.9))
}

func TestMacroFromBTC(t *testing.T) {
	up := make([]float64, 250)
	down := make([]float64, 250)
	for i := range up {
		up[i] = 100 + float64(i)
		down[i] = 600 - float64(i)
	}

	assert.Equal(t, MacroRiskOn, MacroFromBTC(up))
	assert.Equal(t, MacroRiskOff, MacroFromBTC(down))
	assert.Equal(t, MacroNeutral, MacroFromBTC(up[:100]), "unready proxy is neutral")

	require.NotPanics(t, func() { MacroFromBTC(nil) })
	assert.Equal(t, MacroNeutral, MacroFromBTC(nil))
}
