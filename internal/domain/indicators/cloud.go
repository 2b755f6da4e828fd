package indicators

import (
	"math"

	"github.com/trendgate/trendgate/internal/domain"
)

// CloudBias is the directional reading of the displaced cloud filter
type CloudBias string

const (
	CloudBull    CloudBias = "BULL"
	CloudBear    CloudBias = "BEAR"
	CloudNeutral CloudBias = "NEUTRAL"
	CloudUnknown CloudBias = "UNKNOWN"
)

// Cloud parameters: conversion/base/span-B window lengths and the forward
// displacement applied to both leading bands.
const (
	cloudConversionPeriod = 9
	cloudBasePeriod       = 26
	cloudSpanBPeriod      = 52
	cloudDisplacement     = 26
)

func midpoint(candles []domain.Candle, end, period int) float64 {
	if end+1 < period {
		return math.NaN()
	}
	hi := math.Inf(-1)
	lo := math.Inf(1)
	for i := end - period + 1; i <= end; i++ {
		hi = math.Max(hi, candles[i].High)
		lo = math.Min(lo, candles[i].Low)
	}
	return (hi + lo) / 2
}

// CloudSnapshot holds the bands in effect at the latest close
type CloudSnapshot struct {
	LeadA float64
	LeadB float64
	Bias  CloudBias
}

// Cloud computes the displaced cloud at the latest close. The bands in effect
// now were built cloudDisplacement bars ago: leadA is the midpoint of the
// conversion and base lines, leadB the 52-bar high/low midpoint. Bias is BULL
// when price closed above both bands with leadA above leadB, BEAR in the
// mirrored case, NEUTRAL inside the cloud or with mixed band ordering, and
// UNKNOWN when the series is too short.
func Cloud(candles []domain.Candle) CloudSnapshot {
	n := len(candles)
	anchor := n - 1 - cloudDisplacement
	if anchor < cloudSpanBPeriod-1 {
		return CloudSnapshot{LeadA: math.NaN(), LeadB: math.NaN(), Bias: CloudUnknown}
	}

	conv := midpoint(candles, anchor, cloudConversionPeriod)
	base := midpoint(candles, anchor, cloudBasePeriod)
	leadA := (conv + base) / 2
	leadB := midpoint(candles, anchor, cloudSpanBPeriod)
	if math.IsNaN(leadA) || math.IsNaN(leadB) {
		return CloudSnapshot{LeadA: leadA, LeadB: leadB, Bias: CloudUnknown}
	}

	closePrice := candles[n-1].Close
	upper := math.Max(leadA, leadB)
	lower := math.Min(leadA, leadB)

	snap := CloudSnapshot{LeadA: leadA, LeadB: leadB, Bias: CloudNeutral}
	switch {
	case closePrice > upper && leadA > leadB:
		snap.Bias = CloudBull
	case closePrice < lower && leadA < leadB:
		snap.Bias = CloudBear
	}
	return snap
}
