package gates

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/trendgate/trendgate/internal/domain"
	"github.com/trendgate/trendgate/internal/domain/indicators"
	"github.com/trendgate/trendgate/internal/levels"
	"github.com/trendgate/trendgate/internal/regime"
	"github.com/trendgate/trendgate/internal/scoring"
)

// Mode selects automated evaluation (stricter) or an on-demand scan
type Mode string

const (
	ModeAuto Mode = "AUTO"
	ModeScan Mode = "SCAN"
)

// CandleProvider supplies ordered, de-duplicated candle series
type CandleProvider interface {
	GetCandles(ctx context.Context, symbol string, tf domain.Timeframe) ([]domain.Candle, error)
}

// minCandles is required on the evaluation timeframe and on the higher
// timeframe before any gate runs.
const minCandles = 220

const (
	emaPullback = 21
	emaFast     = 55
	emaSlow     = 200
	sma20Period = 20
	rsiPeriod   = 14
	atrPeriod   = 14
	adxPeriod   = 14

	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	macdBars   = 3
)

// Pipeline evaluates (symbol, timeframe) candidates through the fixed gate
// sequence. It is pure with respect to its inputs and safe for concurrent use
// across candidates.
type Pipeline struct {
	candles     CandleProvider
	thresholds  Thresholds
	htf         domain.Timeframe
	macroSymbol string
}

// NewPipeline validates the thresholds and wires the evaluator. Threshold
// validation failures are fatal: nothing may evaluate against a tampered
// configuration.
func NewPipeline(candles CandleProvider, t Thresholds) (*Pipeline, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		candles:     candles,
		thresholds:  t,
		htf:         domain.SwingTimeframe,
		macroSymbol: "BTCUSDT",
	}, nil
}

// Thresholds exposes the active configuration
func (p *Pipeline) Thresholds() Thresholds { return p.thresholds }

// Evaluate runs the full gate sequence. On acceptance it returns the signal
// and a passing result; on rejection the signal is nil and the result carries
// the stage and reason. Provider failures surface as NotReady, never as a
// panic or error.
func (p *Pipeline) Evaluate(ctx context.Context, symbol string, tf domain.Timeframe, mode Mode) (*domain.Signal, Result) {
	// Gate 1: data sufficiency.
	candles, err := p.candles.GetCandles(ctx, symbol, tf)
	if err != nil {
		return nil, NotReady("data", "candles_unavailable")
	}
	htfCandles := candles
	if tf != p.htf {
		htfCandles, err = p.candles.GetCandles(ctx, symbol, p.htf)
		if err != nil {
			return nil, NotReady("data", "htf_candles_unavailable")
		}
	}
	if len(candles) < minCandles || len(htfCandles) < minCandles {
		return nil, NotReady("data", "insufficient_candles")
	}
	if !domain.SortedUnique(candles) || !domain.SortedUnique(htfCandles) {
		return nil, NotReady("data", "series_not_ordered")
	}

	closes := domain.Closes(candles)
	closePrice := closes[len(closes)-1]

	// Gate 2: trend direction from the EMA55/EMA200 stack.
	ema55, ok55 := indicators.EMA(closes, emaFast)
	ema200, ok200 := indicators.EMA(closes, emaSlow)
	if !ok55 || !ok200 {
		return nil, NotReady("trend", "ema_not_ready")
	}
	var dir domain.Direction
	switch {
	case ema55 > ema200:
		dir = domain.DirectionLong
	case ema55 < ema200:
		dir = domain.DirectionShort
	default:
		return nil, HardBlock("trend", "no_direction")
	}

	atr, okATR := indicators.ATR(candles, atrPeriod)
	if !okATR || atr <= 0 {
		return nil, NotReady("trend", "atr_not_ready")
	}

	// Gate 3: higher-timeframe regime.
	verdict := regime.Assess(htfCandles, regime.Config{
		NoTradeATRK: p.thresholds.NoTradeEMA200ATRK,
		ExtendATRK:  p.thresholds.ExtendATRK,
		ReclaimM:    p.thresholds.ReclaimM,
		ReclaimK:    p.thresholds.ReclaimK(mode),
	})
	var softFails []Result
	switch verdict.Status {
	case regime.StatusNotReady:
		return nil, NotReady("regime", "htf_not_ready")
	case regime.StatusNoTrade:
		return nil, HardBlock("regime", "no_trade_zone")
	case regime.StatusNone:
		return nil, HardBlock("regime", "no_regime")
	}
	if verdict.Direction != dir {
		return nil, HardBlock("regime", "regime_direction_mismatch")
	}
	if verdict.Extended {
		return nil, HardBlock("regime", "too_extended")
	}
	if !verdict.ReclaimOK {
		softFails = append(softFails, SoftFail("regime", "no_reclaim"))
	}
	if !verdict.SetupOK {
		softFails = append(softFails, SoftFail("regime", "no_setup"))
	}

	// Gate 4: higher-timeframe permission for intraday candidates. The
	// regime checks above already ran on the higher timeframe; this adds the
	// distance cap to the HTF EMA21.
	if tf.IsIntraday() {
		if verdict.CloseEMA21DistATR > p.thresholds.HTFMaxEMA21DistATR {
			return nil, HardBlock("htf_permission", "htf_overextended")
		}
	}

	adxRes, okADX := indicators.ADX(candles, adxPeriod)
	if !okADX {
		return nil, NotReady("chop", "adx_not_ready")
	}
	atrPct := atr / closePrice * 100.0
	ema21Series := indicators.EMASeries(closes, emaPullback)
	ema21 := ema21Series[len(ema21Series)-1]
	if math.IsNaN(ema21) {
		return nil, NotReady("chop", "ema21_not_ready")
	}

	// Gate 5: chop/range filter, intraday only.
	if tf.IsIntraday() {
		if adxRes.ADX < p.thresholds.ChopMinADX {
			return nil, HardBlock("chop", "adx_low")
		}
		if atrPct < p.thresholds.ChopMinATRPct {
			return nil, HardBlock("chop", "atr_pct_low")
		}
		ema55Series := indicators.EMASeries(closes, emaFast)
		sep := math.Abs(ema21-ema55Series[len(ema55Series)-1]) / atr
		if sep < p.thresholds.ChopMinEMASepATR {
			return nil, HardBlock("chop", "ema_sep_low")
		}
	}

	// Gate 6: directional compass on the higher timeframe.
	cloud := indicators.Cloud(htfCandles)
	switch cloud.Bias {
	case indicators.CloudBull:
		if dir == domain.DirectionShort {
			return nil, HardBlock("compass", "compass_disagrees")
		}
	case indicators.CloudBear:
		if dir == domain.DirectionLong {
			return nil, HardBlock("compass", "compass_disagrees")
		}
	default:
		if mode == ModeAuto {
			return nil, HardBlock("compass", "compass_neutral")
		}
		// Manual scans take a scoring penalty instead.
	}

	rsiSeries := indicators.RSISeries(closes, rsiPeriod)
	rsiNow := rsiSeries[len(rsiSeries)-1]
	rsiPrev := rsiSeries[len(rsiSeries)-2]
	if math.IsNaN(rsiNow) || math.IsNaN(rsiPrev) {
		return nil, NotReady("trigger", "rsi_not_ready")
	}

	// Gate 7: trigger confirmation, intraday only. The latest close must have
	// reclaimed EMA21 in the candidate direction with RSI turning the same
	// way; re-checked on every new close.
	if tf.IsIntraday() {
		if !p.triggerConfirmed(candles, ema21Series, rsiNow, rsiPrev, dir) {
			return nil, SoftFail("trigger", "not_confirmed_yet")
		}
	}

	// Gate 8: pullback quality.
	pullbackATR := math.Abs(closePrice-ema21) / atr
	if pullbackATR > p.thresholds.PullbackMaxATR(mode) {
		return nil, HardBlock("pullback", "too_far_from_ema21")
	}

	// Gate 9: minimum composite score.
	hist, _ := indicators.MACDHist(closes, macdFast, macdSlow, macdSignal, macdBars)
	sma20, _ := indicators.SMA(closes, sma20Period)
	score := scoring.Compute(scoring.Inputs{
		Direction:   dir,
		Auto:        mode == ModeAuto,
		TrendSepATR: math.Abs(ema55-ema200) / atr,
		PullbackATR: pullbackATR,
		RSI:         rsiNow,
		ADX:         adxRes.ADX,
		ADXFloor:    p.thresholds.ADXMin,
		ATRPct:      atrPct,
		ATRPctMin:   p.thresholds.ATRPctMin,
		MACDHist:    hist,
		SMA20:       sma20,
		Close:       closePrice,
		Macro:       p.macroBias(ctx),
		Compass:     cloud.Bias,
	})
	if score.Total < p.thresholds.MinScore {
		return nil, HardBlock("score", "below_min_score")
	}

	// Gate 10: MACD confirmation, automated signals only.
	if mode == ModeAuto && !macdConfirmed(dir, hist) {
		return nil, HardBlock("macd_confirm", "macd_not_confirmed")
	}

	// Soft-fail override: a high enough composite score lets reclaim/setup
	// soft fails through; otherwise the first soft fail rejects.
	if len(softFails) > 0 {
		if score.Total < p.thresholds.SoftMinScore(mode) {
			return nil, softFails[0]
		}
		log.Debug().
			Str("symbol", symbol).
			Str("timeframe", string(tf)).
			Float64("score", score.Total).
			Str("overridden", softFails[0].Reason).
			Msg("soft fail overridden by score")
	}

	playbook := domain.PlaybookFor(tf)
	lv, err := levels.Build(closePrice, atr, dir, playbook, p.thresholds.ZoneATRMult, p.thresholds.SLATRMult)
	if err != nil {
		return nil, HardBlock("levels", "invalid_levels")
	}

	sig := &domain.Signal{
		ID:              uuid.NewString(),
		Symbol:          symbol,
		Timeframe:       tf,
		Direction:       dir,
		Playbook:        playbook,
		Score:           score.Total,
		ScoreLabel:      score.Label,
		Levels:          lv,
		Points:          score.Points,
		CandleCloseTime: candles[len(candles)-1].CloseTime,
		CreatedAt:       time.Now().UTC(),
	}
	return sig, Pass("pipeline")
}

// triggerConfirmed checks the entry trigger on the evaluation timeframe: a
// fresh close back across EMA21 in the trade direction with RSI turning the
// same way and clear of its directional floor.
func (p *Pipeline) triggerConfirmed(candles []domain.Candle, ema21 []float64, rsiNow, rsiPrev float64, dir domain.Direction) bool {
	n := len(candles)
	curEMA := ema21[n-1]
	prevEMA := ema21[n-2]
	if math.IsNaN(curEMA) || math.IsNaN(prevEMA) {
		return false
	}
	if dir == domain.DirectionLong {
		reclaimed := candles[n-1].Close > curEMA && candles[n-2].Close <= prevEMA
		return reclaimed && rsiNow > rsiPrev && rsiNow >= p.thresholds.RSIBullMin
	}
	reclaimed := candles[n-1].Close < curEMA && candles[n-2].Close >= prevEMA
	return reclaimed && rsiNow < rsiPrev && rsiNow <= p.thresholds.RSIBearMax
}

// macdConfirmed requires the histogram to already sit on the candidate's side
// or to have moved that way for three consecutive bars.
func macdConfirmed(dir domain.Direction, hist []float64) bool {
	if len(hist) < macdBars {
		return false
	}
	last := hist[len(hist)-1]
	if dir == domain.DirectionLong {
		return last > 0 || (hist[2] > hist[1] && hist[1] > hist[0])
	}
	return last < 0 || (hist[2] < hist[1] && hist[1] < hist[0])
}

// macroBias reads the BTC trend proxy on the higher timeframe. An unavailable
// proxy is neutral rather than an error.
func (p *Pipeline) macroBias(ctx context.Context) scoring.MacroBias {
	btc, err := p.candles.GetCandles(ctx, p.macroSymbol, p.htf)
	if err != nil {
		return scoring.MacroNeutral
	}
	return scoring.MacroFromBTC(domain.Closes(btc))
}
