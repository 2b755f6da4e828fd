package gates

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// lockedSLATRMult is the stop distance in ATR units. It is a locked constant:
// a thresholds file that tries to change it fails Validate at startup.
const lockedSLATRMult = 1.6

// Thresholds is the read-only tuning surface of the gate pipeline and scorer.
// Values load from YAML with built-in defaults as fallback.
type Thresholds struct {
	// ADXMin is the scorer's ADX floor: below it the trend-strength factor
	// contributes nothing to the composite score.
	ADXMin    float64 `yaml:"adx_min"`
	ATRPctMin float64 `yaml:"atr_pct_min"`

	ZoneATRMult float64 `yaml:"zone_atr_mult"`
	SLATRMult   float64 `yaml:"sl_atr_mult"`

	RSIBullMin float64 `yaml:"rsi_bull_min"`
	RSIBearMax float64 `yaml:"rsi_bear_max"`

	// HTF permission gate: max distance from the HTF close to its own EMA21,
	// in HTF ATR units.
	HTFMaxEMA21DistATR float64 `yaml:"htf_max_ema21_dist_atr"`

	// Chop/range filter (intraday only)
	ChopMinADX       float64 `yaml:"chop_min_adx"`
	ChopMinATRPct    float64 `yaml:"chop_min_atr_pct"`
	ChopMinEMASepATR float64 `yaml:"chop_min_ema_sep_atr"`

	// Regime reclaim: K consecutive on-side closes preceded by at least M
	// opposite-side closes. K is stricter for automated evaluation.
	ReclaimM     int `yaml:"reclaim_m"`
	ReclaimKAuto int `yaml:"reclaim_k_auto"`
	ReclaimKScan int `yaml:"reclaim_k_scan"`

	ExtendATRK        float64 `yaml:"extend_atr_k"`
	NoTradeEMA200ATRK float64 `yaml:"no_trade_ema200_atr_k"`

	// Pullback-quality cap: distance from close to EMA21 in ATR units.
	// Manual scans get a looser cap than automated signals.
	PullbackMaxATRAuto float64 `yaml:"pullback_max_atr_auto"`
	PullbackMaxATRScan float64 `yaml:"pullback_max_atr_scan"`

	// Minimum composite score to emit a signal at all, and the higher soft
	// minimums that override a reclaim soft fail.
	MinScore            float64 `yaml:"min_score"`
	CTASoftMinScoreAuto float64 `yaml:"cta_soft_min_score_auto"`
	CTASoftMinScoreScan float64 `yaml:"cta_soft_min_score_scan"`
}

// DefaultThresholds returns the built-in production configuration
func DefaultThresholds() Thresholds {
	return Thresholds{
		ADXMin:    18.0,
		ATRPctMin: 0.35,

		ZoneATRMult: 0.25,
		SLATRMult:   lockedSLATRMult,

		RSIBullMin: 50.0,
		RSIBearMax: 50.0,

		HTFMaxEMA21DistATR: 1.5,

		ChopMinADX:       16.0,
		ChopMinATRPct:    0.25,
		ChopMinEMASepATR: 0.25,

		ReclaimM:     2,
		ReclaimKAuto: 3,
		ReclaimKScan: 2,

		ExtendATRK:        2.5,
		NoTradeEMA200ATRK: 0.5,

		PullbackMaxATRAuto: 1.5,
		PullbackMaxATRScan: 2.2,

		MinScore:            70.0,
		CTASoftMinScoreAuto: 82.0,
		CTASoftMinScoreScan: 76.0,
	}
}

// LoadThresholds reads a YAML thresholds file, filling any zero field from
// the defaults, and validates the result. An empty path returns defaults.
func LoadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read thresholds: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse thresholds: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// Validate rejects configurations that must never reach the evaluator.
// Failures here are fatal at startup.
func (t Thresholds) Validate() error {
	if t.SLATRMult != lockedSLATRMult {
		return fmt.Errorf("sl_atr_mult is locked at %.1f, got %g", lockedSLATRMult, t.SLATRMult)
	}
	if t.ZoneATRMult <= 0 {
		return fmt.Errorf("zone_atr_mult must be positive, got %g", t.ZoneATRMult)
	}
	if t.ReclaimM < 1 || t.ReclaimKAuto < 1 || t.ReclaimKScan < 1 {
		return fmt.Errorf("reclaim windows must be at least 1 (m=%d k_auto=%d k_scan=%d)",
			t.ReclaimM, t.ReclaimKAuto, t.ReclaimKScan)
	}
	if t.MinScore <= 0 || t.MinScore > 100 {
		return fmt.Errorf("min_score must be in (0,100], got %g", t.MinScore)
	}
	if t.CTASoftMinScoreAuto < t.MinScore || t.CTASoftMinScoreScan < t.MinScore {
		return fmt.Errorf("soft minimum scores must not undercut min_score")
	}
	if t.PullbackMaxATRScan < t.PullbackMaxATRAuto {
		return fmt.Errorf("scan pullback cap must be at least the auto cap")
	}
	return nil
}

// ReclaimK returns the reclaim window for the evaluation mode
func (t Thresholds) ReclaimK(mode Mode) int {
	if mode == ModeAuto {
		return t.ReclaimKAuto
	}
	return t.ReclaimKScan
}

// PullbackMaxATR returns the pullback cap for the evaluation mode
func (t Thresholds) PullbackMaxATR(mode Mode) float64 {
	if mode == ModeAuto {
		return t.PullbackMaxATRAuto
	}
	return t.PullbackMaxATRScan
}

// SoftMinScore returns the soft-fail override threshold for the mode
func (t Thresholds) SoftMinScore(mode Mode) float64 {
	if mode == ModeAuto {
		return t.CTASoftMinScoreAuto
	}
	return t.CTASoftMinScoreScan
}
