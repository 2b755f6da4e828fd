package levels

import (
	"fmt"
	"math"

	"github.com/trendgate/trendgate/internal/domain"
)

// Take-profit ladders in R-multiples of the initial stop distance, by playbook
var tpMultipliers = map[domain.Playbook][3]float64{
	domain.PlaybookSwing:    {1.0, 1.5, 2.0},
	domain.PlaybookIntraday: {1.0, 1.4, 1.8},
}

// Build converts the evaluation close and ATR into the full price ladder.
// The entry zone is a band of width 2*atr*zoneMult around entryMid, the stop
// sits slMult ATRs away, and the take profits step out in R-multiples chosen
// by playbook. The returned levels always satisfy the ordering invariant for
// the direction.
func Build(entryMid, atr float64, dir domain.Direction, playbook domain.Playbook, zoneMult, slMult float64) (domain.Levels, error) {
	if entryMid <= 0 || atr <= 0 || math.IsNaN(entryMid) || math.IsNaN(atr) {
		return domain.Levels{}, fmt.Errorf("invalid level inputs: entry=%g atr=%g", entryMid, atr)
	}
	mults, ok := tpMultipliers[playbook]
	if !ok {
		return domain.Levels{}, fmt.Errorf("unknown playbook: %q", playbook)
	}

	half := atr * zoneMult
	r := atr * slMult

	l := domain.Levels{
		EntryMid:  entryMid,
		EntryLow:  entryMid - half,
		EntryHigh: entryMid + half,
	}
	switch dir {
	case domain.DirectionLong:
		l.SL = entryMid - r
		l.TP1 = entryMid + r*mults[0]
		l.TP2 = entryMid + r*mults[1]
		l.TP3 = entryMid + r*mults[2]
	case domain.DirectionShort:
		l.SL = entryMid + r
		l.TP1 = entryMid - r*mults[0]
		l.TP2 = entryMid - r*mults[1]
		l.TP3 = entryMid - r*mults[2]
	default:
		return domain.Levels{}, fmt.Errorf("unknown direction: %q", dir)
	}

	if err := l.Validate(dir); err != nil {
		return domain.Levels{}, err
	}
	return l, nil
}
