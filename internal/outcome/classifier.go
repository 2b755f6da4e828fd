// Package outcome derives WIN/LOSS/EXPIRED verdicts from trade histories.
//
// Two independent derivations exist: one reads the live position snapshot,
// the other replays the append-only lifecycle event log. They must agree for
// every reachable history; the equivalence test in this package enforces that.
package outcome

import "github.com/trendgate/trendgate/internal/position"

// Verdict is the reporting classification of a finished trade. Unresolved
// (still open or pending) histories yield the empty verdict.
type Verdict string

const (
	Win        Verdict = "WIN"
	Loss       Verdict = "LOSS"
	Expired    Verdict = "EXPIRED"
	Unresolved Verdict = ""
)

// FromPosition classifies from the live position snapshot. A stopped-out
// position that secured at least one take profit first still counts as a WIN.
func FromPosition(p *position.Position) Verdict {
	if p == nil {
		return Unresolved
	}
	switch p.Status {
	case position.StatusExpired:
		return Expired
	case position.StatusClosed:
		if p.HitTP1 || p.HitTP2 || p.HitTP3 {
			return Win
		}
		return Loss
	default:
		return Unresolved
	}
}

// FromEvents classifies by replaying the lifecycle event log, without
// consulting the position object.
func FromEvents(events []position.LifecycleEvent) Verdict {
	closed := false
	tpHit := false
	for _, ev := range events {
		switch ev.Event {
		case position.EventExpired:
			return Expired
		case position.EventTP1, position.EventTP2:
			tpHit = true
		case position.EventTP3:
			tpHit = true
			closed = true
		case position.EventSL:
			closed = true
		}
	}
	if !closed {
		return Unresolved
	}
	if tpHit {
		return Win
	}
	return Loss
}
