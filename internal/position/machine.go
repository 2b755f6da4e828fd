package position

import (
	"math"
	"time"

	"github.com/trendgate/trendgate/internal/domain"
)

// Tick advances the position against one live price. It mutates the position
// and returns the lifecycle events emitted, in order. Terminal positions and
// non-finite inputs make the tick a no-op.
//
// Take profits are walked lowest first and TP3 closes the position before the
// stop is ever consulted for that tick; otherwise a crossed stop closes it.
func Tick(p *Position, price float64, now time.Time) []LifecycleEvent {
	if p == nil || p.Terminal() {
		return nil
	}
	if !finite(price) || !finiteLevels(p) {
		return nil
	}

	var events []LifecycleEvent
	emit := func(ev EventType) {
		events = append(events, LifecycleEvent{
			TS:          now,
			PositionID:  p.ID,
			Event:       ev,
			Price:       price,
			StatusAfter: p.Status,
		})
	}

	long := p.Direction == domain.DirectionLong
	reached := func(level float64) bool {
		if long {
			return price >= level
		}
		return price <= level
	}

	// Entry fill: price trading inside the entry zone.
	if p.Status == StatusPendingEntry && price >= p.Levels.EntryLow && price <= p.Levels.EntryHigh {
		t := now
		p.FilledAt = &t
		p.Status = StatusEntry
		emit(EventFilled)
	}

	if !p.HitTP1 && reached(p.Levels.TP1) {
		p.HitTP1 = true
		p.SLCurrent = p.Levels.EntryMid
		p.SLMode = SLBE
		p.Status = StatusRunning
		emit(EventTP1)
	}
	if !p.HitTP2 && reached(p.Levels.TP2) {
		p.HitTP2 = true
		p.SLMode = SLTrail
		emit(EventTP2)
	}
	if !p.HitTP3 && reached(p.Levels.TP3) {
		p.HitTP3 = true
		p.close(OutcomeProfitFull, now)
		emit(EventTP3)
		return events
	}

	// Stop check: price through the active stop against the trade.
	stopped := price <= p.SLCurrent
	if !long {
		stopped = price >= p.SLCurrent
	}
	if stopped {
		switch {
		case p.HitTP2:
			p.close(OutcomeStopLossAfterTP2, now)
		case p.HitTP1:
			p.close(OutcomeStopLossAfterTP1, now)
		default:
			p.close(OutcomeStopLoss, now)
		}
		emit(EventSL)
	}
	return events
}

// CheckExpiry expires a position whose entry fill never arrived before its
// TTL. Returns the emitted event or nil.
func CheckExpiry(p *Position, now time.Time) *LifecycleEvent {
	if p == nil || p.Terminal() || p.Filled() {
		return nil
	}
	if now.Before(p.ExpiresAt) {
		return nil
	}
	p.Status = StatusExpired
	return &LifecycleEvent{
		TS:          now,
		PositionID:  p.ID,
		Event:       EventExpired,
		StatusAfter: StatusExpired,
	}
}

func (p *Position) close(outcome CloseOutcome, now time.Time) {
	t := now
	p.Status = StatusClosed
	p.CloseOutcome = outcome
	p.ClosedAt = &t
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteLevels(p *Position) bool {
	l := p.Levels
	for _, v := range []float64{l.EntryLow, l.EntryHigh, l.EntryMid, l.SL, l.TP1, l.TP2, l.TP3, p.SLCurrent} {
		if !finite(v) {
			return false
		}
	}
	return true
}
