package position

import (
	"time"

	"github.com/google/uuid"

	"github.com/trendgate/trendgate/internal/domain"
)

// Status is the lifecycle state of a position. Transitions are monotonic:
// once CLOSED or EXPIRED, nothing mutates the position again.
type Status string

const (
	StatusPendingEntry Status = "PENDING_ENTRY"
	StatusEntry        Status = "ENTRY"
	StatusRunning      Status = "RUNNING"
	StatusClosed       Status = "CLOSED"
	StatusExpired      Status = "EXPIRED"
)

// SLMode tracks how the active stop is managed
type SLMode string

const (
	SLInitial SLMode = "INITIAL"
	SLBE      SLMode = "BE"
	SLTrail   SLMode = "TRAIL"
)

// CloseOutcome records why a closed position closed
type CloseOutcome string

const (
	OutcomeStopLoss         CloseOutcome = "STOP_LOSS"
	OutcomeStopLossAfterTP1 CloseOutcome = "STOP_LOSS_AFTER_TP1"
	OutcomeStopLossAfterTP2 CloseOutcome = "STOP_LOSS_AFTER_TP2"
	OutcomeProfitFull       CloseOutcome = "PROFIT_FULL"
)

// EventType identifies one lifecycle transition
type EventType string

const (
	EventFilled  EventType = "FILLED"
	EventTP1     EventType = "TP1"
	EventTP2     EventType = "TP2"
	EventTP3     EventType = "TP3"
	EventSL      EventType = "SL"
	EventExpired EventType = "EXPIRED"
)

// LifecycleEvent is an append-only record written once per transition
type LifecycleEvent struct {
	TS          time.Time `json:"ts" db:"ts"`
	PositionID  string    `json:"position_id" db:"position_id"`
	Event       EventType `json:"event" db:"event"`
	Price       float64   `json:"price" db:"price"`
	StatusAfter Status    `json:"status_after" db:"status_after"`
}

// Position is created from exactly one signal and mutated exclusively by the
// Tracker in response to price ticks or TTL checks. It is never deleted, only
// marked terminal.
type Position struct {
	ID        string           `json:"id" db:"id"`
	SignalID  string           `json:"signal_id" db:"signal_id"`
	Symbol    string           `json:"symbol" db:"symbol"`
	Timeframe domain.Timeframe `json:"timeframe" db:"timeframe"`
	Direction domain.Direction `json:"direction" db:"direction"`
	Status    Status           `json:"status" db:"status"`

	Levels    domain.Levels `json:"levels"`
	SLCurrent float64       `json:"sl_current" db:"sl_current"`
	SLMode    SLMode        `json:"sl_mode" db:"sl_mode"`

	HitTP1 bool `json:"hit_tp1" db:"hit_tp1"`
	HitTP2 bool `json:"hit_tp2" db:"hit_tp2"`
	HitTP3 bool `json:"hit_tp3" db:"hit_tp3"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	FilledAt  *time.Time `json:"filled_at,omitempty" db:"filled_at"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty" db:"closed_at"`

	CloseOutcome CloseOutcome `json:"close_outcome,omitempty" db:"close_outcome"`
}

// FromSignal creates a pending position from an accepted signal. The entry
// TTL depends on the signal timeframe.
func FromSignal(sig *domain.Signal, now time.Time) *Position {
	return &Position{
		ID:        uuid.NewString(),
		SignalID:  sig.ID,
		Symbol:    sig.Symbol,
		Timeframe: sig.Timeframe,
		Direction: sig.Direction,
		Status:    StatusPendingEntry,
		Levels:    sig.Levels,
		SLCurrent: sig.Levels.SL,
		SLMode:    SLInitial,
		CreatedAt: now,
		ExpiresAt: now.Add(sig.Timeframe.EntryTTL()),
	}
}

// Terminal reports whether the position reached a final state
func (p *Position) Terminal() bool {
	return p.Status == StatusClosed || p.Status == StatusExpired
}

// Filled reports whether an entry fill was ever recorded
func (p *Position) Filled() bool {
	return p.FilledAt != nil
}
