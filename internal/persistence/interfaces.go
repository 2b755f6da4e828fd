// Package persistence defines the repository interfaces for signals,
// positions and lifecycle events. Implementations live in subpackages; the
// in-memory one here backs tests and DB-less runs.
package persistence

import (
	"context"

	"github.com/trendgate/trendgate/internal/domain"
	"github.com/trendgate/trendgate/internal/position"
)

// SignalRepo stores emitted signals. Signals are immutable: insert-only.
type SignalRepo interface {
	// Insert persists a new signal. Duplicate IDs are an error.
	Insert(ctx context.Context, sig *domain.Signal) error

	// ListRecent returns the newest signals first, at most limit.
	ListRecent(ctx context.Context, limit int) ([]domain.Signal, error)
}

// PositionRepo stores positions across their lifecycle. Positions are never
// deleted; terminal ones stay for outcome review.
type PositionRepo interface {
	Insert(ctx context.Context, p *position.Position) error

	// Update overwrites the stored row for p.ID. Unknown IDs are an error.
	Update(ctx context.Context, p *position.Position) error

	Get(ctx context.Context, id string) (*position.Position, error)

	// ListOpen returns every non-terminal position.
	ListOpen(ctx context.Context) ([]*position.Position, error)
}

// EventRepo is the append-only lifecycle event log
type EventRepo interface {
	Append(ctx context.Context, ev position.LifecycleEvent) error

	// ListByPosition returns the events for one position in append order.
	ListByPosition(ctx context.Context, positionID string) ([]position.LifecycleEvent, error)
}

// Store bundles the three repositories behind one composition-root handle
type Store struct {
	Signals   SignalRepo
	Positions PositionRepo
	Events    EventRepo
}
