package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trendgate/trendgate/internal/persistence"
	"github.com/trendgate/trendgate/internal/position"
)

type eventRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewEventRepo creates a PostgreSQL lifecycle event repository
func NewEventRepo(db *sqlx.DB, timeout time.Duration) persistence.EventRepo {
	return &eventRepo{db: db, timeout: timeout}
}

func (r *eventRepo) Append(ctx context.Context, ev position.LifecycleEvent) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO position_events (ts, position_id, event, price, status_after)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		ev.TS, ev.PositionID, ev.Event, ev.Price, ev.StatusAfter)
	if err != nil {
		return fmt.Errorf("append event %s for %s: %w", ev.Event, ev.PositionID, err)
	}
	return nil
}

func (r *eventRepo) ListByPosition(ctx context.Context, positionID string) ([]position.LifecycleEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ts, position_id, event, price, status_after
		FROM position_events
		WHERE position_id = $1
		ORDER BY seq`

	var out []position.LifecycleEvent
	if err := r.db.SelectContext(ctx, &out, query, positionID); err != nil {
		return nil, fmt.Errorf("query events for %s: %w", positionID, err)
	}
	return out, nil
}
