package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trendgate/trendgate/internal/domain"
	"github.com/trendgate/trendgate/internal/persistence"
	"github.com/trendgate/trendgate/internal/position"
)

type positionRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPositionRepo creates a PostgreSQL position repository
func NewPositionRepo(db *sqlx.DB, timeout time.Duration) persistence.PositionRepo {
	return &positionRepo{db: db, timeout: timeout}
}

type positionRow struct {
	ID           string     `db:"id"`
	SignalID     string     `db:"signal_id"`
	Symbol       string     `db:"symbol"`
	Timeframe    string     `db:"timeframe"`
	Direction    string     `db:"direction"`
	Status       string     `db:"status"`
	EntryLow     float64    `db:"entry_low"`
	EntryHigh    float64    `db:"entry_high"`
	EntryMid     float64    `db:"entry_mid"`
	SL           float64    `db:"sl"`
	TP1          float64    `db:"tp1"`
	TP2          float64    `db:"tp2"`
	TP3          float64    `db:"tp3"`
	SLCurrent    float64    `db:"sl_current"`
	SLMode       string     `db:"sl_mode"`
	HitTP1       bool       `db:"hit_tp1"`
	HitTP2       bool       `db:"hit_tp2"`
	HitTP3       bool       `db:"hit_tp3"`
	CreatedAt    time.Time  `db:"created_at"`
	FilledAt     *time.Time `db:"filled_at"`
	ExpiresAt    time.Time  `db:"expires_at"`
	ClosedAt     *time.Time `db:"closed_at"`
	CloseOutcome string     `db:"close_outcome"`
}

func toRow(p *position.Position) positionRow {
	return positionRow{
		ID:           p.ID,
		SignalID:     p.SignalID,
		Symbol:       p.Symbol,
		Timeframe:    string(p.Timeframe),
		Direction:    string(p.Direction),
		Status:       string(p.Status),
		EntryLow:     p.Levels.EntryLow,
		EntryHigh:    p.Levels.EntryHigh,
		EntryMid:     p.Levels.EntryMid,
		SL:           p.Levels.SL,
		TP1:          p.Levels.TP1,
		TP2:          p.Levels.TP2,
		TP3:          p.Levels.TP3,
		SLCurrent:    p.SLCurrent,
		SLMode:       string(p.SLMode),
		HitTP1:       p.HitTP1,
		HitTP2:       p.HitTP2,
		HitTP3:       p.HitTP3,
		CreatedAt:    p.CreatedAt,
		FilledAt:     p.FilledAt,
		ExpiresAt:    p.ExpiresAt,
		ClosedAt:     p.ClosedAt,
		CloseOutcome: string(p.CloseOutcome),
	}
}

func (row positionRow) toDomain() *position.Position {
	return &position.Position{
		ID:        row.ID,
		SignalID:  row.SignalID,
		Symbol:    row.Symbol,
		Timeframe: domain.Timeframe(row.Timeframe),
		Direction: domain.Direction(row.Direction),
		Status:    position.Status(row.Status),
		Levels: domain.Levels{
			EntryLow:  row.EntryLow,
			EntryHigh: row.EntryHigh,
			EntryMid:  row.EntryMid,
			SL:        row.SL,
			TP1:       row.TP1,
			TP2:       row.TP2,
			TP3:       row.TP3,
		},
		SLCurrent:    row.SLCurrent,
		SLMode:       position.SLMode(row.SLMode),
		HitTP1:       row.HitTP1,
		HitTP2:       row.HitTP2,
		HitTP3:       row.HitTP3,
		CreatedAt:    row.CreatedAt,
		FilledAt:     row.FilledAt,
		ExpiresAt:    row.ExpiresAt,
		ClosedAt:     row.ClosedAt,
		CloseOutcome: position.CloseOutcome(row.CloseOutcome),
	}
}

const positionColumns = `
	id, signal_id, symbol, timeframe, direction, status,
	entry_low, entry_high, entry_mid, sl, tp1, tp2, tp3,
	sl_current, sl_mode, hit_tp1, hit_tp2, hit_tp3,
	created_at, filled_at, expires_at, closed_at, close_outcome`

func (r *positionRepo) Insert(ctx context.Context, p *position.Position) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO positions (` + positionColumns + `)
		VALUES (:id, :signal_id, :symbol, :timeframe, :direction, :status,
		        :entry_low, :entry_high, :entry_mid, :sl, :tp1, :tp2, :tp3,
		        :sl_current, :sl_mode, :hit_tp1, :hit_tp2, :hit_tp3,
		        :created_at, :filled_at, :expires_at, :closed_at, :close_outcome)`

	_, err := r.db.NamedExecContext(ctx, query, toRow(p))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate position id %s: %w", p.ID, err)
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

func (r *positionRepo) Update(ctx context.Context, p *position.Position) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE positions SET
			status = :status, sl_current = :sl_current, sl_mode = :sl_mode,
			hit_tp1 = :hit_tp1, hit_tp2 = :hit_tp2, hit_tp3 = :hit_tp3,
			filled_at = :filled_at, closed_at = :closed_at,
			close_outcome = :close_outcome
		WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, query, toRow(p))
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("unknown position id %s", p.ID)
	}
	return nil
}

func (r *positionRepo) Get(ctx context.Context, id string) (*position.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row positionRow
	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, fmt.Errorf("get position %s: %w", id, err)
	}
	return row.toDomain(), nil
}

func (r *positionRepo) ListOpen(ctx context.Context) ([]*position.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status NOT IN ($1, $2)
		ORDER BY created_at`

	rows, err := r.db.QueryxContext(ctx, query, position.StatusClosed, position.StatusExpired)
	if err != nil {
		return nil, fmt.Errorf("query open positions: %w", err)
	}
	defer rows.Close()

	var out []*position.Position
	for rows.Next() {
		var row positionRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		out = append(out, row.toDomain())
	}
	return out, rows.Err()
}
