package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trendgate/trendgate/internal/domain"
	"github.com/trendgate/trendgate/internal/persistence"
)

type signalRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSignalRepo creates a PostgreSQL signal repository
func NewSignalRepo(db *sqlx.DB, timeout time.Duration) persistence.SignalRepo {
	return &signalRepo{db: db, timeout: timeout}
}

func (r *signalRepo) Insert(ctx context.Context, sig *domain.Signal) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	pointsJSON, err := json.Marshal(sig.Points)
	if err != nil {
		return fmt.Errorf("marshal points: %w", err)
	}

	query := `
		INSERT INTO signals (
			id, symbol, timeframe, direction, playbook, score, score_label,
			entry_low, entry_high, entry_mid, sl, tp1, tp2, tp3,
			points, candle_close_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = r.db.ExecContext(ctx, query,
		sig.ID, sig.Symbol, sig.Timeframe, sig.Direction, sig.Playbook,
		sig.Score, sig.ScoreLabel,
		sig.Levels.EntryLow, sig.Levels.EntryHigh, sig.Levels.EntryMid,
		sig.Levels.SL, sig.Levels.TP1, sig.Levels.TP2, sig.Levels.TP3,
		pointsJSON, sig.CandleCloseTime, sig.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate signal id %s: %w", sig.ID, err)
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

type signalRow struct {
	ID              string    `db:"id"`
	Symbol          string    `db:"symbol"`
	Timeframe       string    `db:"timeframe"`
	Direction       string    `db:"direction"`
	Playbook        string    `db:"playbook"`
	Score           float64   `db:"score"`
	ScoreLabel      string    `db:"score_label"`
	EntryLow        float64   `db:"entry_low"`
	EntryHigh       float64   `db:"entry_high"`
	EntryMid        float64   `db:"entry_mid"`
	SL              float64   `db:"sl"`
	TP1             float64   `db:"tp1"`
	TP2             float64   `db:"tp2"`
	TP3             float64   `db:"tp3"`
	Points          []byte    `db:"points"`
	CandleCloseTime time.Time `db:"candle_close_time"`
	CreatedAt       time.Time `db:"created_at"`
}

func (row signalRow) toDomain() (domain.Signal, error) {
	sig := domain.Signal{
		ID:         row.ID,
		Symbol:     row.Symbol,
		Timeframe:  domain.Timeframe(row.Timeframe),
		Direction:  domain.Direction(row.Direction),
		Playbook:   domain.Playbook(row.Playbook),
		Score:      row.Score,
		ScoreLabel: row.ScoreLabel,
		Levels: domain.Levels{
			EntryLow:  row.EntryLow,
			EntryHigh: row.EntryHigh,
			EntryMid:  row.EntryMid,
			SL:        row.SL,
			TP1:       row.TP1,
			TP2:       row.TP2,
			TP3:       row.TP3,
		},
		CandleCloseTime: row.CandleCloseTime,
		CreatedAt:       row.CreatedAt,
	}
	if len(row.Points) > 0 {
		if err := json.Unmarshal(row.Points, &sig.Points); err != nil {
			return domain.Signal{}, fmt.Errorf("decode points for %s: %w", row.ID, err)
		}
	}
	return sig, nil
}

func (r *signalRepo) ListRecent(ctx context.Context, limit int) ([]domain.Signal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, symbol, timeframe, direction, playbook, score, score_label,
		       entry_low, entry_high, entry_mid, sl, tp1, tp2, tp3,
		       points, candle_close_time, created_at
		FROM signals
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []domain.Signal
	for rows.Next() {
		var row signalRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}
