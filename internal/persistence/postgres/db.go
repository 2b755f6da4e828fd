// Package postgres implements the persistence repositories on PostgreSQL
// via sqlx. Schema setup is idempotent and applied at connect time.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/trendgate/trendgate/internal/persistence"
)

const defaultTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS signals (
    id                TEXT PRIMARY KEY,
    symbol            TEXT NOT NULL,
    timeframe         TEXT NOT NULL,
    direction         TEXT NOT NULL,
    playbook          TEXT NOT NULL,
    score             DOUBLE PRECISION NOT NULL,
    score_label       TEXT NOT NULL,
    entry_low         DOUBLE PRECISION NOT NULL,
    entry_high        DOUBLE PRECISION NOT NULL,
    entry_mid         DOUBLE PRECISION NOT NULL,
    sl                DOUBLE PRECISION NOT NULL,
    tp1               DOUBLE PRECISION NOT NULL,
    tp2               DOUBLE PRECISION NOT NULL,
    tp3               DOUBLE PRECISION NOT NULL,
    points            JSONB NOT NULL DEFAULT '{}',
    candle_close_time TIMESTAMPTZ NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_symbol_created ON signals (symbol, created_at DESC);

CREATE TABLE IF NOT EXISTS positions (
    id            TEXT PRIMARY KEY,
    signal_id     TEXT NOT NULL REFERENCES signals (id),
    symbol        TEXT NOT NULL,
    timeframe     TEXT NOT NULL,
    direction     TEXT NOT NULL,
    status        TEXT NOT NULL,
    entry_low     DOUBLE PRECISION NOT NULL,
    entry_high    DOUBLE PRECISION NOT NULL,
    entry_mid     DOUBLE PRECISION NOT NULL,
    sl            DOUBLE PRECISION NOT NULL,
    tp1           DOUBLE PRECISION NOT NULL,
    tp2           DOUBLE PRECISION NOT NULL,
    tp3           DOUBLE PRECISION NOT NULL,
    sl_current    DOUBLE PRECISION NOT NULL,
    sl_mode       TEXT NOT NULL,
    hit_tp1       BOOLEAN NOT NULL DEFAULT FALSE,
    hit_tp2       BOOLEAN NOT NULL DEFAULT FALSE,
    hit_tp3       BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL,
    filled_at     TIMESTAMPTZ,
    expires_at    TIMESTAMPTZ NOT NULL,
    closed_at     TIMESTAMPTZ,
    close_outcome TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_positions_status ON positions (status);

CREATE TABLE IF NOT EXISTS position_events (
    seq          BIGSERIAL PRIMARY KEY,
    ts           TIMESTAMPTZ NOT NULL,
    position_id  TEXT NOT NULL REFERENCES positions (id),
    event        TEXT NOT NULL,
    price        DOUBLE PRECISION NOT NULL,
    status_after TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_position_events_position ON position_events (position_id, seq);
`

// Connect opens the database, verifies connectivity, applies the schema and
// returns a ready Store.
func Connect(ctx context.Context, dsn string) (*persistence.Store, *sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("apply schema: %w", err)
	}

	store := &persistence.Store{
		Signals:   NewSignalRepo(db, defaultTimeout),
		Positions: NewPositionRepo(db, defaultTimeout),
		Events:    NewEventRepo(db, defaultTimeout),
	}
	return store, db, nil
}
