// Package data supplies candle series and live prices to the evaluator and
// the position watcher. Everything here sits at the external boundary: the
// pipeline itself only ever sees the two provider interfaces.
package data

import (
	"context"

	"github.com/trendgate/trendgate/internal/domain"
)

// CandleProvider returns an ordered, de-duplicated candle series for a
// (symbol, timeframe) pair.
type CandleProvider interface {
	GetCandles(ctx context.Context, symbol string, tf domain.Timeframe) ([]domain.Candle, error)
}

// PriceProvider returns the current mark price for a symbol
type PriceProvider interface {
	MarkPrice(ctx context.Context, symbol string) (float64, error)
}
