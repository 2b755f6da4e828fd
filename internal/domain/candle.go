package domain

import (
	"fmt"
	"time"
)

// Candle represents one OHLCV bar for a (symbol, timeframe) pair
type Candle struct {
	OpenTime  time.Time `json:"open_time"`
	CloseTime time.Time `json:"close_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Timeframe identifies a candle interval. Only the timeframes listed in
// SupportedTimeframes are valid; anything else is a startup error.
type Timeframe string

const (
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
)

// SwingTimeframe is the designated higher timeframe: signals on it use the
// SWING playbook, everything faster is INTRADAY.
const SwingTimeframe = Timeframe4h

// SupportedTimeframes lists every timeframe the evaluator accepts, fastest first.
var SupportedTimeframes = []Timeframe{Timeframe15m, Timeframe1h, Timeframe4h}

// ParseTimeframe validates a timeframe string
func ParseTimeframe(s string) (Timeframe, error) {
	for _, tf := range SupportedTimeframes {
		if string(tf) == s {
			return tf, nil
		}
	}
	return "", fmt.Errorf("unsupported timeframe: %q", s)
}

// Duration returns the candle interval length
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case Timeframe15m:
		return 15 * time.Minute
	case Timeframe1h:
		return time.Hour
	case Timeframe4h:
		return 4 * time.Hour
	default:
		return 0
	}
}

// IsIntraday reports whether the timeframe is faster than the swing timeframe
func (tf Timeframe) IsIntraday() bool {
	return tf != SwingTimeframe
}

// EntryTTL returns how long a pending position from this timeframe may wait
// for an entry fill before it expires.
func (tf Timeframe) EntryTTL() time.Duration {
	switch tf {
	case Timeframe15m:
		return 6 * time.Hour
	case Timeframe1h:
		return 12 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Closes extracts the close series from candles
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// SortedUnique reports whether the series is ascending by CloseTime with no
// duplicate CloseTime values.
func SortedUnique(candles []Candle) bool {
	for i := 1; i < len(candles); i++ {
		if !candles[i].CloseTime.After(candles[i-1].CloseTime) {
			return false
		}
	}
	return true
}
