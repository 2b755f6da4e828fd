package domain

import (
	"fmt"
	"time"
)

// Direction is the trade side of a signal or position
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Playbook selects the take-profit ladder: SWING for signals on the swing
// timeframe, INTRADAY for everything faster.
type Playbook string

const (
	PlaybookSwing    Playbook = "SWING"
	PlaybookIntraday Playbook = "INTRADAY"
)

// PlaybookFor derives the playbook from the signal timeframe
func PlaybookFor(tf Timeframe) Playbook {
	if tf == SwingTimeframe {
		return PlaybookSwing
	}
	return PlaybookIntraday
}

// Levels holds the full price ladder of a signal: entry zone, stop loss and
// three take-profit levels expressed in R-multiples of the initial stop distance.
type Levels struct {
	EntryLow  float64 `json:"entry_low" db:"entry_low"`
	EntryHigh float64 `json:"entry_high" db:"entry_high"`
	EntryMid  float64 `json:"entry_mid" db:"entry_mid"`
	SL        float64 `json:"sl" db:"sl"`
	TP1       float64 `json:"tp1" db:"tp1"`
	TP2       float64 `json:"tp2" db:"tp2"`
	TP3       float64 `json:"tp3" db:"tp3"`
}

// Validate checks the ordering invariant for the given direction:
// LONG requires sl < entryLow <= entryMid <= entryHigh < tp1 < tp2 < tp3,
// SHORT is the mirror.
func (l Levels) Validate(dir Direction) error {
	ordered := func(vals ...float64) bool {
		for i := 1; i < len(vals); i++ {
			if vals[i] <= vals[i-1] {
				return false
			}
		}
		return true
	}
	zoneOK := l.EntryLow <= l.EntryMid && l.EntryMid <= l.EntryHigh
	switch dir {
	case DirectionLong:
		if zoneOK && ordered(l.SL, l.EntryLow) && ordered(l.EntryHigh, l.TP1, l.TP2, l.TP3) {
			return nil
		}
	case DirectionShort:
		if zoneOK && ordered(l.TP3, l.TP2, l.TP1, l.EntryLow) && ordered(l.EntryHigh, l.SL) {
			return nil
		}
	default:
		return fmt.Errorf("unknown direction: %q", dir)
	}
	return fmt.Errorf("level ordering violated for %s: %+v", dir, l)
}

// Signal is the immutable output of a successful pipeline evaluation
type Signal struct {
	ID              string             `json:"id" db:"id"`
	Symbol          string             `json:"symbol" db:"symbol"`
	Timeframe       Timeframe          `json:"timeframe" db:"timeframe"`
	Direction       Direction          `json:"direction" db:"direction"`
	Playbook        Playbook           `json:"playbook" db:"playbook"`
	Score           float64            `json:"score" db:"score"`
	ScoreLabel      string             `json:"score_label" db:"score_label"`
	Levels          Levels             `json:"levels"`
	Points          map[string]float64 `json:"points"`
	CandleCloseTime time.Time          `json:"candle_close_time" db:"candle_close_time"`
	CreatedAt       time.Time          `json:"created_at" db:"created_at"`
}
