// Package notify publishes lifecycle announcements. The log notifier is the
// only implementation; chat surfaces plug in behind the same interface.
package notify

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/trendgate/trendgate/internal/domain"
	"github.com/trendgate/trendgate/internal/outcome"
	"github.com/trendgate/trendgate/internal/position"
)

// Notifier receives the three externally interesting moments of a trade
type Notifier interface {
	SignalOpened(sig *domain.Signal)
	PositionClosed(p *position.Position, verdict outcome.Verdict)
	PositionExpired(p *position.Position)
}

// LogNotifier writes announcements to the structured log
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier returns a notifier on the global logger
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: log.Logger}
}

func (n *LogNotifier) SignalOpened(sig *domain.Signal) {
	n.logger.Info().
		Str("signal_id", sig.ID).
		Str("symbol", sig.Symbol).
		Str("timeframe", string(sig.Timeframe)).
		Str("direction", string(sig.Direction)).
		Str("playbook", string(sig.Playbook)).
		Float64("score", sig.Score).
		Float64("entry_mid", sig.Levels.EntryMid).
		Float64("sl", sig.Levels.SL).
		Float64("tp1", sig.Levels.TP1).
		Float64("tp3", sig.Levels.TP3).
		Msg("signal opened")
}

func (n *LogNotifier) PositionClosed(p *position.Position, verdict outcome.Verdict) {
	n.logger.Info().
		Str("position_id", p.ID).
		Str("symbol", p.Symbol).
		Str("outcome", string(p.CloseOutcome)).
		Str("verdict", string(verdict)).
		Bool("tp1", p.HitTP1).
		Bool("tp2", p.HitTP2).
		Bool("tp3", p.HitTP3).
		Msg("position closed")
}

func (n *LogNotifier) PositionExpired(p *position.Position) {
	n.logger.Info().
		Str("position_id", p.ID).
		Str("symbol", p.Symbol).
		Time("expires_at", p.ExpiresAt).
		Msg("position expired without fill")
}
