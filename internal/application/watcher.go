package application

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trendgate/trendgate/internal/data"
	"github.com/trendgate/trendgate/internal/domain"
	"github.com/trendgate/trendgate/internal/gates"
	"github.com/trendgate/trendgate/internal/metrics"
	"github.com/trendgate/trendgate/internal/notify"
	"github.com/trendgate/trendgate/internal/outcome"
	"github.com/trendgate/trendgate/internal/persistence"
	"github.com/trendgate/trendgate/internal/position"
)

// Evaluator runs one gate pipeline evaluation. Satisfied by *gates.Pipeline.
type Evaluator interface {
	Evaluate(ctx context.Context, symbol string, tf domain.Timeframe, mode gates.Mode) (*domain.Signal, gates.Result)
}

// Watcher drives the automatic loop: scheduled scans open positions from
// accepted signals, price ticks walk every open position through the
// lifecycle state machine, and an expiry sweep retires unfilled entries.
type Watcher struct {
	pipeline Evaluator
	store    *persistence.Store
	prices   data.PriceProvider
	notifier notify.Notifier
	metrics  *metrics.Registry

	symbols      []string
	timeframes   []domain.Timeframe
	tickInterval time.Duration

	// tickBusy guards against overlapping price ticks: a slow pass makes
	// the next ticker firing a no-op instead of piling up goroutines.
	tickBusy atomic.Bool

	now func() time.Time
}

// NewWatcher wires the loop over its collaborators
func NewWatcher(pipeline Evaluator, store *persistence.Store, prices data.PriceProvider,
	notifier notify.Notifier, m *metrics.Registry, symbols []string,
	timeframes []domain.Timeframe, tickInterval time.Duration) *Watcher {
	return &Watcher{
		pipeline:     pipeline,
		store:        store,
		prices:       prices,
		notifier:     notifier,
		metrics:      m,
		symbols:      symbols,
		timeframes:   timeframes,
		tickInterval: tickInterval,
		now:          time.Now,
	}
}

// Run blocks until ctx is cancelled. One scan loop runs per timeframe at the
// candle interval; a single price loop serves all open positions.
func (w *Watcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, tf := range w.timeframes {
		tf := tf
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.scanLoop(ctx, tf)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.priceLoop(ctx)
	}()

	wg.Wait()
	return ctx.Err()
}

func (w *Watcher) scanLoop(ctx context.Context, tf domain.Timeframe) {
	// First scan immediately, then on every candle close.
	w.scan(ctx, tf)
	ticker := time.NewTicker(tf.Duration())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scan(ctx, tf)
		}
	}
}

// scan evaluates every symbol on the timeframe in AUTO mode and opens a
// position for each accepted signal. One open position per (symbol,
// timeframe) at a time; a still-open one suppresses new entries.
func (w *Watcher) scan(ctx context.Context, tf domain.Timeframe) {
	open, err := w.store.Positions.ListOpen(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scan: list open positions")
		return
	}
	busy := make(map[string]bool, len(open))
	for _, p := range open {
		busy[p.Symbol+"/"+string(p.Timeframe)] = true
	}

	for _, symbol := range w.symbols {
		if ctx.Err() != nil {
			return
		}
		if busy[symbol+"/"+string(tf)] {
			continue
		}

		start := w.now()
		sig, res := w.pipeline.Evaluate(ctx, symbol, tf, gates.ModeAuto)
		w.metrics.ObserveEvaluation(string(tf), res.Kind.String(), w.now().Sub(start))
		if !res.Passed() {
			if res.Rejected() {
				w.metrics.GateBlocks.WithLabelValues(res.Stage, res.Reason).Inc()
			}
			log.Debug().Str("symbol", symbol).Str("timeframe", string(tf)).
				Str("stage", res.Stage).Str("reason", res.Reason).
				Msg("scan verdict")
			continue
		}

		if err := w.openPosition(ctx, sig); err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("open position failed")
		}
	}
}

func (w *Watcher) openPosition(ctx context.Context, sig *domain.Signal) error {
	if err := w.store.Signals.Insert(ctx, sig); err != nil {
		return err
	}
	p := position.FromSignal(sig, w.now())
	if err := w.store.Positions.Insert(ctx, p); err != nil {
		return err
	}
	w.metrics.SignalsEmitted.WithLabelValues(string(sig.Timeframe), string(sig.Direction)).Inc()
	w.notifier.SignalOpened(sig)
	return nil
}

func (w *Watcher) priceLoop(ctx context.Context) {
	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick advances every open position by one price observation. Overlapping
// invocations are skipped, not queued.
func (w *Watcher) tick(ctx context.Context) {
	if !w.tickBusy.CompareAndSwap(false, true) {
		w.metrics.TicksDropped.Inc()
		return
	}
	defer w.tickBusy.Store(false)

	open, err := w.store.Positions.ListOpen(ctx)
	if err != nil {
		log.Error().Err(err).Msg("tick: list open positions")
		return
	}
	w.metrics.OpenPositions.Set(float64(len(open)))

	now := w.now()
	for _, p := range open {
		if ctx.Err() != nil {
			return
		}
		w.advance(ctx, p, now)
	}
}

func (w *Watcher) advance(ctx context.Context, p *position.Position, now time.Time) {
	if ev := position.CheckExpiry(p, now); ev != nil {
		w.persistTransition(ctx, p, []position.LifecycleEvent{*ev})
		w.notifier.PositionExpired(p)
		w.metrics.PositionCloses.WithLabelValues(string(outcome.Expired)).Inc()
		return
	}

	price, err := w.prices.MarkPrice(ctx, p.Symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", p.Symbol).Msg("tick: price unavailable")
		return
	}

	events := position.Tick(p, price, now)
	if len(events) == 0 {
		return
	}
	w.persistTransition(ctx, p, events)

	if p.Status == position.StatusClosed {
		verdict := outcome.FromPosition(p)
		w.metrics.PositionCloses.WithLabelValues(string(verdict)).Inc()
		w.notifier.PositionClosed(p, verdict)
	}
}

func (w *Watcher) persistTransition(ctx context.Context, p *position.Position, events []position.LifecycleEvent) {
	if err := w.store.Positions.Update(ctx, p); err != nil {
		log.Error().Err(err).Str("position_id", p.ID).Msg("persist position failed")
		return
	}
	for _, ev := range events {
		w.metrics.PositionEvents.WithLabelValues(string(ev.Event)).Inc()
		if err := w.store.Events.Append(ctx, ev); err != nil {
			log.Error().Err(err).Str("position_id", p.ID).Msg("persist event failed")
		}
	}
}
