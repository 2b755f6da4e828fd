package position

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendgate/trendgate/internal/domain"
	"github.com/trendgate/trendgate/internal/levels"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newLongSwing(t *testing.T) *Position {
	t.Helper()
	lv, err := levels.Build(100, 2, domain.DirectionLong, domain.PlaybookSwing, 0.25, 1.6)
	require.NoError(t, err)
	sig := &domain.Signal{
		ID:        "sig-1",
		Symbol:    "ETHUSDT",
		Timeframe: domain.Timeframe4h,
		Direction: domain.DirectionLong,
		Playbook:  domain.PlaybookSwing,
		Levels:    lv,
	}
	return FromSignal(sig, t0)
}

func newShortIntraday(t *testing.T) *Position {
	t.Helper()
	lv, err := levels.Build(100, 2, domain.DirectionShort, domain.PlaybookIntraday, 0.25, 1.6)
	require.NoError(t, err)
	sig := &domain.Signal{
		ID:        "sig-2",
		Symbol:    "SOLUSDT",
		Timeframe: domain.Timeframe15m,
		Direction: domain.DirectionShort,
		Playbook:  domain.PlaybookIntraday,
		Levels:    lv,
	}
	return FromSignal(sig, t0)
}

func TestFromSignal_PendingWithTTL(t *testing.T) {
	p := newLongSwing(t)
	assert.Equal(t, StatusPendingEntry, p.Status)
	assert.Equal(t, SLInitial, p.SLMode)
	assert.InDelta(t, 96.8, p.SLCurrent, 1e-9)
	assert.Equal(t, t0.Add(24*time.Hour), p.ExpiresAt, "swing TTL is 24h")

	fast := newShortIntraday(t)
	assert.Equal(t, t0.Add(6*time.Hour), fast.ExpiresAt, "15m TTL is 6h")
}

func TestTick_FillInsideEntryZone(t *testing.T) {
	p := newLongSwing(t)
	events := Tick(p, 100.0, t0.Add(time.Minute))
	require.Len(t, events, 1)
	assert.Equal(t, EventFilled, events[0].Event)
	assert.Equal(t, StatusEntry, p.Status)
	require.NotNil(t, p.FilledAt)
}

func TestTick_TP1MovesStopToBreakeven(t *testing.T) {
	p := newLongSwing(t)
	Tick(p, 100.0, t0)

	events := Tick(p, 103.2, t0.Add(time.Hour))
	require.Len(t, events, 1)
	assert.Equal(t, EventTP1, events[0].Event)
	assert.True(t, p.HitTP1)
	assert.Equal(t, SLBE, p.SLMode)
	assert.InDelta(t, 100.0, p.SLCurrent, 1e-9, "stop moves to entry mid")
	assert.Equal(t, StatusRunning, p.Status)
}

func TestTick_GivebackAfterTP1(t *testing.T) {
	p := newLongSwing(t)
	Tick(p, 103.2, t0)
	events := Tick(p, 96.8, t0.Add(time.Hour))

	require.Len(t, events, 1)
	assert.Equal(t, EventSL, events[0].Event)
	assert.Equal(t, StatusClosed, p.Status)
	assert.Equal(t, OutcomeStopLossAfterTP1, p.CloseOutcome)
	require.NotNil(t, p.ClosedAt)
}

func TestTick_ImmediateStopIsPlainStopLoss(t *testing.T) {
	p := newLongSwing(t)
	events := Tick(p, 96.8, t0)

	require.Len(t, events, 1)
	assert.Equal(t, EventSL, events[0].Event)
	assert.Equal(t, OutcomeStopLoss, p.CloseOutcome)
}

func TestTick_FullProfitLadder(t *testing.T) {
	p := newLongSwing(t)
	var all []LifecycleEvent
	for _, price := range []float64{103.2, 104.8, 106.4} {
		all = append(all, Tick(p, price, t0.Add(time.Minute))...)
	}

	require.Len(t, all, 3)
	assert.Equal(t, EventTP1, all[0].Event)
	assert.Equal(t, EventTP2, all[1].Event)
	assert.Equal(t, EventTP3, all[2].Event)
	assert.Equal(t, StatusClosed, p.Status)
	assert.Equal(t, OutcomeProfitFull, p.CloseOutcome)
	assert.Equal(t, SLTrail, p.SLMode)
}

func TestTick_SingleTickThroughTP3Closes(t *testing.T) {
	p := newLongSwing(t)
	events := Tick(p, 106.4, t0)

	require.Len(t, events, 3, "one tick through the whole ladder emits TP1..TP3")
	assert.Equal(t, OutcomeProfitFull, p.CloseOutcome)
	assert.True(t, p.HitTP1)
	assert.True(t, p.HitTP2)
	assert.True(t, p.HitTP3)
}

func TestTick_ShortMirror(t *testing.T) {
	p := newShortIntraday(t)
	Tick(p, 100.0, t0)
	events := Tick(p, 96.8, t0.Add(time.Minute))
	require.Len(t, events, 1)
	assert.Equal(t, EventTP1, events[0].Event)
	assert.InDelta(t, 100.0, p.SLCurrent, 1e-9)

	events = Tick(p, 103.2, t0.Add(2*time.Minute))
	require.Len(t, events, 1)
	assert.Equal(t, EventSL, events[0].Event)
	assert.Equal(t, OutcomeStopLossAfterTP1, p.CloseOutcome)
}

func TestTick_ClosedPositionIsImmutable(t *testing.T) {
	p := newLongSwing(t)
	Tick(p, 96.8, t0)
	require.Equal(t, StatusClosed, p.Status)

	snapshot := *p
	for _, price := range []float64{90, 106.4, 100} {
		assert.Empty(t, Tick(p, price, t0.Add(time.Hour)))
	}
	assert.Equal(t, snapshot, *p, "no field may change after close")
}

func TestTick_NonFinitePriceIsNoOp(t *testing.T) {
	p := newLongSwing(t)
	assert.Empty(t, Tick(p, math.NaN(), t0))
	assert.Empty(t, Tick(p, math.Inf(1), t0))
	assert.Equal(t, StatusPendingEntry, p.Status)
}

func TestTick_NonFiniteLevelsAreNoOp(t *testing.T) {
	p := newLongSwing(t)
	p.Levels.TP2 = math.NaN()
	assert.Empty(t, Tick(p, 106.4, t0))
	assert.Equal(t, StatusPendingEntry, p.Status)
}

func TestCheckExpiry(t *testing.T) {
	p := newLongSwing(t)

	assert.Nil(t, CheckExpiry(p, t0.Add(23*time.Hour)), "not yet past TTL")

	ev := CheckExpiry(p, t0.Add(25*time.Hour))
	require.NotNil(t, ev)
	assert.Equal(t, EventExpired, ev.Event)
	assert.Equal(t, StatusExpired, p.Status)

	assert.Nil(t, CheckExpiry(p, t0.Add(26*time.Hour)), "terminal positions stay put")
}

func TestCheckExpiry_FilledPositionNeverExpires(t *testing.T) {
	p := newLongSwing(t)
	Tick(p, 100.0, t0)
	assert.Nil(t, CheckExpiry(p, t0.Add(48*time.Hour)))
	assert.Equal(t, StatusEntry, p.Status)
}
