package outcome

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendgate/trendgate/internal/domain"
	"github.com/trendgate/trendgate/internal/levels"
	"github.com/trendgate/trendgate/internal/position"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newPosition(t *testing.T, dir domain.Direction) *position.Position {
	t.Helper()
	lv, err := levels.Build(100, 2, dir, domain.PlaybookSwing, 0.25, 1.6)
	require.NoError(t, err)
	sig := &domain.Signal{
		ID:        "sig",
		Symbol:    "BTCUSDT",
		Timeframe: domain.Timeframe4h,
		Direction: dir,
		Playbook:  domain.PlaybookSwing,
		Levels:    lv,
	}
	return position.FromSignal(sig, t0)
}

func runTicks(p *position.Position, prices []float64) []position.LifecycleEvent {
	var events []position.LifecycleEvent
	ts := t0
	for _, price := range prices {
		ts = ts.Add(time.Minute)
		events = append(events, position.Tick(p, price, ts)...)
	}
	return events
}

func TestClassify_GivebackIsWin(t *testing.T) {
	p := newPosition(t, domain.DirectionLong)
	events := runTicks(p, []float64{103.2, 96.8})

	require.Equal(t, position.OutcomeStopLossAfterTP1, p.CloseOutcome)
	assert.Equal(t, Win, FromPosition(p))
	assert.Equal(t, Win, FromEvents(events))
}

func TestClassify_StraightStopIsLoss(t *testing.T) {
	p := newPosition(t, domain.DirectionLong)
	events := runTicks(p, []float64{96.8})

	require.Equal(t, position.OutcomeStopLoss, p.CloseOutcome)
	assert.Equal(t, Loss, FromPosition(p))
	assert.Equal(t, Loss, FromEvents(events))
}

func TestClassify_FullProfitIsWin(t *testing.T) {
	p := newPosition(t, domain.DirectionLong)
	events := runTicks(p, []float64{103.2, 104.8, 106.4})

	require.Equal(t, position.OutcomeProfitFull, p.CloseOutcome)
	assert.Equal(t, Win, FromPosition(p))
	assert.Equal(t, Win, FromEvents(events))
}

func TestClassify_NeverFilledPastTTLIsExpired(t *testing.T) {
	p := newPosition(t, domain.DirectionLong)
	ev := position.CheckExpiry(p, t0.Add(25*time.Hour))
	require.NotNil(t, ev)

	assert.Equal(t, Expired, FromPosition(p))
	assert.Equal(t, Expired, FromEvents([]position.LifecycleEvent{*ev}))
}

func TestClassify_OpenPositionIsUnresolved(t *testing.T) {
	p := newPosition(t, domain.DirectionLong)
	events := runTicks(p, []float64{100.0, 101.0})

	assert.Equal(t, Unresolved, FromPosition(p))
	assert.Equal(t, Unresolved, FromEvents(events))
	assert.Equal(t, Unresolved, FromPosition(nil))
}

// Snapshot and event-log classification are independent implementations of
// the same contract; every reachable history must give the same verdict.
func TestClassify_SnapshotAndEventLogAgree(t *testing.T) {
	priceGrid := []float64{96.8, 99.0, 100.0, 100.5, 103.2, 104.8, 106.4}

	var sequences [][]float64
	for _, a := range priceGrid {
		sequences = append(sequences, []float64{a})
		for _, b := range priceGrid {
			sequences = append(sequences, []float64{a, b})
			for _, c := range priceGrid {
				sequences = append(sequences, []float64{a, b, c})
			}
		}
	}

	for _, dir := range []domain.Direction{domain.DirectionLong, domain.DirectionShort} {
		for _, seq := range sequences {
			t.Run(fmt.Sprintf("%s/%v", dir, seq), func(t *testing.T) {
				p := newPosition(t, dir)
				events := runTicks(p, seq)
				if ev := position.CheckExpiry(p, t0.Add(48*time.Hour)); ev != nil {
					events = append(events, *ev)
				}
				assert.Equal(t, FromPosition(p), FromEvents(events),
					"snapshot and event log disagree for %v", seq)
			})
		}
	}
}
