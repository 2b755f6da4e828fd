package levels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendgate/trendgate/internal/domain"
)

func TestBuild_LongSwingLadder(t *testing.T) {
	l, err := Build(100, 2, domain.DirectionLong, domain.PlaybookSwing, 0.25, 1.6)
	require.NoError(t, err)

	assert.InDelta(t, 96.8, l.SL, 1e-9)
	assert.InDelta(t, 103.2, l.TP1, 1e-9)
	assert.InDelta(t, 104.8, l.TP2, 1e-9)
	assert.InDelta(t, 106.4, l.TP3, 1e-9)
	assert.InDelta(t, 99.5, l.EntryLow, 1e-9)
	assert.InDelta(t, 100.5, l.EntryHigh, 1e-9)
	assert.NoError(t, l.Validate(domain.DirectionLong))
}

func TestBuild_ShortIntradayLadder(t *testing.T) {
	l, err := Build(100, 2, domain.DirectionShort, domain.PlaybookIntraday, 0.25, 1.6)
	require.NoError(t, err)

	assert.InDelta(t, 103.2, l.SL, 1e-9)
	assert.InDelta(t, 96.8, l.TP1, 1e-9)
	assert.InDelta(t, 95.52, l.TP2, 1e-9)
	assert.InDelta(t, 94.24, l.TP3, 1e-9)
	assert.NoError(t, l.Validate(domain.DirectionShort))
}

func TestBuild_OrderingInvariantBothDirections(t *testing.T) {
	for _, dir := range []domain.Direction{domain.DirectionLong, domain.DirectionShort} {
		for _, pb := range []domain.Playbook{domain.PlaybookSwing, domain.PlaybookIntraday} {
			l, err := Build(4321.5, 37.2, dir, pb, 0.25, 1.6)
			require.NoError(t, err, "%s/%s", dir, pb)
			assert.NoError(t, l.Validate(dir), "%s/%s", dir, pb)
		}
	}
}

func TestBuild_RejectsInvalidInputs(t *testing.T) {
	_, err := Build(0, 2, domain.DirectionLong, domain.PlaybookSwing, 0.25, 1.6)
	assert.Error(t, err)

	_, err = Build(100, 0, domain.DirectionLong, domain.PlaybookSwing, 0.25, 1.6)
	assert.Error(t, err)

	_, err = Build(100, 2, domain.DirectionLong, domain.Playbook("DAYTRADE"), 0.25, 1.6)
	assert.Error(t, err)

	_, err = Build(100, 2, domain.Direction("FLAT"), domain.PlaybookSwing, 0.25, 1.6)
	assert.Error(t, err)
}
