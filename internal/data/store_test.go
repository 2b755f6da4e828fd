package data

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendgate/trendgate/internal/domain"
)

type fakeUpstream struct {
	mu     sync.Mutex
	calls  int32
	series []domain.Candle
	err    error
}

func (f *fakeUpstream) GetCandles(_ context.Context, _ string, _ domain.Timeframe) ([]domain.Candle, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return copySeries(f.series), nil
}

func (f *fakeUpstream) set(series []domain.Candle, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.series = series
	f.err = err
}

func candleAt(t time.Time, close float64) domain.Candle {
	return domain.Candle{
		OpenTime:  t.Add(-time.Hour),
		CloseTime: t,
		Open:      close,
		High:      close + 1,
		Low:       close - 1,
		Close:     close,
		Volume:    10,
	}
}

func hourlySeries(n int) []domain.Candle {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.Candle, n)
	for i := range out {
		out[i] = candleAt(base.Add(time.Duration(i)*time.Hour), 100+float64(i))
	}
	return out
}

// pinClock fixes the store's clock to a settable instant so freshness checks
// do not depend on the wall clock.
func pinClock(s *SeriesStore, at time.Time) *time.Time {
	now := at
	s.now = func() time.Time { return now }
	return &now
}

func lastClose(series []domain.Candle) time.Time {
	return series[len(series)-1].CloseTime
}

func TestSeriesStoreBackfillsOnceWithinInterval(t *testing.T) {
	series := hourlySeries(5)
	up := &fakeUpstream{series: series}
	store := NewSeriesStore(up)
	pinClock(store, lastClose(series).Add(30*time.Minute))

	got, err := store.GetCandles(context.Background(), "BTCUSDT", domain.Timeframe1h)
	require.NoError(t, err)
	assert.Len(t, got, 5)

	_, err = store.GetCandles(context.Background(), "BTCUSDT", domain.Timeframe1h)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&up.calls), "fresh key must not refetch")
}

func TestSeriesStoreRefreshesAfterCandleClose(t *testing.T) {
	series := hourlySeries(220)
	up := &fakeUpstream{series: series}
	store := NewSeriesStore(up)
	now := pinClock(store, lastClose(series).Add(time.Minute))

	got, err := store.GetCandles(context.Background(), "BTCUSDT", domain.Timeframe1h)
	require.NoError(t, err)
	require.Len(t, got, 220)
	require.Equal(t, int32(1), atomic.LoadInt32(&up.calls))

	// The next hourly candle closes upstream; the stored series is now a
	// candle behind and must be re-pulled instead of served frozen.
	grown := hourlySeries(221)
	up.set(grown, nil)
	*now = lastClose(grown).Add(time.Minute)

	got, err = store.GetCandles(context.Background(), "BTCUSDT", domain.Timeframe1h)
	require.NoError(t, err)
	assert.Len(t, got, 221)
	assert.Equal(t, lastClose(grown), got[len(got)-1].CloseTime)
	assert.Equal(t, int32(2), atomic.LoadInt32(&up.calls), "stale key must refetch")
	assert.True(t, domain.SortedUnique(got))
}

func TestSeriesStoreServesStaleOnRefreshError(t *testing.T) {
	series := hourlySeries(5)
	up := &fakeUpstream{series: series}
	store := NewSeriesStore(up)
	now := pinClock(store, lastClose(series).Add(time.Minute))

	_, err := store.GetCandles(context.Background(), "BTCUSDT", domain.Timeframe1h)
	require.NoError(t, err)

	up.set(nil, errors.New("venue down"))
	*now = lastClose(series).Add(2 * time.Hour)

	got, err := store.GetCandles(context.Background(), "BTCUSDT", domain.Timeframe1h)
	require.NoError(t, err, "transient upstream failure must not blind a warm key")
	assert.Len(t, got, 5)
	assert.Equal(t, int32(2), atomic.LoadInt32(&up.calls))
}

func TestSeriesStoreConcurrentBackfillSingleFetch(t *testing.T) {
	series := hourlySeries(10)
	up := &fakeUpstream{series: series}
	store := NewSeriesStore(up)
	pinClock(store, lastClose(series).Add(time.Hour))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := store.GetCandles(context.Background(), "ETHUSDT", domain.Timeframe4h)
			assert.NoError(t, err)
			assert.Len(t, got, 10)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&up.calls))
}

func TestSeriesStoreUpstreamError(t *testing.T) {
	up := &fakeUpstream{err: errors.New("venue down")}
	store := NewSeriesStore(up)

	_, err := store.GetCandles(context.Background(), "BTCUSDT", domain.Timeframe15m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backfill")
	assert.Zero(t, store.Len("BTCUSDT", domain.Timeframe15m), "failed backfill must not poison the key")
}

func TestSeriesStoreAppendMergesAndDedupes(t *testing.T) {
	up := &fakeUpstream{}
	store := NewSeriesStore(up)
	base := hourlySeries(3)
	store.Append("BTCUSDT", domain.Timeframe1h, base...)

	// Re-append the last candle with a revised close plus one new bar.
	revised := base[2]
	revised.Close = 999
	next := candleAt(base[2].CloseTime.Add(time.Hour), 104)
	store.Append("BTCUSDT", domain.Timeframe1h, revised, next)
	pinClock(store, next.CloseTime.Add(time.Minute))

	got, err := store.GetCandles(context.Background(), "BTCUSDT", domain.Timeframe1h)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, 999.0, got[2].Close, "later write wins on duplicate close time")
	assert.True(t, domain.SortedUnique(got))
	assert.Zero(t, atomic.LoadInt32(&up.calls), "appended fresh key serves without a fetch")
}

func TestSeriesStoreAppendTrimsRetention(t *testing.T) {
	store := NewSeriesStore(&fakeUpstream{})
	series := hourlySeries(maxSeriesLen + 50)
	store.Append("BTCUSDT", domain.Timeframe1h, series...)
	pinClock(store, lastClose(series).Add(time.Minute))

	assert.Equal(t, maxSeriesLen, store.Len("BTCUSDT", domain.Timeframe1h))
	got, _ := store.GetCandles(context.Background(), "BTCUSDT", domain.Timeframe1h)
	// Oldest 50 dropped, newest kept.
	assert.Equal(t, 100.0+50, got[0].Close)
}

func TestSeriesStoreReturnsCopy(t *testing.T) {
	series := hourlySeries(3)
	store := NewSeriesStore(&fakeUpstream{series: series})
	pinClock(store, lastClose(series).Add(time.Minute))

	got, err := store.GetCandles(context.Background(), "BTCUSDT", domain.Timeframe1h)
	require.NoError(t, err)

	got[0].Close = -1
	again, _ := store.GetCandles(context.Background(), "BTCUSDT", domain.Timeframe1h)
	assert.Equal(t, 100.0, again[0].Close, "caller mutation must not leak into the store")
}

func TestNormalizeSortsAndDedupes(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	a := candleAt(base, 1)
	b := candleAt(base.Add(time.Hour), 2)
	bDup := candleAt(base.Add(time.Hour), 20)
	c := candleAt(base.Add(2*time.Hour), 3)

	got := Normalize([]domain.Candle{c, a, b, bDup})
	require.Len(t, got, 3)
	assert.True(t, domain.SortedUnique(got))
	assert.Equal(t, 20.0, got[1].Close, "last occurrence wins")

	assert.Nil(t, Normalize(nil))
}
