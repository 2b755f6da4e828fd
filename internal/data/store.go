package data

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trendgate/trendgate/internal/domain"
)

// maxSeriesLen bounds how many candles are retained per (symbol, timeframe)
// key. 720 covers 220-candle readiness with generous headroom.
const maxSeriesLen = 720

// SeriesStore keeps rolling candle series per (symbol, timeframe) key,
// backfilling misses from an upstream provider and refreshing a key once its
// last candle is old enough for a newer one to have closed. Fetches for the
// same key are serialized behind a per-key lock so concurrent callers never
// interleave writes; different keys proceed in parallel.
//
// The store implements CandleProvider and is the registry the composition
// root owns; nothing here is package-global.
type SeriesStore struct {
	upstream CandleProvider
	now      func() time.Time

	mu     sync.RWMutex
	series map[string][]domain.Candle

	lockMu   sync.Mutex
	keyLocks map[string]*sync.Mutex
}

// NewSeriesStore creates an empty store backed by the upstream provider
func NewSeriesStore(upstream CandleProvider) *SeriesStore {
	return &SeriesStore{
		upstream: upstream,
		now:      time.Now,
		series:   make(map[string][]domain.Candle),
		keyLocks: make(map[string]*sync.Mutex),
	}
}

func seriesKey(symbol string, tf domain.Timeframe) string {
	return fmt.Sprintf("%s/%s", symbol, tf)
}

func (s *SeriesStore) keyLock(key string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		s.keyLocks[key] = l
	}
	return l
}

// fresh reports whether the series still covers the current candle interval.
// Once now passes lastClose + one timeframe interval, a newer candle has
// closed upstream and the key needs a refresh.
func (s *SeriesStore) fresh(series []domain.Candle, tf domain.Timeframe) bool {
	if len(series) == 0 {
		return false
	}
	next := series[len(series)-1].CloseTime.Add(tf.Duration())
	return s.now().Before(next)
}

// GetCandles returns the stored series for the key. Cold keys are backfilled
// from the upstream provider; warm keys whose last candle has aged past one
// timeframe interval are re-fetched and merged before serving. The returned
// slice is a copy.
func (s *SeriesStore) GetCandles(ctx context.Context, symbol string, tf domain.Timeframe) ([]domain.Candle, error) {
	key := seriesKey(symbol, tf)

	s.mu.RLock()
	cached, ok := s.series[key]
	s.mu.RUnlock()
	if ok && s.fresh(cached, tf) {
		return copySeries(cached), nil
	}
	return s.refresh(ctx, key, symbol, tf)
}

// refresh fetches the series for a cold or stale key and merges it into the
// stored one. The per-key lock makes concurrent callers for the same key wait
// for the first fetch instead of racing their own. When the upstream fails
// and a stale series exists, the stale copy is served so a transient outage
// does not blind callers that were reading fine a moment ago.
func (s *SeriesStore) refresh(ctx context.Context, key, symbol string, tf domain.Timeframe) ([]domain.Candle, error) {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have refreshed the key while we waited.
	s.mu.RLock()
	cached, ok := s.series[key]
	s.mu.RUnlock()
	if ok && s.fresh(cached, tf) {
		return copySeries(cached), nil
	}

	fetched, err := s.upstream.GetCandles(ctx, symbol, tf)
	if err != nil {
		if ok {
			log.Warn().Err(err).Str("key", key).Msg("refresh failed, serving stale series")
			return copySeries(cached), nil
		}
		return nil, fmt.Errorf("backfill %s: %w", key, err)
	}

	s.mu.Lock()
	merged := mergeSeries(s.series[key], fetched)
	s.series[key] = merged
	s.mu.Unlock()

	log.Debug().Str("key", key).Int("candles", len(merged)).Msg("series refreshed")
	return copySeries(merged), nil
}

// Append merges new candles into the key's series, de-duplicating by
// CloseTime (later writes win) and trimming to the retention bound.
func (s *SeriesStore) Append(symbol string, tf domain.Timeframe, candles ...domain.Candle) {
	if len(candles) == 0 {
		return
	}
	key := seriesKey(symbol, tf)
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[key] = mergeSeries(s.series[key], candles)
}

// Len reports the stored series length for a key
func (s *SeriesStore) Len(symbol string, tf domain.Timeframe) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series[seriesKey(symbol, tf)])
}

// mergeSeries folds incoming candles into an existing series and trims to the
// retention bound. Callers hold the write lock.
func mergeSeries(existing, incoming []domain.Candle) []domain.Candle {
	merged := Normalize(append(copySeries(existing), incoming...))
	if len(merged) > maxSeriesLen {
		merged = merged[len(merged)-maxSeriesLen:]
	}
	return merged
}

// Normalize sorts candles ascending by CloseTime and drops duplicates,
// keeping the last occurrence of each CloseTime.
func Normalize(candles []domain.Candle) []domain.Candle {
	if len(candles) == 0 {
		return nil
	}
	sorted := copySeries(candles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CloseTime.Before(sorted[j].CloseTime)
	})
	out := sorted[:0:0]
	for _, c := range sorted {
		if len(out) > 0 && out[len(out)-1].CloseTime.Equal(c.CloseTime) {
			out[len(out)-1] = c
			continue
		}
		out = append(out, c)
	}
	return out
}

func copySeries(candles []domain.Candle) []domain.Candle {
	if candles == nil {
		return nil
	}
	out := make([]domain.Candle, len(candles))
	copy(out, candles)
	return out
}
