package data

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/trendgate/trendgate/internal/domain"
)

const (
	binanceBaseURL  = "https://api.binance.com/api/v3"
	binanceKlimit   = 500
	binanceRPS      = 10
	binanceBurst    = 20
	requestTimeout  = 10 * time.Second
	breakerFailures = 5
)

// BinanceClient implements CandleProvider and PriceProvider against the
// Binance spot REST API. Requests run through a token-bucket rate limiter and
// a circuit breaker; a tripped breaker surfaces as an ordinary provider error
// so the pipeline degrades to NotReady instead of hammering a sick venue.
type BinanceClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// NewBinanceClient creates a guarded client against the production endpoint
func NewBinanceClient() *BinanceClient {
	return newBinanceClient(binanceBaseURL)
}

func newBinanceClient(baseURL string) *BinanceClient {
	settings := gobreaker.Settings{
		Name:    "binance",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}
	return &BinanceClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(binanceRPS), binanceBurst),
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

// GetCandles fetches up to 500 klines for the pair, ordered ascending
func (c *BinanceClient) GetCandles(ctx context.Context, symbol string, tf domain.Timeframe) ([]domain.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", string(tf))
	q.Set("limit", strconv.Itoa(binanceKlimit))

	body, err := c.get(ctx, "/klines", q)
	if err != nil {
		return nil, fmt.Errorf("klines %s %s: %w", symbol, tf, err)
	}

	var raw [][]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("klines %s %s: decode: %w", symbol, tf, err)
	}

	candles := make([]domain.Candle, 0, len(raw))
	for _, row := range raw {
		candle, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("klines %s %s: %w", symbol, tf, err)
		}
		candles = append(candles, candle)
	}
	return Normalize(candles), nil
}

// MarkPrice fetches the latest traded price for the symbol
func (c *BinanceClient) MarkPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	body, err := c.get(ctx, "/ticker/price", q)
	if err != nil {
		return 0, fmt.Errorf("ticker %s: %w", symbol, err)
	}

	var payload struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("ticker %s: decode: %w", symbol, err)
	}
	price, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("ticker %s: parse price %q: %w", symbol, payload.Price, err)
	}
	return price, nil
}

func (c *BinanceClient) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

// parseKline decodes one Binance kline row:
// [openTime, open, high, low, close, volume, closeTime, ...]
func parseKline(row []json.RawMessage) (domain.Candle, error) {
	if len(row) < 7 {
		return domain.Candle{}, fmt.Errorf("kline row too short: %d fields", len(row))
	}

	var openMs, closeMs int64
	if err := json.Unmarshal(row[0], &openMs); err != nil {
		return domain.Candle{}, fmt.Errorf("open time: %w", err)
	}
	if err := json.Unmarshal(row[6], &closeMs); err != nil {
		return domain.Candle{}, fmt.Errorf("close time: %w", err)
	}

	nums := make([]float64, 5)
	for i, idx := range []int{1, 2, 3, 4, 5} {
		var s string
		if err := json.Unmarshal(row[idx], &s); err != nil {
			return domain.Candle{}, fmt.Errorf("field %d: %w", idx, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Candle{}, fmt.Errorf("field %d: %w", idx, err)
		}
		nums[i] = v
	}

	return domain.Candle{
		OpenTime:  time.UnixMilli(openMs).UTC(),
		CloseTime: time.UnixMilli(closeMs).UTC(),
		Open:      nums[0],
		High:      nums[1],
		Low:       nums[2],
		Close:     nums[3],
		Volume:    nums[4],
	}, nil
}
