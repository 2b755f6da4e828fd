package data

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	binanceWSBase    = "wss://stream.binance.com:9443/ws"
	wsReadTimeout    = 90 * time.Second
	wsReconnectDelay = 5 * time.Second
)

// PriceTick is one trade-price update pushed by the stream.
type PriceTick struct {
	Symbol string
	Price  float64
	Time   time.Time
}

// PriceStream maintains a websocket subscription to Binance trade streams and
// caches the latest price per symbol. It reconnects with a fixed backoff
// until the context is cancelled; a PriceProvider read never has to wait for
// the next tick.
type PriceStream struct {
	baseURL string
	symbols []string

	mu     sync.RWMutex
	latest map[string]PriceTick
}

// NewPriceStream creates a stream for the given symbols. Run must be called
// before MarkPrice returns anything.
func NewPriceStream(symbols []string) *PriceStream {
	return &PriceStream{
		baseURL: binanceWSBase,
		symbols: symbols,
		latest:  make(map[string]PriceTick, len(symbols)),
	}
}

// MarkPrice returns the last streamed price for the symbol, satisfying
// PriceProvider. It fails when no tick has arrived yet.
func (s *PriceStream) MarkPrice(_ context.Context, symbol string) (float64, error) {
	s.mu.RLock()
	tick, ok := s.latest[symbol]
	s.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("no price yet for %s", symbol)
	}
	return tick.Price, nil
}

// Run connects and pumps ticks until ctx is cancelled. Connection errors are
// logged and retried; Run only returns the context error.
func (s *PriceStream) Run(ctx context.Context) error {
	for {
		if err := s.connectAndPump(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Dur("retry_in", wsReconnectDelay).Msg("price stream disconnected")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wsReconnectDelay):
		}
	}
}

func (s *PriceStream) connectAndPump(ctx context.Context) error {
	streams := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		streams = append(streams, strings.ToLower(sym)+"@trade")
	}
	url := s.baseURL + "/" + strings.Join(streams, "/")

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 15 * time.Second

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	log.Info().Int("symbols", len(s.symbols)).Msg("price stream connected")

	// close the connection when the context dies so ReadMessage unblocks
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
			return err
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		tick, ok := parseTradeMessage(msg)
		if !ok {
			continue
		}
		s.mu.Lock()
		s.latest[tick.Symbol] = tick
		s.mu.Unlock()
	}
}

func parseTradeMessage(msg []byte) (PriceTick, bool) {
	var payload struct {
		Event  string `json:"e"`
		Symbol string `json:"s"`
		Price  string `json:"p"`
		TimeMs int64  `json:"T"`
	}
	if err := json.Unmarshal(msg, &payload); err != nil || payload.Event != "trade" {
		return PriceTick{}, false
	}
	price, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil {
		return PriceTick{}, false
	}
	return PriceTick{
		Symbol: payload.Symbol,
		Price:  price,
		Time:   time.UnixMilli(payload.TimeMs).UTC(),
	}, true
}
