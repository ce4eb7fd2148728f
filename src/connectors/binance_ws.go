package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

// StreamFeed consumes the combined miniTicker websocket stream for a fixed
// set of instruments and keeps the last close price per symbol. The connection
// is re-dialed on any read error until the context is cancelled.
type StreamFeed struct {
	mu      sync.RWMutex
	symbols []string
	prices  map[string]float64
	config  Config
	log     *logger.Entry
}

func NewStreamFeed(symbols []string, config Config) *StreamFeed {
	return &StreamFeed{
		symbols: symbols,
		prices:  make(map[string]float64),
		config:  config,
		log:     logger.WithField("feed", "ws"),
	}
}

type miniTickerEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		Close  string `json:"c"`
	} `json:"data"`
}

// Run keeps a stream connection alive until ctx is cancelled.
func (f *StreamFeed) Run(ctx context.Context) {
	for {
		if err := f.consume(ctx); err != nil {
			if ctx.Err() != nil {
				f.log.Info("stream feed stopped")
				return
			}
			f.log.WithError(err).Warn("stream dropped, reconnecting")
		}

		select {
		case <-ctx.Done():
			f.log.Info("stream feed stopped")
			return
		case <-time.After(f.config.ReconnectWait):
		}
	}
}

func (f *StreamFeed) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}

	conn, _, err := dialer.DialContext(ctx, f.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("ws dial failed: %w", err)
	}
	defer conn.Close()

	f.log.WithField("symbols", len(f.symbols)).Info("stream connected")

	// unblock ReadMessage on shutdown
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("ws read failed: %w", err)
		}

		var event miniTickerEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			f.log.WithError(err).Debug("unparseable stream frame, skipping")
			continue
		}
		if event.Data.Symbol == "" {
			continue
		}

		price, err := strconv.ParseFloat(event.Data.Close, 64)
		if err != nil || price <= 0 {
			continue
		}

		symbol, ok := f.instrumentFor(event.Data.Symbol)
		if !ok {
			continue
		}

		f.mu.Lock()
		f.prices[symbol] = price
		f.mu.Unlock()
	}
}

func (f *StreamFeed) streamURL() string {
	streams := make([]string, 0, len(f.symbols))
	for _, symbol := range f.symbols {
		streams = append(streams, streamName(symbol)+"@miniTicker")
	}
	return fmt.Sprintf("%s/stream?streams=%s",
		strings.TrimRight(f.config.WSEndpoint, "/"), strings.Join(streams, "/"))
}

func (f *StreamFeed) LastPrice(symbol string) (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	price, ok := f.prices[symbol]
	return price, ok
}

// streamName maps an instrument symbol like "BTC/USDT" to the exchange stream
// name "btcusdt".
func streamName(symbol string) string {
	return strings.ToLower(strings.ReplaceAll(symbol, "/", ""))
}

// instrumentFor maps an exchange symbol like "BTCUSDT" back to the instrument
// symbol it was subscribed under.
func (f *StreamFeed) instrumentFor(exchangeSymbol string) (string, bool) {
	for _, symbol := range f.symbols {
		if strings.EqualFold(strings.ReplaceAll(symbol, "/", ""), exchangeSymbol) {
			return symbol, true
		}
	}
	return "", false
}
