package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestStreamURL(t *testing.T) {
	f := NewStreamFeed([]string{"BTC/USDT", "ETH/USDT"}, Config{
		WSEndpoint: "wss://stream.binance.com:9443/",
	})

	want := "wss://stream.binance.com:9443/stream?streams=btcusdt@miniTicker/ethusdt@miniTicker"
	if got := f.streamURL(); got != want {
		t.Fatalf("streamURL mismatch:\n got=%s\nwant=%s", got, want)
	}
}

func TestInstrumentFor(t *testing.T) {
	f := NewStreamFeed([]string{"BTC/USDT"}, Config{})

	if symbol, ok := f.instrumentFor("BTCUSDT"); !ok || symbol != "BTC/USDT" {
		t.Fatalf("expected BTC/USDT, got=%q ok=%v", symbol, ok)
	}
	if _, ok := f.instrumentFor("DOGEUSDT"); ok {
		t.Fatalf("unsubscribed symbol must not map")
	}
}

func TestCurrencyPair(t *testing.T) {
	if _, ok := currencyPair("BTC/USDT"); !ok {
		t.Fatalf("well-formed symbol must parse")
	}
	for _, bad := range []string{"BTCUSDT", "BTC/", "/USDT", ""} {
		if _, ok := currencyPair(bad); ok {
			t.Fatalf("malformed symbol %q must not parse", bad)
		}
	}
}

func TestStreamFeed_ConsumesMiniTicker(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		frame := `{"stream":"btcusdt@miniTicker","data":{"s":"BTCUSDT","c":"65000.5"}}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return
		}
		// keep the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	f := NewStreamFeed([]string{"BTC/USDT"}, Config{
		WSEndpoint:    "ws" + strings.TrimPrefix(server.URL, "http"),
		ReconnectWait: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.consume(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if price, ok := f.LastPrice("BTC/USDT"); ok {
			if price != 65000.5 {
				t.Fatalf("unexpected price %v", price)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("price never observed")
}
