package connectors

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
)

// PriceSource is the read side shared by both feeds: the last observed price
// for an instrument symbol, if one has been seen yet.
type PriceSource interface {
	LastPrice(symbol string) (float64, bool)
}

// RestPoller polls the exchange ticker endpoint for a fixed set of
// instruments. Poll failures keep the previous price.
type RestPoller struct {
	mu       sync.RWMutex
	exchange goex.API
	symbols  []string
	prices   map[string]float64
	config   Config
	log      *logger.Entry
}

func NewRestPoller(symbols []string, config Config) *RestPoller {
	return &RestPoller{
		exchange: newBinanceInstance(),
		symbols:  symbols,
		prices:   make(map[string]float64),
		config:   config,
		log:      logger.WithField("feed", "rest"),
	}
}

func newBinanceInstance() *binance.Binance {
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}
	return binance.NewWithConfig(apiConfig)
}

// Run polls until ctx is cancelled.
func (p *RestPoller) Run(ctx context.Context) {
	p.pollOnce()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("rest poller stopped")
			return
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

func (p *RestPoller) pollOnce() {
	for _, symbol := range p.symbols {
		pair, ok := currencyPair(symbol)
		if !ok {
			p.log.WithField("symbol", symbol).Warn("unparseable symbol, skipping")
			continue
		}

		ticker, err := p.exchange.GetTicker(pair)
		if err != nil {
			p.log.WithError(err).WithField("symbol", symbol).
				Warn("ticker poll failed, keeping previous price")
			continue
		}

		p.mu.Lock()
		p.prices[symbol] = ticker.Last
		p.mu.Unlock()
	}
}

func (p *RestPoller) LastPrice(symbol string) (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	price, ok := p.prices[symbol]
	return price, ok
}

// currencyPair splits an instrument symbol like "BTC/USDT" into a goex pair.
func currencyPair(symbol string) (goex.CurrencyPair, bool) {
	parts := strings.SplitN(symbol, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return goex.CurrencyPair{}, false
	}
	return goex.NewCurrencyPair(
		goex.Currency{Symbol: parts[0]},
		goex.Currency{Symbol: parts[1]},
	), true
}
