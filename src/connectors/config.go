package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Feed selects the price source: "rest" polls the exchange REST API,
	// "ws" consumes the miniTicker stream.
	Feed string `envconfig:"PRICE_FEED" default:"rest"`

	WSEndpoint    string        `envconfig:"PRICE_WS_ENDPOINT" default:"wss://stream.binance.com:9443"`
	PollInterval  time.Duration `envconfig:"PRICE_POLL_INTERVAL" default:"5s"`
	ReconnectWait time.Duration `envconfig:"PRICE_WS_RECONNECT" default:"5s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
