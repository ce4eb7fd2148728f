package runner

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Symbols    []string      `envconfig:"SYMBOLS" default:"BTC/USDT,ETH/USDT"`
	LoopPeriod time.Duration `envconfig:"LOOP_PERIOD" default:"30s"`

	HoldReloadPeriod time.Duration `envconfig:"HOLD_RELOAD_PERIOD" default:"5m"`
	FlushPeriod      time.Duration `envconfig:"FLUSH_PERIOD" default:"1m"`

	// Paper position parameters.
	EntryStake float64 `envconfig:"ENTRY_STAKE" default:"100"`
	EntryTag   string  `envconfig:"ENTRY_TAG" default:"120"`
	FeeRate    float64 `envconfig:"FEE_RATE" default:"0.001"`
	Leverage   float64 `envconfig:"LEVERAGE" default:"1"`
	Market     string  `envconfig:"MARKET" default:"spot"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
