package keeper

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	StateDir    string `envconfig:"STATE_DIR" default:"."`
	TargetsFile string `envconfig:"TARGETS_FILE" default:"profit-targets.json"`

	HoldFile string `envconfig:"HOLD_FILE" default:"hold-trades.json"`
	// HoldURL switches the hold source to a shared HTTP endpoint when set.
	HoldURL string `envconfig:"HOLD_URL"`

	MinStake string `envconfig:"MIN_STAKE" default:"10"`

	GrindMaxOpen int `envconfig:"GRIND_MAX_OPEN" default:"8"`
	RebuyMaxOpen int `envconfig:"REBUY_MAX_OPEN" default:"4"`
	ScalpMaxOpen int `envconfig:"SCALP_MAX_OPEN" default:"6"`

	ScalpAllowList []string `envconfig:"SCALP_ALLOW_LIST"`

	DeriskEnabled    bool          `envconfig:"DERISK_ENABLED" default:"true"`
	StoplossCooldown time.Duration `envconfig:"STOPLOSS_COOLDOWN" default:"60m"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
