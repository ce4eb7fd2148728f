package database

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	EnableDB bool `envconfig:"ENABLE_DB" default:"false"`

	// Driver selects the backing engine: "postgres" or "sqlite".
	Driver       string `envconfig:"DATABASE_DRIVER" default:"sqlite"`
	DatabaseURL  string `envconfig:"DATABASE_URL" default:"positionkeeper.db"`
	GormLogLevel int    `envconfig:"GORM_LOG_LEVEL" default:"2"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
