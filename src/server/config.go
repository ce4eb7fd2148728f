package server

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the status server settings.
type Config struct {
	// Port the healthcheck, slots and targets endpoints listen on.
	Port string `envconfig:"STATUS_PORT" default:"8099"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
