package test

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the end-to-end test knobs, overridable for slow CI boxes.
type Config struct {
	ReceiveTimeout time.Duration `envconfig:"TEST_RECEIVE_TIMEOUT" default:"3s"`
	BufferSize     int           `envconfig:"TEST_CONNECTION_BUFFER_SIZE" default:"32"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
