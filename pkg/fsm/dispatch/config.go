package dispatch

import "time"

// Config holds dispatch settings loaded from environment variables via
// pkg/config.
type Config struct {
	PullInterval time.Duration `env:"FSM_DISPATCH_PULL_INTERVAL" envDefault:"5s"`
	MaxRetries   int           `env:"FSM_DISPATCH_MAX_RETRIES" envDefault:"3"`
}
