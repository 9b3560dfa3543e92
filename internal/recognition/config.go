package recognition

import (
	"fmt"
	"time"

	"github.com/eleven-am/speech-gateway/internal/shared"
)

// Config holds the engine connection settings. Endpoint and Key are
// mandatory: a gateway that cannot reach its engine has nothing to offer,
// so Validate fails fast instead of limping along.
type Config struct {
	Endpoint    string
	Key         string
	DialTimeout time.Duration
	Backoff     shared.BackoffConfig
}

func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("%w: endpoint not configured", ErrEngineUnavailable)
	}
	if c.Key == "" {
		return fmt.Errorf("%w: key not configured", ErrEngineUnavailable)
	}
	return nil
}

func (c Config) normalize() Config {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	c.Backoff = c.Backoff.Normalize()
	return c
}
