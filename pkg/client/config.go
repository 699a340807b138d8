package client

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caas-team/lookout/internal/helper"
)

const (
	// DefaultServer is the address of a locally running lookout
	DefaultServer = "http://localhost:8080"
	// DefaultTimeout is the timeout of a single request
	DefaultTimeout = 10 * time.Second
)

// Config is the configuration of the api client
type Config struct {
	// Server is the base url of the lookout api
	Server string `json:"server" yaml:"server" mapstructure:"server"`
	// Timeout is the timeout of a single request
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	// Retry configures the retries of failed requests.
	// Only transport errors and server errors are retried.
	Retry helper.RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`
}

// DefaultConfig returns the default client configuration
func DefaultConfig() Config {
	return Config{
		Server:  DefaultServer,
		Timeout: DefaultTimeout,
		Retry: helper.RetryConfig{
			Count: 2,
			Delay: 200 * time.Millisecond,
		},
	}
}

// Validate checks the client configuration
func (c Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidServer, c.Server)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.Timeout)
	}
	if c.Retry.Count < 0 || c.Retry.Delay < 0 {
		return ErrInvalidRetry
	}
	return nil
}
