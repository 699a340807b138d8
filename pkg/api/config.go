package api

import (
	"context"
	"net"

	"github.com/caas-team/lookout/internal/logger"
)

// DefaultListeningAddress is the address the management api listens on by default
const DefaultListeningAddress = ":8080"

// Config is the configuration of the management api
type Config struct {
	// ListeningAddress is the address the server listens on
	ListeningAddress string `json:"address" yaml:"address" mapstructure:"address"`
	// AllowedOrigins are the origins allowed to call the api from a browser.
	// No CORS headers are set if empty.
	AllowedOrigins []string `json:"allowedOrigins" yaml:"allowedOrigins" mapstructure:"allowedOrigins"`
}

// Validate checks the configuration
func (c *Config) Validate(ctx context.Context) error {
	log := logger.FromContext(ctx)
	if _, _, err := net.SplitHostPort(c.ListeningAddress); err != nil {
		log.ErrorContext(ctx, "Invalid listening address", "address", c.ListeningAddress, "error", err)
		return ErrInvalidAddress{Address: c.ListeningAddress, Err: err}
	}
	return nil
}
