package test

import (
	"context"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/caas-team/lookout/pkg/config"
)

// ConfigBuilder builds a lookout configuration
type ConfigBuilder struct{ cfg config.Config }

// NewLookoutConfig returns a builder starting from the defaults,
// listening on localhost:50606 and probing every 50ms
func NewLookoutConfig() *ConfigBuilder {
	cfg := config.NewConfig()
	cfg.Api.ListeningAddress = "localhost:50606"
	cfg.Probe.Interval = 50 * time.Millisecond
	cfg.Probe.Timeout = 50 * time.Millisecond
	return &ConfigBuilder{cfg: *cfg}
}

func (b *ConfigBuilder) WithAddress(addr string) *ConfigBuilder {
	b.cfg.Api.ListeningAddress = addr
	return b
}

func (b *ConfigBuilder) WithTargets(targets ...string) *ConfigBuilder {
	b.cfg.Targets = targets
	return b
}

func (b *ConfigBuilder) WithInterval(interval time.Duration) *ConfigBuilder {
	b.cfg.Probe.Interval = interval
	return b
}

func (b *ConfigBuilder) WithTimeout(timeout time.Duration) *ConfigBuilder {
	b.cfg.Probe.Timeout = timeout
	return b
}

func (b *ConfigBuilder) WithHistoryCapacity(n int) *ConfigBuilder {
	b.cfg.Store.HistoryCapacity = n
	return b
}

// Config validates and returns the configuration
func (b *ConfigBuilder) Config(t *testing.T) *config.Config {
	t.Helper()
	if err := b.cfg.Validate(context.Background()); err != nil {
		t.Fatalf("config is not valid: %v", err)
	}
	cfg := b.cfg
	return &cfg
}

// YAML returns the configuration as it would be written to a config file
func (b *ConfigBuilder) YAML(t *testing.T) []byte {
	t.Helper()
	out, err := yaml.Marshal(b.cfg)
	if err != nil {
		t.Fatalf("[%T] failed to marshal config: %v", b.cfg, err)
		return []byte{}
	}
	return out
}
