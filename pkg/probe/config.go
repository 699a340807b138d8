// lookout
// (C) 2025, Deutsche Telekom IT GmbH
//
// Deutsche Telekom IT GmbH and all other contributors /
// copyright owners license this file to you under the Apache
// License, Version 2.0 (the "License"); you may not use this
// file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package probe

import (
	"context"
	"time"

	"github.com/caas-team/lookout/internal/logger"
)

const (
	// DefaultInterval is the time between two probes of a target
	DefaultInterval = time.Second
	// DefaultTimeout is the time a probe waits for a reply
	DefaultTimeout = time.Second
)

// Config configures the probe workers
type Config struct {
	// Interval is the time between two probes
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
	// Timeout is the per probe timeout
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	// EmitTimeout bounds the time a worker blocks on a full result channel.
	// Defaults to the interval.
	EmitTimeout time.Duration `json:"emitTimeout" yaml:"emitTimeout" mapstructure:"emitTimeout"`
}

// DefaultConfig returns the default probe configuration
func DefaultConfig() Config {
	return Config{
		Interval:    DefaultInterval,
		Timeout:     DefaultTimeout,
		EmitTimeout: DefaultInterval,
	}
}

// Validate checks the configuration
func (c *Config) Validate(ctx context.Context) error {
	log := logger.FromContext(ctx)
	if c.Interval <= 0 {
		log.ErrorContext(ctx, "Probe interval must be positive", "interval", c.Interval)
		return ErrInvalidInterval
	}
	if c.Timeout <= 0 {
		log.ErrorContext(ctx, "Probe timeout must be positive", "timeout", c.Timeout)
		return ErrInvalidTimeout
	}
	if c.EmitTimeout < 0 {
		log.ErrorContext(ctx, "Emit timeout must not be negative", "emitTimeout", c.EmitTimeout)
		return ErrInvalidEmitTimeout
	}
	return nil
}

// emitTimeout returns the effective emit timeout
func (c *Config) emitTimeout() time.Duration {
	if c.EmitTimeout == 0 {
		return c.Interval
	}
	return c.EmitTimeout
}
