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

package monitor

import (
	"context"
	"time"

	"github.com/caas-team/lookout/internal/logger"
)

const (
	// DefaultTick is the interval the manager checks for shutdown and pending work
	DefaultTick = 10 * time.Millisecond
	// DefaultResultBuffer is the capacity of the shared result channel
	DefaultResultBuffer = 15
	// DefaultResyncInterval is the interval of the full reconciliation against the store
	DefaultResyncInterval = 30 * time.Second
)

// Config configures the monitor manager
type Config struct {
	// Tick is the interval of the manager loop
	Tick time.Duration `json:"tick" yaml:"tick" mapstructure:"tick"`
	// ResultBuffer is the capacity of the result channel shared by all workers
	ResultBuffer int `json:"resultBuffer" yaml:"resultBuffer" mapstructure:"resultBuffer"`
	// ResyncInterval is the interval of the periodic reconciliation
	ResyncInterval time.Duration `json:"resyncInterval" yaml:"resyncInterval" mapstructure:"resyncInterval"`
}

// DefaultConfig returns the default manager configuration
func DefaultConfig() Config {
	return Config{
		Tick:           DefaultTick,
		ResultBuffer:   DefaultResultBuffer,
		ResyncInterval: DefaultResyncInterval,
	}
}

// Validate checks the configuration
func (c *Config) Validate(ctx context.Context) error {
	log := logger.FromContext(ctx)
	if c.Tick <= 0 {
		log.ErrorContext(ctx, "Manager tick must be positive", "tick", c.Tick)
		return ErrInvalidTick
	}
	if c.ResultBuffer < 0 {
		log.ErrorContext(ctx, "Result buffer must not be negative", "resultBuffer", c.ResultBuffer)
		return ErrInvalidResultBuffer
	}
	if c.ResyncInterval <= 0 {
		log.ErrorContext(ctx, "Resync interval must be positive", "resyncInterval", c.ResyncInterval)
		return ErrInvalidResyncInterval
	}
	return nil
}
