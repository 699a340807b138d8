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

package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/caas-team/lookout/internal/logger"
)

// Validate validates the config. Every problem is logged,
// the returned error joins all of them.
func (c *Config) Validate(ctx context.Context) error {
	ctx, cancel := logger.NewContextWithLogger(ctx)
	defer cancel()
	log := logger.FromContext(ctx).With("step", "configValidation")
	ctx = logger.IntoContext(ctx, log)

	var errs []error
	if err := c.Api.Validate(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.Probe.Validate(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.Monitor.Validate(ctx); err != nil {
		errs = append(errs, err)
	}

	if c.Store.HistoryCapacity <= 0 {
		log.ErrorContext(ctx, "The history capacity must be greater than 0", "historyCapacity", c.Store.HistoryCapacity)
		errs = append(errs, ErrInvalidHistoryCapacity)
	}
	if c.Store.EventBacklog <= 0 {
		log.ErrorContext(ctx, "The event backlog must be greater than 0", "eventBacklog", c.Store.EventBacklog)
		errs = append(errs, ErrInvalidEventBacklog)
	}

	if _, err := c.SeedTargets(); err != nil {
		log.ErrorContext(ctx, "The targets must be valid ip addresses", "error", err)
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
