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
	"fmt"
	"net/netip"

	"github.com/caas-team/lookout/pkg/api"
	"github.com/caas-team/lookout/pkg/db"
	"github.com/caas-team/lookout/pkg/monitor"
	"github.com/caas-team/lookout/pkg/probe"
)

// Config is the configuration of a lookout instance
type Config struct {
	// Api is the configuration of the management api
	Api api.Config `json:"api" yaml:"api" mapstructure:"api"`
	// Probe is the configuration of the probe workers
	Probe probe.Config `json:"probe" yaml:"probe" mapstructure:"probe"`
	// Monitor is the configuration of the monitor manager
	Monitor monitor.Config `json:"monitor" yaml:"monitor" mapstructure:"monitor"`
	// Store is the configuration of the target store
	Store StoreConfig `json:"store" yaml:"store" mapstructure:"store"`
	// Targets are the addresses monitored from the start
	Targets []string `json:"targets" yaml:"targets" mapstructure:"targets"`
}

// StoreConfig is the configuration of the target store
type StoreConfig struct {
	// HistoryCapacity is the number of probe results kept per target
	HistoryCapacity int `json:"historyCapacity" yaml:"historyCapacity" mapstructure:"historyCapacity"`
	// EventBacklog is the number of events buffered per subscriber
	EventBacklog int `json:"eventBacklog" yaml:"eventBacklog" mapstructure:"eventBacklog"`
}

// NewConfig creates a new Config with the default values
func NewConfig() *Config {
	return &Config{
		Api:     api.Config{ListeningAddress: api.DefaultListeningAddress, AllowedOrigins: []string{}},
		Probe:   probe.DefaultConfig(),
		Monitor: monitor.DefaultConfig(),
		Store: StoreConfig{
			HistoryCapacity: db.DefaultHistoryCapacity,
			EventBacklog:    db.DefaultEventBacklog,
		},
		Targets: []string{},
	}
}

// SeedTargets parses the configured target addresses
func (c *Config) SeedTargets() ([]netip.Addr, error) {
	addrs := make([]netip.Addr, 0, len(c.Targets))
	for _, t := range c.Targets {
		addr, err := netip.ParseAddr(t)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidTarget, t, err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}
