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
	"strings"

	"github.com/spf13/viper"

	"github.com/caas-team/lookout/internal/helper"
)

// EnvPrefix is the prefix of all environment variables read by lookout
const EnvPrefix = "LOOKOUT"

// SetDefaults registers the default values of all settings.
// Settings are only read from the environment if they are known to viper.
func SetDefaults(v *viper.Viper) {
	def := NewConfig()
	v.SetDefault("api.address", def.Api.ListeningAddress)
	v.SetDefault("api.allowedOrigins", def.Api.AllowedOrigins)
	v.SetDefault("probe.interval", def.Probe.Interval)
	v.SetDefault("probe.timeout", def.Probe.Timeout)
	v.SetDefault("probe.emitTimeout", def.Probe.EmitTimeout)
	v.SetDefault("monitor.tick", def.Monitor.Tick)
	v.SetDefault("monitor.resultBuffer", def.Monitor.ResultBuffer)
	v.SetDefault("monitor.resyncInterval", def.Monitor.ResyncInterval)
	v.SetDefault("store.historyCapacity", def.Store.HistoryCapacity)
	v.SetDefault("store.eventBacklog", def.Store.EventBacklog)
	v.SetDefault("targets", def.Targets)
}

// Load reads the configuration from the optional config file, the environment
// and the flags bound to v and decodes it into a Config.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", file, err)
		}
	}

	cfg, err := helper.Decode[Config](v.AllSettings())
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}
