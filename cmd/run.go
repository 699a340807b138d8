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

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/caas-team/lookout/internal/echo"
	"github.com/caas-team/lookout/internal/logger"
	"github.com/caas-team/lookout/pkg/api"
	"github.com/caas-team/lookout/pkg/config"
	"github.com/caas-team/lookout/pkg/db"
	"github.com/caas-team/lookout/pkg/lookout"
	"github.com/caas-team/lookout/pkg/monitor"
	"github.com/caas-team/lookout/pkg/probe"
)

// NewCmdRun creates a new run command
func NewCmdRun() *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run lookout",
		Long: "Lookout will be started with the provided configuration.\n" +
			"Settings are read from flags, LOOKOUT_ prefixed environment variables and the config file.",
		RunE: run(&logFile),
	}

	NewFlag("api.address", "apiAddress").String().Bind(cmd, api.DefaultListeningAddress, "api: The address the server is listening on")
	NewFlag("api.allowedOrigins", "allowedOrigins").StringSlice().Bind(cmd, nil, "api: Origins allowed to send cross origin requests")
	NewFlag("targets", "target").StringSlice().Bind(cmd, nil, "IP address to monitor from the start, can be repeated")
	NewFlag("probe.interval", "interval").Duration().Bind(cmd, probe.DefaultInterval, "probe: The interval between two probes of a target")
	NewFlag("probe.timeout", "timeout").Duration().Bind(cmd, probe.DefaultTimeout, "probe: The time to wait for an echo reply")
	NewFlag("monitor.resyncInterval", "resyncInterval").Duration().Bind(cmd, monitor.DefaultResyncInterval,
		"monitor: The interval between two reconciliations of the workers with the store")
	NewFlag("store.historyCapacity", "historyCapacity").Int().Bind(cmd, db.DefaultHistoryCapacity, "store: The number of probe results kept per target")
	cmd.PersistentFlags().StringVar(&logFile, "logFile", "", "path of a log file written in addition to stderr, rotated at 10MB")

	return cmd
}

// run is the entry point to start the lookout
func run(logFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		log := logger.NewLogger()
		if *logFile != "" {
			log = logger.NewFileLogger(*logFile)
		}
		ctx, stop := signal.NotifyContext(logger.IntoContext(context.Background(), log), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load(viper.GetViper(), cfgFile)
		if err != nil {
			log.Error("Failed to load config", "error", err)
			return err
		}
		if err = cfg.Validate(ctx); err != nil {
			log.Error("Error while validating the config", "error", err)
			return err
		}

		pinger := echo.New()
		l, err := lookout.New(cfg, pinger)
		if err != nil {
			log.Error("Failed to create lookout", "error", err)
			return err
		}

		log.Info("Running lookout", "address", cfg.Api.ListeningAddress, "privileged", pinger.Privileged(), "targets", len(cfg.Targets))
		if err = l.Run(ctx); err != nil {
			log.Error("Lookout stopped with error", "error", err)
			return err
		}
		return nil
	}
}
