package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/caas-team/lookout/internal/logger"
	"github.com/caas-team/lookout/pkg/config"
	"github.com/caas-team/lookout/pkg/healthz"
)

// ErrUnhealthy is returned by the health command if any check failed
var ErrUnhealthy = errors.New("lookout is unhealthy")

// NewCmdHealth creates a new health command
func NewCmdHealth() *cobra.Command {
	var (
		address string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the health of a local lookout",
		Long: "Checks the api, the metrics endpoint and that every target has a running worker.\n" +
			"Exits non-zero if lookout is unhealthy, suitable as container health check.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.NewLogger()
			ctx, cancel := context.WithTimeout(logger.IntoContext(context.Background(), log), timeout)
			defer cancel()

			if !cmd.Flags().Changed("apiAddress") {
				cfg, err := config.Load(viper.GetViper(), cfgFile)
				if err != nil {
					return err
				}
				address = cfg.Api.ListeningAddress
			}

			if !healthz.New(address, timeout).CheckOverallHealth(ctx) {
				return ErrUnhealthy
			}
			log.Debug("Lookout is healthy", "address", address)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "apiAddress", "", "the address the api is listening on, defaults to the configured one")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "timeout of the whole health check")
	return cmd
}
