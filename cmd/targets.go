package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/caas-team/lookout/internal/httpclient"
	"github.com/caas-team/lookout/internal/logger"
	"github.com/caas-team/lookout/internal/ui"
	"github.com/caas-team/lookout/pkg/client"
	"github.com/caas-team/lookout/pkg/config"
	"github.com/caas-team/lookout/pkg/db"
)

// NewCmdTargets creates the targets command and its child commands
func NewCmdTargets() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Manage the targets of a running lookout",
		Long:  `List, add and delete the targets of a running lookout and show their probe history`,
	}
	addClientFlags(cmd)

	cmd.AddCommand(
		newCmdTargetsList(),
		newCmdTargetsAdd(),
		newCmdTargetsGet(),
		newCmdTargetsDelete(),
		newCmdTargetsHistory(),
		newCmdTargetsWatch(),
	)
	return cmd
}

// NewCmdStatus creates the status command
func NewCmdStatus() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the monitor status of a running lookout",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, cmd *cobra.Command, c *client.Client, _ []string) error {
			status, err := c.Status(ctx)
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), viper.GetString("output"), status, func() string {
				return fmt.Sprintf("targets: %d\nrunning workers: %d", status.Targets, len(status.Running))
			})
		}),
	}
	addClientFlags(cmd)
	return cmd
}

func newCmdTargetsList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all targets with their latest probe result",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, cmd *cobra.Command, c *client.Client, _ []string) error {
			targets, err := c.List(ctx)
			if err != nil {
				return err
			}
			format := viper.GetString("output")
			if format != outputTable {
				return printOutput(cmd.OutOrStdout(), format, targets, nil)
			}

			rows := make([]ui.TargetRow, 0, len(targets))
			for _, t := range targets {
				history, err := c.Results(ctx, t.ID)
				if err != nil && !errors.Is(err, client.ErrNotFound) {
					return err
				}
				rows = append(rows, ui.TargetRow{Target: t, History: history})
			}
			return printOutput(cmd.OutOrStdout(), format, targets, func() string {
				return ui.RenderTargets(rows)
			})
		}),
	}
}

func newCmdTargetsAdd() *cobra.Command {
	return &cobra.Command{
		Use:     "add ADDRESS...",
		Short:   "Add targets for the given IP addresses",
		Example: "lookout targets add 8.8.8.8 2001:4860:4860::8888",
		Args:    cobra.MinimumNArgs(1),
		RunE: withClient(func(ctx context.Context, cmd *cobra.Command, c *client.Client, args []string) error {
			added := make([]db.Target, 0, len(args))
			for _, addr := range args {
				t, err := c.Add(ctx, addr)
				if err != nil {
					return fmt.Errorf("failed to add %q: %w", addr, err)
				}
				added = append(added, t)
			}
			return printOutput(cmd.OutOrStdout(), viper.GetString("output"), added, func() string {
				return ui.RenderTargets(rowsOf(added))
			})
		}),
	}
}

func newCmdTargetsGet() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a single target",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(ctx context.Context, cmd *cobra.Command, c *client.Client, args []string) error {
			id, err := db.ParseTargetID(args[0])
			if err != nil {
				return fmt.Errorf("invalid target id %q: %w", args[0], err)
			}
			t, err := c.Get(ctx, id)
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), viper.GetString("output"), t, func() string {
				return ui.RenderTargets(rowsOf([]db.Target{t}))
			})
		}),
	}
}

func newCmdTargetsDelete() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete targets and stop probing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: withClient(func(ctx context.Context, cmd *cobra.Command, c *client.Client, args []string) error {
			for _, arg := range args {
				id, err := db.ParseTargetID(arg)
				if err != nil {
					return fmt.Errorf("invalid target id %q: %w", arg, err)
				}
				if err = c.Delete(ctx, id); err != nil {
					return fmt.Errorf("failed to delete %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			}
			return nil
		}),
	}
}

func newCmdTargetsHistory() *cobra.Command {
	return &cobra.Command{
		Use:   "history ID",
		Short: "Show the probe history of a target, oldest result first",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(ctx context.Context, cmd *cobra.Command, c *client.Client, args []string) error {
			id, err := db.ParseTargetID(args[0])
			if err != nil {
				return fmt.Errorf("invalid target id %q: %w", args[0], err)
			}
			results, err := c.Results(ctx, id)
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), viper.GetString("output"), results, func() string {
				return ui.RenderResults(results) + "\n" + ui.RenderSparkline(results, ui.SparklineWidth)
			})
		}),
	}
}

func newCmdTargetsWatch() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow target changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, cmd *cobra.Command, c *client.Client, _ []string) error {
			format := viper.GetString("output")
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			err := c.Watch(ctx, func(m client.Message) error {
				return printOutput(cmd.OutOrStdout(), format, m, func() string {
					switch {
					case m.Kind == "lagged":
						return fmt.Sprintf("%s missed %d events, run 'lookout targets list' to refresh",
							ui.RenderStatus(db.StatusTimeout), m.Missed)
					case m.Target != nil:
						return fmt.Sprintf("%-8s %s %s", m.Kind, m.ID, m.Target.Address)
					default:
						return fmt.Sprintf("%-8s %s", m.Kind, m.ID)
					}
				})
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}),
	}
}

func rowsOf(targets []db.Target) []ui.TargetRow {
	rows := make([]ui.TargetRow, 0, len(targets))
	for _, t := range targets {
		rows = append(rows, ui.TargetRow{Target: t})
	}
	return rows
}

// clientFlags maps the configuration keys of the client commands to their cli flags.
// They are bound when a command runs since several commands share the keys.
var clientFlags = map[string]string{
	"client.server":  "server",
	"client.timeout": "requestTimeout",
	"output":         "output",
}

// addClientFlags registers the flags needed to reach a running lookout
func addClientFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("server", client.DefaultServer, "base url of the lookout api")
	cmd.PersistentFlags().Duration("requestTimeout", client.DefaultTimeout, "timeout of a single api request")
	cmd.PersistentFlags().StringP("output", "o", outputTable, "output format, one of table, json or yaml")
}

type clientFunc func(ctx context.Context, cmd *cobra.Command, c *client.Client, args []string) error

// withClient creates the api client from the configuration before calling fn
func withClient(fn clientFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		for key, name := range clientFlags {
			if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
				return err
			}
		}
		if err := validOutput(viper.GetString("output")); err != nil {
			return err
		}
		cfg, err := loadClientConfig()
		if err != nil {
			return err
		}

		log := logger.NewLogger()
		ctx := logger.IntoContext(context.Background(), log)
		ctx = httpclient.IntoContext(ctx, &http.Client{Timeout: cfg.Timeout})
		return fn(ctx, cmd, client.New(cfg), args)
	}
}

func loadClientConfig() (client.Config, error) {
	v := viper.GetViper()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := client.DefaultConfig()
	cfg.Server = v.GetString("client.server")
	if d := v.GetDuration("client.timeout"); d > 0 {
		cfg.Timeout = d
	}
	if err := cfg.Validate(); err != nil {
		return client.Config{}, err
	}
	return cfg, nil
}
