package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caas-team/lookout/internal/ui"
)

// NewCmdRoot creates a new root command
func NewCmdRoot(version string) *cobra.Command {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "lookout",
		Short: "lookout, the reachability monitor",
		Long: "lookout continuously probes a dynamic set of targets with ICMP echo requests.\n" +
			"Targets are managed and the probe history is exposed via an API.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			ui.SetColor(!noColor)
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the config file (yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return rootCmd
}

// cfgFile is the path of the config file given by --config
var cfgFile string

// BuildCmd creates the root command with all child commands
func BuildCmd(version string) *cobra.Command {
	cmd := NewCmdRoot(version)
	cmd.AddCommand(NewCmdRun())
	cmd.AddCommand(NewCmdTargets())
	cmd.AddCommand(NewCmdStatus())
	cmd.AddCommand(NewCmdHealth())
	cmd.AddCommand(NewCmdGenDocs(cmd))
	return cmd
}

// Execute adds all child commands to the root command
// and executes the cmd tree
func Execute(version string) {
	cmd := BuildCmd(version)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
