// Package cmd implements the gwsuite command line, used to inspect what a
// cluster offers the test suites and to prepare certificates ahead of a run.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kgateway-dev/gwsuite/pkg/logging"
	"github.com/kgateway-dev/gwsuite/pkg/settings"
)

// NewRootCommand returns the gwsuite command with every subcommand attached.
// Settings are read from GWSUITE_* environment variables before any subcommand runs.
func NewRootCommand() *cobra.Command {
	var s settings.Settings
	rootCmd := &cobra.Command{
		Use:           "gwsuite",
		Short:         "Gateway lifecycle tooling for the API management test suites",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			built, err := settings.BuildSettings()
			if err != nil {
				return err
			}
			s = *built
			logging.Configure(logging.Options{Format: s.LogFormat})
			return logging.SetLevels(s.LogLevel)
		},
	}
	rootCmd.AddCommand(
		newCapabilitiesCommand(&s),
		newCertsCommand(&s),
	)
	return rootCmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
