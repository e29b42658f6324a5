// Package cmd holds the rally metrics coordinator CLI.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/modeyang/rally/pkg/config"
)

var configLocation string

// RootCmd is the root command; all sub-commands are registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "rally",
		Short:        "rally collects, merges and stores benchmark metrics.",
		SilenceUsage: true,
	}

	defaultLocation, err := config.DefaultLocation()
	if err != nil {
		defaultLocation = "rally.ini"
	}
	cmd.PersistentFlags().StringVar(&configLocation, "config", defaultLocation, "Path to the rally configuration file")

	cmd.AddCommand(
		serveCmd(),
		racesCmd(),
	)

	return cmd
}

func loadConfig() (*config.Config, error) {
	return config.LoadFrom(configLocation)
}
