package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Server-authoritative hitscan weapon simulation and combat recorder",
		Version:      Version + " (" + BuildDate + ")",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configDir, "config-dir", ".", "directory containing "+appName+".cfg.json")
	flags.String("log-level", "", "override logLevel from the config file")
	_ = viper.BindPFlag("logLevel", flags.Lookup("log-level"))

	root.AddCommand(
		newSimulateCmd(a),
		newServeCmd(a),
		newWeaponsCmd(a),
	)
	return root
}
