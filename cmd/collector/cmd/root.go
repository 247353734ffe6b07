// Package cmd implements the collector CLI: cobra commands wiring config,
// logging, the sqlite-backed stores, the secret vault, and the job/batch
// execution core together for operator use.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "velocitycollector",
	Short: "velocitycollector drives scripted SSH collection runs against network devices",
	Long: `velocitycollector connects to network devices over SSH, runs a job's
command set against each matching device, validates the output against a
structured-text template catalog, and persists the result.

Common workflows:

  Discover working credentials for a device inventory:
    velocitycollector discover --max-workers 8

  Run a single job:
    velocitycollector job run ./jobs/show-arp.json

  Run an ordered batch of jobs:
    velocitycollector batch run ./batches/nightly.yaml

  Manage the credential vault:
    velocitycollector vault init
    velocitycollector vault add --name core-routers --username admin

Configuration is layered: built-in defaults, an optional
.velocitycollector.yaml file in $HOME or the working directory, then
VCOLLECTOR_-prefixed environment variables, in that order of precedence.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .velocitycollector.yaml in $HOME or .)")
}
