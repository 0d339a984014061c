// Package commands implements the remotetag command line.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "remotetag",
	Short: "Read audio tags from remote files using HTTP range requests",
	Long: `remotetag reads tagging jobs as JSON lines, fetches only the parts of each
remote file the tag parser needs through HTTP range requests, and writes one
JSON reply per job.

Use "remotetag [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}
