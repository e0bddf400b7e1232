// Command timeline builds and serves the Commons membership timeline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "timeline",
	Short:         "Build and serve the House of Commons membership timeline",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file (overrides CIVITAS_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log format: json or text")
	rootCmd.PersistentFlags().StringVar(&flags.outputDir, "output-dir", "", "Directory for timeline artifacts")
	rootCmd.PersistentFlags().StringVar(&flags.databaseURL, "database-url", "", "Postgres DSN for run persistence")

	rootCmd.AddCommand(buildCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
