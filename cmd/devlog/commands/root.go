// Package commands implements the devlog CLI commands using cobra.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mlinna/devlog/internal/config"
	"github.com/mlinna/devlog/internal/logging"

	// Default language support.
	_ "github.com/mlinna/devlog/internal/langsupport/java"
)

var (
	// Version is set at build time
	Version = "0.2.0"
)

var rootCmd = &cobra.Command{
	Use:   "devlog",
	Short: "Structured activity logging for development environments",
	Long: `Devlog turns raw development activity - compiler diagnostics, console
output, build and run sessions - into a structured, replayable NDJSON
event log with normalized error categories.

Capture output with 'devlog ingest', inspect it with 'devlog logs',
'devlog stats' and 'devlog watch', or run the spool daemon.`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file path")
}

// loadConfig reads the config named by --config (or the default path) and
// initializes the operational logger from it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := logging.Init(logging.Config{
		Level:         cfg.Logging.Level,
		Dir:           cfg.Logging.Dir,
		Format:        cfg.Logging.Format,
		RetentionDays: cfg.Logging.RetentionDays,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}
