package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/worklog/internal/config"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

var flagVerbose bool

var rootCmd = &cobra.Command{
	Use:   "worklog",
	Short: "Track active coding time per workspace and commit the log into git",
	Long: `worklog watches workspace roots for editing activity, counts down a
per-workspace timer that only advances while you are idle, and on each
expiry appends an activity record to a worklog-log file at the workspace
root and commits it into the workspace's git history.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load and merge config files: global, then the project config
		// of the current directory.
		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		project, err := config.LoadProject(cwd)
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)
		if flagVerbose {
			cfg.Verbose = true
		}
		return cfg.Validate()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug diagnostics")
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}
