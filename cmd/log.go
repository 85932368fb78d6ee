package cmd

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/worklog/internal/logfile"
)

var logCmd = &cobra.Command{
	Use:   "log [root]",
	Short: "Print a workspace's activity log entries",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return err
		}

		path := logfile.PathFor(abs)
		if !logfile.Exists(path) {
			cmd.Println("no activity log")
			return nil
		}

		entries, err := logfile.Read(path)
		if err != nil {
			return err
		}
		for _, e := range entries {
			cmd.Printf("%s  %s\n", e.At.Format(time.RFC3339), e.LoggedFor)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
}
