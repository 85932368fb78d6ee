package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/worklog/internal/gitx"
	"github.com/fakeyudi/worklog/internal/logfile"
)

var statusCmd = &cobra.Command{
	Use:   "status [root...]",
	Short: "Summarize the activity log of each workspace root",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			args = []string{cwd}
		}

		for _, arg := range args {
			root, err := filepath.Abs(arg)
			if err != nil {
				return err
			}

			cmd.Printf("%s\n", root)

			entries, err := logfile.Read(logfile.PathFor(root))
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				cmd.Println("  no activity logged")
			} else {
				last := entries[len(entries)-1]
				cmd.Printf("  Entries: %d\n", len(entries))
				cmd.Printf("  Logged: %s\n", logfile.Total(entries))
				cmd.Printf("  Last entry: %s\n", last.At.Format(time.RFC3339))
			}

			if gitx.IsRepository(root) {
				cmd.Println("  Repository: initialized")
			} else {
				cmd.Println("  Repository: none")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
