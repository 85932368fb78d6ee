package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/worklog/internal/config"
	"github.com/fakeyudi/worklog/internal/gitx"
	"github.com/fakeyudi/worklog/internal/notify"
	"github.com/fakeyudi/worklog/internal/session"
	"github.com/fakeyudi/worklog/internal/tui"
	"github.com/fakeyudi/worklog/internal/watcher"
)

var (
	runMonitor bool
	runMinutes int
)

var runCmd = &cobra.Command{
	Use:   "run [root...]",
	Short: "Track the given workspace roots until stopped",
	Long: `Starts a session per workspace root (default: the current directory)
and runs until interrupted. SIGHUP restarts every session at its full
budget; SIGINT/SIGTERM disables tracking and exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		n := notify.New(cfg.Verbose)

		roots := resolveRoots(args, n)
		if len(roots) == 0 {
			// Declining to start is a warning, not an error.
			n.Warnf("no workspace root open, nothing to track")
			return nil
		}

		minutes := cfg.TimerMinutes
		if runMinutes > 0 {
			minutes = runMinutes
		}

		reg := session.NewRegistry(session.Options{
			Duration:  time.Duration(minutes) * time.Minute,
			Committer: &gitx.Committer{Prefix: cfg.CommitPrefix},
			Probe:     gitx.IsRepository,
			Notifier:  n,
		})
		defer reg.Disable()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		for _, root := range roots {
			if _, err := reg.Add(root); err != nil {
				n.Warnf("%v", err)
				continue
			}
			go func(root string) {
				if err := watcher.Watch(ctx, root, cfg.IgnorePatterns, func() { reg.Pulse(root) }); err != nil {
					n.Errorf("%s: watcher failed: %v", root, err)
				}
			}(root)
		}
		reg.Activate()

		if runMonitor && term.IsTerminal(os.Stdout.Fd()) {
			return tui.Run(reg)
		}

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGHUP, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigs)

		for sig := range sigs {
			if sig == syscall.SIGHUP {
				reg.Restart()
				continue
			}
			return nil
		}
		return nil
	},
}

// resolveRoots turns command arguments into absolute, existing
// directory paths. Missing roots are reported and skipped.
func resolveRoots(args []string, n notify.Notifier) []string {
	if len(args) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return nil
		}
		args = []string{cwd}
	}

	var roots []string
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			n.Warnf("%s: %v", arg, err)
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			n.Warnf("%s: not a directory, skipping", abs)
			continue
		}
		roots = append(roots, abs)
	}
	return roots
}

func init() {
	runCmd.Flags().BoolVar(&runMonitor, "monitor", false, "Show a live countdown dashboard")
	runCmd.Flags().IntVar(&runMinutes, "minutes", 0, fmt.Sprintf("Timer duration in minutes (default from config, %d)", config.DefaultTimerMinutes))
	rootCmd.AddCommand(runCmd)
}
