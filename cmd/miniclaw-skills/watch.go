package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jaguarliu/miniclaw-sub002/pkg/logger"
	"github.com/jaguarliu/miniclaw-sub002/pkg/presenter"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills"
)

const watchPollInterval = 250 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the skill roots and report registry changes",
	Long: `Watch the project, user and builtin skill roots and print the registry summary
every time skill files are added, changed or removed.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		cmd.SetContext(ctx)

		rt := newRuntime(cmd, true)
		defer rt.Close()

		if !rt.Watching() {
			presenter.Error(errors.New("file watching is disabled"), "set skills.watch_enabled and skills.enabled to true")
			os.Exit(1)
		}

		presenter.Info(fmt.Sprintf("Watching %d directories. Press Ctrl+C to stop.", rt.Watcher().WatchedCount()))
		reportRegistry(rt)

		version := rt.Registry.SnapshotVersion()
		ticker := time.NewTicker(watchPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				presenter.Warning("Stopping watcher...")
				return
			case <-ticker.C:
				current := rt.Registry.SnapshotVersion()
				if current == version {
					continue
				}
				version = current
				logger.G(ctx).WithField("version", current).Debug("registry changed")
				reportRegistry(rt)
			}
		}
	},
}

func reportRegistry(rt *skills.Runtime) {
	stats := rt.Registry.Stats()
	presenter.Section(fmt.Sprintf("Registry v%d: %d skills, %d available", rt.Registry.SnapshotVersion(), stats.Total, stats.Available))
	for _, e := range rt.Registry.All() {
		presenter.SkillStatus(e.Name(), e.Available, e.UnavailableReason)
	}
}
