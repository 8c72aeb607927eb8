package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaguarliu/miniclaw-sub002/pkg/presenter"
)

var checkCmd = &cobra.Command{
	Use:   "check [skill-name...]",
	Short: "Check skill requirements",
	Long: `Evaluate the requirements of every discovered skill, or only the named ones, and
report which are available. Exits non-zero when a checked skill is unavailable.`,
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime(cmd, false)

		presenter.Section(fmt.Sprintf("Platform: %s", rt.Evaluator.CurrentOS(cmd.Context())))

		entries := rt.Registry.All()
		if len(args) > 0 {
			wanted := make(map[string]bool, len(args))
			for _, a := range args {
				wanted[a] = true
			}
			filtered := entries[:0]
			for _, e := range entries {
				if wanted[e.Name()] {
					filtered = append(filtered, e)
					delete(wanted, e.Name())
				}
			}
			entries = filtered
			for name := range wanted {
				presenter.Warning(fmt.Sprintf("skill '%s' not found", name))
			}
		}

		failed := 0
		for _, e := range entries {
			presenter.SkillStatus(e.Name(), e.Available, e.UnavailableReason)
			if !e.Available {
				failed++
			}
		}

		stats := rt.Registry.Stats()
		presenter.Separator()
		presenter.Info(fmt.Sprintf("%d skills, %d available, %d unavailable", stats.Total, stats.Available, stats.Unavailable))
		if failed > 0 {
			os.Exit(1)
		}
	},
}
