package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jaguarliu/miniclaw-sub002/pkg/presenter"
)

var showCmd = &cobra.Command{
	Use:   "show <skill-name>",
	Short: "Show a skill's metadata and body",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime(cmd, false)
		name := args[0]

		entry, ok := rt.Registry.Get(name)
		if !ok {
			presenter.Error(errors.Errorf("skill '%s' not found", name), "unknown skill")
			os.Exit(1)
		}

		meta := entry.Metadata
		presenter.Section("Skill " + meta.Name)
		presenter.Field("Description", meta.Description)
		presenter.Field("Tier", meta.Priority.String())
		presenter.Field("Source", meta.SourcePath)
		presenter.Field("Token cost", strconv.Itoa(entry.TokenCost))
		if len(meta.AllowedTools) > 0 {
			presenter.Field("Allowed tools", strings.Join(meta.AllowedTools, ", "))
		}
		if len(meta.ConfirmBefore) > 0 {
			presenter.Field("Confirm before", strings.Join(meta.ConfirmBefore, ", "))
		}
		if meta.PrimaryEnv != "" {
			presenter.Field("Primary env", meta.PrimaryEnv)
		}
		presenter.SkillStatus(meta.Name, entry.Available, entry.UnavailableReason)

		if !entry.Available {
			return
		}
		loaded, ok := rt.Registry.Activate(cmd.Context(), name)
		if !ok {
			presenter.Error(errors.Errorf("skill '%s' could not be loaded", name), "failed to load skill body")
			os.Exit(1)
		}
		presenter.Separator()
		fmt.Println(loaded.Body)
	},
}
