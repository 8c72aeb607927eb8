package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jaguarliu/miniclaw-sub002/pkg/presenter"
)

var installCmd = &cobra.Command{
	Use:   "install <file.md|file.zip>",
	Short: "Install a skill into the user skill root",
	Long: `Install a SKILL.md file or a zip archive containing one (at the top level or one
directory deep) into the user skill root. An existing skill of the same name is
replaced.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			presenter.Error(errors.Wrapf(err, "failed to read %s", path), "failed to install skill")
			os.Exit(1)
		}

		rt := newRuntime(cmd, false)
		if !rt.Enabled {
			presenter.Error(errors.New("skills are disabled"), "failed to install skill")
			os.Exit(1)
		}

		result, err := rt.Installer.Install(cmd.Context(), filepath.Base(path), data)
		if err != nil {
			presenter.Error(err, "failed to install skill")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("Installed skill '%s' to %s", result.Name, result.Dir))
		if entry, ok := rt.Registry.Get(result.Name); ok {
			presenter.SkillStatus(entry.Name(), entry.Available, entry.UnavailableReason)
		}
	},
}
