package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jaguarliu/miniclaw-sub002/pkg/presenter"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills/template"
	skilltypes "github.com/jaguarliu/miniclaw-sub002/pkg/types/skills"
)

var renderCmd = &cobra.Command{
	Use:   "render <skill-name> [arguments...]",
	Short: "Activate a skill and print its rendered body",
	Long: `Activate a skill as if it had been invoked with "/<skill-name> [arguments...]" and
print the body with placeholders substituted.

Examples:
  miniclaw-skills render deploy staging
  miniclaw-skills render review --var CURRENT_FILE=main.go --config repo.owner=me`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		vars, _ := cmd.Flags().GetStringToString("var")
		configs, _ := cmd.Flags().GetStringToString("config")

		rt := newRuntime(cmd, false)

		name := args[0]
		arguments := strings.Join(args[1:], " ")
		sel := skilltypes.ManualSelection(name, arguments, strings.TrimSpace("/"+name+" "+arguments))

		loaded, ok := rt.Prepare(cmd.Context(), sel, newTemplateContext(vars, configs))
		if !ok {
			presenter.Error(errors.Errorf("skill '%s' is unknown or unavailable", name), "failed to activate skill")
			os.Exit(1)
		}
		fmt.Println(loaded.Body)
	},
}

func init() {
	renderCmd.Flags().StringToString("var", nil, "Template variable as KEY=VALUE (repeatable)")
	renderCmd.Flags().StringToString("config", nil, "Config value for ${CONFIG:key} as key=value (repeatable)")
}

// newTemplateContext seeds the working directory and applies overrides.
func newTemplateContext(vars, configs map[string]string) *template.Context {
	tctx := template.NewContext()
	if cwd, err := os.Getwd(); err == nil {
		tctx.WithCwd(cwd).WithProjectRoot(cwd)
	}
	tctx.WithAll(vars)
	for k, v := range configs {
		tctx.SetConfig(k, v)
	}
	return tctx
}
