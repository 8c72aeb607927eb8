package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaguarliu/miniclaw-sub002/pkg/presenter"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Print the skill index injected into the system prompt",
	Long: `Print the skill index as it would be injected into a system prompt. Skills are
added by tier, then name, until the token budget is reached.`,
	Run: func(cmd *cobra.Command, _ []string) {
		compact, _ := cmd.Flags().GetBool("compact")
		stats, _ := cmd.Flags().GetBool("stats")

		rt := newRuntime(cmd, false)

		if stats {
			out, err := json.MarshalIndent(rt.Index.Stats(), "", "  ")
			if err != nil {
				presenter.Error(err, "failed to encode index stats")
				os.Exit(1)
			}
			fmt.Println(string(out))
			return
		}

		text := rt.Index.BuildIndex()
		if compact {
			text = rt.Index.BuildCompactIndex()
		}
		if text == "" {
			presenter.Warning("No available skills fit the index.")
			return
		}
		fmt.Println(text)
	},
}

func init() {
	indexCmd.Flags().Bool("compact", false, "Print the compact listing without instructions or budget")
	indexCmd.Flags().Bool("stats", false, "Print packing statistics as JSON")
}
