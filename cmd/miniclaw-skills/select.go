package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaguarliu/miniclaw-sub002/pkg/presenter"
)

var selectCmd = &cobra.Command{
	Use:   "select <input>",
	Short: "Show how an input would select a skill",
	Long: `Classify user input as a slash command, or a model response as a
[USE_SKILL:name] marker, and print the resulting selection as JSON.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		llmResponse, _ := cmd.Flags().GetString("llm-response")

		rt := newRuntime(cmd, false)
		sel := rt.Select(cmd.Context(), args[0], llmResponse)

		out, err := json.MarshalIndent(sel, "", "  ")
		if err != nil {
			presenter.Error(err, "failed to encode selection")
			os.Exit(1)
		}
		fmt.Println(string(out))
	},
}

func init() {
	selectCmd.Flags().String("llm-response", "", "Model response to scan for a [USE_SKILL:name] marker")
}
