package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jaguarliu/miniclaw-sub002/pkg/presenter"
	skilltypes "github.com/jaguarliu/miniclaw-sub002/pkg/types/skills"
)

// ListConfig holds configuration for the list command
type ListConfig struct {
	Output        string
	AvailableOnly bool
}

// NewListConfig creates a new ListConfig with default values
func NewListConfig() *ListConfig {
	return &ListConfig{Output: "table"}
}

// Validate rejects unknown output formats.
func (c *ListConfig) Validate() error {
	switch c.Output {
	case "table", "json", "yaml":
		return nil
	}
	return errors.Errorf("invalid output format %q, must be one of: table, json, yaml", c.Output)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered skills",
	Long: `List every discovered skill with its tier, availability and token cost.
Skills shadowed by a higher-priority tier are not shown.`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getListConfigFromFlags(cmd)
		if err := config.Validate(); err != nil {
			presenter.Error(err, "invalid flags")
			os.Exit(1)
		}

		rt := newRuntime(cmd, false)
		entries := rt.Registry.All()
		if config.AvailableOnly {
			entries = rt.Registry.Available()
		}
		if err := writeSkillList(os.Stdout, entries, config.Output); err != nil {
			presenter.Error(err, "failed to print skills")
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewListConfig()
	listCmd.Flags().StringP("output", "o", defaults.Output, "Output format (table, json, yaml)")
	listCmd.Flags().Bool("available", defaults.AvailableOnly, "Only list available skills")
}

func getListConfigFromFlags(cmd *cobra.Command) *ListConfig {
	config := NewListConfig()
	if output, err := cmd.Flags().GetString("output"); err == nil {
		config.Output = output
	}
	if available, err := cmd.Flags().GetBool("available"); err == nil {
		config.AvailableOnly = available
	}
	return config
}

// listRow is the serialized form of one skill.
type listRow struct {
	Name              string `json:"name" yaml:"name"`
	Description       string `json:"description" yaml:"description"`
	Priority          string `json:"priority" yaml:"priority"`
	Available         bool   `json:"available" yaml:"available"`
	UnavailableReason string `json:"unavailableReason,omitempty" yaml:"unavailableReason,omitempty"`
	TokenCost         int    `json:"tokenCost" yaml:"tokenCost"`
	SourcePath        string `json:"sourcePath" yaml:"sourcePath"`
}

func toRows(entries []skilltypes.SkillEntry) []listRow {
	rows := make([]listRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, listRow{
			Name:              e.Name(),
			Description:       e.Metadata.Description,
			Priority:          e.Priority().String(),
			Available:         e.Available,
			UnavailableReason: e.UnavailableReason,
			TokenCost:         e.TokenCost,
			SourcePath:        e.Metadata.SourcePath,
		})
	}
	return rows
}

func writeSkillList(w io.Writer, entries []skilltypes.SkillEntry, format string) error {
	rows := toRows(entries)
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No skills found.")
		return err
	}
	_, err := fmt.Fprintln(w, renderTable(rows))
	return err
}

var (
	headerStyle      = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle        = lipgloss.NewStyle().Padding(0, 1)
	unavailableStyle = cellStyle.Foreground(lipgloss.Color("240"))
)

func renderTable(rows []listRow) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "TIER", "STATUS", "TOKENS", "DESCRIPTION")

	for _, r := range rows {
		status := "available"
		if !r.Available {
			status = r.UnavailableReason
		}
		t.Row(r.Name, r.Priority, status, strconv.Itoa(r.TokenCost), r.Description)
	}

	t.StyleFunc(func(row, _ int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if row >= 0 && row < len(rows) && !rows[row].Available {
			return unavailableStyle
		}
		return cellStyle
	})
	return t.Render()
}
