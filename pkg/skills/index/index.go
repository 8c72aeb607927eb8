// Package index renders the skill catalog shown to the model in the system
// prompt. Only names and descriptions are included, packed greedily in
// priority order until the token budget is exhausted.
package index

import (
	"fmt"
	"strings"

	"github.com/jaguarliu/miniclaw-sub002/pkg/skills/registry"
	skilltypes "github.com/jaguarliu/miniclaw-sub002/pkg/types/skills"
)

const (
	// BaseOverheadTokens covers the wrapper markup and instructions.
	BaseOverheadTokens = 150
	// DefaultTokenBudget is used when no budget is configured.
	DefaultTokenBudget = 2000
)

const indexHeader = "\n---\n\n" +
	"## Available Skills\n\n" +
	"The following skills are available. To use a skill:\n" +
	"- Manual: User types `/skill-name arguments`\n" +
	"- Auto: Call `use_skill(skill_name=\"...\")` tool when a task matches a skill\n\n" +
	"<skills>\n"

const indexFooter = "</skills>\n\n" +
	"Call `use_skill` BEFORE writing code or creating files to load expert instructions.\n"

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Catalog supplies the skills eligible for the index.
type Catalog interface {
	Available() []skilltypes.SkillEntry
}

// Stats describes how the index was packed. TotalTokenCost is the cost of
// an index holding every available skill; Truncated is set when that cost
// exceeds the budget.
type Stats struct {
	TotalAvailable  int  `json:"totalAvailable"`
	IncludedInIndex int  `json:"includedInIndex"`
	TotalTokenCost  int  `json:"totalTokenCost"`
	TokenBudget     int  `json:"tokenBudget"`
	Truncated       bool `json:"truncated"`
}

// Builder renders index text from a catalog.
type Builder struct {
	catalog Catalog
	budget  int
}

// Option configures a Builder.
type Option func(*Builder)

// WithTokenBudget overrides DefaultTokenBudget.
func WithTokenBudget(budget int) Option {
	return func(b *Builder) { b.budget = budget }
}

func New(catalog Catalog, opts ...Option) *Builder {
	b := &Builder{catalog: catalog, budget: DefaultTokenBudget}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) TokenBudget() int { return b.budget }

func (b *Builder) sorted() []skilltypes.SkillEntry {
	entries := b.catalog.Available()
	registry.SortEntries(entries)
	return entries
}

// pack returns the longest priority-ordered prefix of entries that fits the
// budget. Packing stops at the first skill that does not fit.
func (b *Builder) pack(entries []skilltypes.SkillEntry) ([]skilltypes.SkillEntry, int) {
	used := BaseOverheadTokens
	for i, e := range entries {
		if used+e.TokenCost > b.budget {
			return entries[:i], used
		}
		used += e.TokenCost
	}
	return entries, used
}

// BuildIndex returns the system prompt fragment listing the skills that fit
// the budget, or "" when none do.
func (b *Builder) BuildIndex() string {
	included, _ := b.pack(b.sorted())
	if len(included) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(indexHeader)
	for _, e := range included {
		writeLine(&sb, e)
	}
	sb.WriteString(indexFooter)
	return sb.String()
}

// BuildCompactIndex lists every available skill without instructions and
// without enforcing the budget.
func (b *Builder) BuildCompactIndex() string {
	entries := b.sorted()
	if len(entries) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("<skills>\n")
	for _, e := range entries {
		writeLine(&sb, e)
	}
	sb.WriteString("</skills>")
	return sb.String()
}

func writeLine(sb *strings.Builder, e skilltypes.SkillEntry) {
	fmt.Fprintf(sb, "  <skill name=\"%s\">%s</skill>\n",
		EscapeXML(e.Metadata.Name), EscapeXML(e.Metadata.Description))
}

// Stats replays the packing without rendering text.
func (b *Builder) Stats() Stats {
	entries := b.sorted()
	included, _ := b.pack(entries)
	total := cost(entries)
	return Stats{
		TotalAvailable:  len(entries),
		IncludedInIndex: len(included),
		TotalTokenCost:  total,
		TokenBudget:     b.budget,
		Truncated:       total > b.budget,
	}
}

// IndexCost is the cost of an index holding every available skill.
func (b *Builder) IndexCost() int {
	return cost(b.catalog.Available())
}

func cost(entries []skilltypes.SkillEntry) int {
	total := BaseOverheadTokens
	for _, e := range entries {
		total += e.TokenCost
	}
	return total
}

// SkillList summarizes every available skill in priority order.
func (b *Builder) SkillList() []skilltypes.SkillSummary {
	entries := b.sorted()
	out := make([]skilltypes.SkillSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, skilltypes.SkillSummary{
			Name:        e.Metadata.Name,
			Description: e.Metadata.Description,
			TokenCost:   e.TokenCost,
		})
	}
	return out
}

// EscapeXML escapes the five XML special characters.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
