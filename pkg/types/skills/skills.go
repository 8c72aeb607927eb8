// Package skills defines the shared data model of the skills runtime:
// skill metadata, gating requirements, registry entries, activated skills
// and selection results.
package skills

import (
	"path/filepath"
	"time"
)

// Priority ranks the tier a skill was discovered in. Lower values win.
type Priority int

const (
	PriorityProject Priority = 0
	PriorityUser    Priority = 1
	PriorityBuiltin Priority = 2
)

func (p Priority) String() string {
	switch p {
	case PriorityProject:
		return "project"
	case PriorityUser:
		return "user"
	case PriorityBuiltin:
		return "builtin"
	default:
		return "unknown"
	}
}

// SkillRequires lists the runtime preconditions of a skill. A nil
// *SkillRequires means the skill is unconditional.
type SkillRequires struct {
	Env     []string `json:"env,omitempty" yaml:"env,omitempty" mapstructure:"env"`
	Bins    []string `json:"bins,omitempty" yaml:"bins,omitempty" mapstructure:"bins"`
	AnyBins []string `json:"anyBins,omitempty" yaml:"anyBins,omitempty" mapstructure:"anyBins"`
	Config  []string `json:"config,omitempty" yaml:"config,omitempty" mapstructure:"config"`
	OS      []string `json:"os,omitempty" yaml:"os,omitempty" mapstructure:"os"`
}

// IsEmpty reports whether no requirement is declared.
func (r *SkillRequires) IsEmpty() bool {
	return r == nil ||
		len(r.Env) == 0 && len(r.Bins) == 0 && len(r.AnyBins) == 0 && len(r.Config) == 0 && len(r.OS) == 0
}

// SkillMetadata is the parsed frontmatter of a skill file plus its origin.
type SkillMetadata struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	AllowedTools  []string       `json:"allowedTools,omitempty"`
	ConfirmBefore []string       `json:"confirmBefore,omitempty"`
	Requires      *SkillRequires `json:"requires,omitempty"`
	PrimaryEnv    string         `json:"primaryEnv,omitempty"`
	SourcePath    string         `json:"sourcePath"`
	Priority      Priority       `json:"priority"`
}

// BaseDir is the directory holding the skill file.
func (m SkillMetadata) BaseDir() string {
	return filepath.Dir(m.SourcePath)
}

// ParsedSkill is what the parser produces for one skill file.
type ParsedSkill struct {
	Metadata     SkillMetadata
	Body         string
	LastModified time.Time
}

// SkillEntry is the registry's view of a discovered skill. Entries are never
// mutated after they are published.
type SkillEntry struct {
	Metadata          SkillMetadata `json:"metadata"`
	Available         bool          `json:"available"`
	UnavailableReason string        `json:"unavailableReason,omitempty"`
	LastModified      time.Time     `json:"lastModified"`
	TokenCost         int           `json:"tokenCost"`
}

func (e *SkillEntry) Name() string { return e.Metadata.Name }

func (e *SkillEntry) Priority() Priority { return e.Metadata.Priority }

// LoadedSkill is an activated skill ready for prompt injection. Nil tool
// sets mean no restriction is declared.
type LoadedSkill struct {
	Name          string
	Description   string
	Body          string
	BasePath      string
	AllowedTools  map[string]struct{}
	ConfirmBefore map[string]struct{}
	RuntimeEnv    map[string]string
}

// IsToolAllowed reports whether tool may be used while the skill is active.
func (s *LoadedSkill) IsToolAllowed(tool string) bool {
	if s.AllowedTools == nil {
		return true
	}
	_, ok := s.AllowedTools[tool]
	return ok
}

// NeedsConfirmation reports whether tool must be confirmed by the user.
func (s *LoadedSkill) NeedsConfirmation(tool string) bool {
	_, ok := s.ConfirmBefore[tool]
	return ok
}

// ToSet converts a declared tool list into a set. A nil list stays nil.
func ToSet(items []string) map[string]struct{} {
	if items == nil {
		return nil
	}
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// SkillSummary is a compact listing row used by UIs and completion.
type SkillSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TokenCost   int    `json:"tokenCost"`
}
