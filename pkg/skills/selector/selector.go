// Package selector recognizes skill invocations in user input ("/name args")
// and in model output ("[USE_SKILL:name]").
package selector

import (
	"context"
	"regexp"
	"strings"

	"github.com/jaguarliu/miniclaw-sub002/pkg/logger"
	skilltypes "github.com/jaguarliu/miniclaw-sub002/pkg/types/skills"
)

var (
	slashCommand = regexp.MustCompile(`(?s)^/(\S+)(?:\s+(.*))?$`)
	useSkill     = regexp.MustCompile(`\[USE_SKILL:(\S+?)\]`)
)

const maxLoggedArgs = 50

// Availability reports whether a skill may be selected.
type Availability interface {
	IsAvailable(name string) bool
}

// Selector classifies text as a skill invocation. It has no side effects
// beyond logging.
type Selector struct {
	skills Availability
}

func New(skills Availability) *Selector {
	return &Selector{skills: skills}
}

// TryManualSelection matches a slash command. Unknown or unavailable skills
// yield no selection so the input can be handled as ordinary chat.
func (s *Selector) TryManualSelection(ctx context.Context, input string) skilltypes.SkillSelection {
	m := slashCommand.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return skilltypes.NoSelection(input)
	}

	name, args := m[1], m[2]
	log := logger.G(ctx).WithField("skill", name)
	if !s.skills.IsAvailable(name) {
		log.Warn("skill not found or unavailable")
		return skilltypes.NoSelection(input)
	}

	log.WithField("args", truncate(args, maxLoggedArgs)).Info("manual skill selection")
	return skilltypes.ManualSelection(name, args, input)
}

// ParseFromLLMResponse looks for the first [USE_SKILL:name] marker in the
// model's response. The original user input becomes the arguments.
func (s *Selector) ParseFromLLMResponse(ctx context.Context, response, originalInput string) skilltypes.SkillSelection {
	name := ExtractSkillNameFromLLM(response)
	if name == "" {
		return skilltypes.NoSelection(originalInput)
	}

	log := logger.G(ctx).WithField("skill", name)
	if !s.skills.IsAvailable(name) {
		log.Warn("model requested unavailable skill")
		return skilltypes.NoSelection(originalInput)
	}

	log.Info("auto skill selection from model response")
	return skilltypes.AutoSelection(name, originalInput)
}

// IsSlashCommand reports whether input has slash command syntax,
// regardless of whether the named skill exists.
func IsSlashCommand(input string) bool {
	return slashCommand.MatchString(strings.TrimSpace(input))
}

// ExtractSkillName returns the command name of a slash command, or "".
func ExtractSkillName(input string) string {
	if m := slashCommand.FindStringSubmatch(strings.TrimSpace(input)); m != nil {
		return m[1]
	}
	return ""
}

// ContainsUseSkill reports whether response carries a USE_SKILL marker.
func ContainsUseSkill(response string) bool {
	return useSkill.MatchString(response)
}

// ExtractSkillNameFromLLM returns the name in the first USE_SKILL marker, or "".
func ExtractSkillNameFromLLM(response string) string {
	if m := useSkill.FindStringSubmatch(response); m != nil {
		return m[1]
	}
	return ""
}

// RemoveUseSkillMarker strips every USE_SKILL marker and trims the result.
func RemoveUseSkillMarker(response string) string {
	return strings.TrimSpace(useSkill.ReplaceAllLiteralString(response, ""))
}

func truncate(s string, n int) string {
	if s == "" {
		return "none"
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
