package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jaguarliu/miniclaw-sub002/pkg/logger"
	skilltypes "github.com/jaguarliu/miniclaw-sub002/pkg/types/skills"
	tooltypes "github.com/jaguarliu/miniclaw-sub002/pkg/types/tools"
)

// UseSkillToolName is the name models call to activate a skill.
const UseSkillToolName = "use_skill"

const maxListedDescription = 80

// SkillCatalog is the registry view the tool needs.
type SkillCatalog interface {
	Available() []skilltypes.SkillEntry
	IsAvailable(name string) bool
}

// UseSkillTool lets a model activate a skill through function calling. It
// only confirms the activation; loading the skill is up to the caller.
type UseSkillTool struct {
	skills SkillCatalog
}

// UseSkillInput defines the input parameters for the use_skill tool
type UseSkillInput struct {
	SkillName string `json:"skill_name" jsonschema:"description=The name of the skill to activate (e.g. 'frontend-design' or 'xlsx')"`
}

// UseSkillOutput is the success payload.
type UseSkillOutput struct {
	SkillActivated bool   `json:"skill_activated"`
	SkillName      string `json:"skill_name"`
}

func NewUseSkillTool(skills SkillCatalog) *UseSkillTool {
	return &UseSkillTool{skills: skills}
}

func (t *UseSkillTool) Name() string { return UseSkillToolName }

// Description lists the skills available right now, so it changes as the
// registry refreshes.
func (t *UseSkillTool) Description() string {
	var lines []string
	for _, e := range t.skills.Available() {
		lines = append(lines, e.Name()+" - "+truncateDescription(e.Metadata.Description, maxListedDescription))
	}
	list := "(none)"
	if len(lines) > 0 {
		list = strings.Join(lines, "\n  ")
	}

	return "Activate a specialized skill to enhance your capabilities for the current task. " +
		"Skills provide expert-level instructions and workflows for specific task types. " +
		"ALWAYS call this tool BEFORE writing code or creating files when a matching skill exists. " +
		"Available skills:\n  " + list
}

func (t *UseSkillTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[UseSkillInput]()
}

func parseUseSkillInput(parameters string) (UseSkillInput, error) {
	var input UseSkillInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return input, errors.Wrap(err, "invalid input")
	}
	input.SkillName = strings.TrimSpace(input.SkillName)
	if input.SkillName == "" {
		return input, errors.New("skill_name is required")
	}
	return input, nil
}

func (t *UseSkillTool) ValidateInput(parameters string) error {
	_, err := parseUseSkillInput(parameters)
	return err
}

func (t *UseSkillTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	var input UseSkillInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("skill_name", input.SkillName),
	}, nil
}

// Execute confirms that the named skill is available.
func (t *UseSkillTool) Execute(ctx context.Context, parameters string) tooltypes.ToolResult {
	input, err := parseUseSkillInput(parameters)
	if err != nil {
		return tooltypes.ToolResult{Error: err.Error()}
	}

	if !t.skills.IsAvailable(input.SkillName) {
		logger.G(ctx).WithField("skill", input.SkillName).Warn("use_skill called with unavailable skill")
		available := t.skills.Available()
		names := make([]string, 0, len(available))
		for _, e := range available {
			names = append(names, e.Name())
		}
		return tooltypes.ToolResult{
			Error: fmt.Sprintf("Skill '%s' not found or unavailable. Available skills: %s", input.SkillName, strings.Join(names, ", ")),
		}
	}

	out, err := json.Marshal(UseSkillOutput{SkillActivated: true, SkillName: input.SkillName})
	if err != nil {
		return tooltypes.ToolResult{Error: err.Error()}
	}
	logger.G(ctx).WithField("skill", input.SkillName).Info("use_skill activated skill")
	return tooltypes.ToolResult{Result: string(out)}
}

// truncateDescription shortens s to at most n runes, ending in "...".
func truncateDescription(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
