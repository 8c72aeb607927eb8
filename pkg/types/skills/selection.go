package skills

// SelectionSource says how a skill was chosen.
type SelectionSource string

const (
	SourceNone   SelectionSource = "none"
	SourceManual SelectionSource = "manual"
	SourceAuto   SelectionSource = "auto"
)

// SkillSelection is the outcome of inspecting user input or model output.
type SkillSelection struct {
	Selected      bool            `json:"selected"`
	SkillName     string          `json:"skillName,omitempty"`
	Arguments     string          `json:"arguments,omitempty"`
	Source        SelectionSource `json:"source"`
	OriginalInput string          `json:"originalInput"`
}

// NoSelection is returned when nothing was selected.
func NoSelection(input string) SkillSelection {
	return SkillSelection{Source: SourceNone, OriginalInput: input}
}

// ManualSelection records a slash command.
func ManualSelection(name, args, input string) SkillSelection {
	return SkillSelection{Selected: true, SkillName: name, Arguments: args, Source: SourceManual, OriginalInput: input}
}

// AutoSelection records a marker emitted by the model. The user input that
// prompted the response doubles as the arguments.
func AutoSelection(name, input string) SkillSelection {
	return SkillSelection{Selected: true, SkillName: name, Arguments: input, Source: SourceAuto, OriginalInput: input}
}
