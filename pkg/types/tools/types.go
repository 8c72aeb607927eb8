// Package tools defines the contract for tools exposed to a model.
package tools

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"
)

type Tool interface {
	GenerateSchema() *jsonschema.Schema
	Name() string
	Description() string
	ValidateInput(parameters string) error
	Execute(ctx context.Context, parameters string) ToolResult
	TracingKVs(parameters string) ([]attribute.KeyValue, error)
}

type ToolResult struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (t ToolResult) IsError() bool { return t.Error != "" }

func (t ToolResult) String() string {
	out := ""
	if t.Error != "" {
		out = fmt.Sprintf(`<error>
%s
</error>
`, t.Error)
	}
	if t.Result != "" {
		out += fmt.Sprintf(`<result>
%s
</result>
`, t.Result)
	}
	return out
}

// Definition is the declaration handed to a model: name, description and
// JSON schema of the input.
type Definition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"input_schema"`
}

// Define builds the declaration of t.
func Define(t Tool) Definition {
	return Definition{Name: t.Name(), Description: t.Description(), InputSchema: t.GenerateSchema()}
}
