// Package tools implements the tools the skill runtime declares to a model.
package tools

import (
	"sort"

	"github.com/invopop/jsonschema"

	tooltypes "github.com/jaguarliu/miniclaw-sub002/pkg/types/tools"
)

// GenerateSchema generates a JSON schema for the given type
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T

	return reflector.Reflect(v)
}

// Set is a name-indexed collection of tools.
type Set map[string]tooltypes.Tool

// NewSet indexes tools by name. Later tools replace earlier ones.
func NewSet(tools ...tooltypes.Tool) Set {
	s := make(Set, len(tools))
	for _, t := range tools {
		s[t.Name()] = t
	}
	return s
}

// Definitions returns the declaration of every tool, sorted by name.
func (s Set) Definitions() []tooltypes.Definition {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]tooltypes.Definition, 0, len(names))
	for _, name := range names {
		defs = append(defs, tooltypes.Define(s[name]))
	}
	return defs
}
