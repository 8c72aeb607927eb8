package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
)

const maxDescriptionLength = 500

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]{1,49}$`)

var validOS = map[string]bool{"darwin": true, "linux": true, "win32": true}

var requiresListFields = []string{"env", "bins", "anyBins", "config", "os"}

// validate checks the decoded frontmatter against the skill schema and
// returns every violation it finds. Required-field problems stop the check
// early since later rules depend on them.
func validate(fm map[string]any) error {
	if len(fm) == 0 {
		return newError(CodeEmptyFrontmatter, 1, "Frontmatter is empty or contains only whitespace/comments")
	}

	var result *multierror.Error
	add := func(e *ParseError) { result = multierror.Append(result, e) }

	for _, field := range []string{"name", "description"} {
		if e := requiredString(fm, field); e != nil {
			add(e)
		}
	}
	if result != nil {
		return result.ErrorOrNil()
	}

	name := fm["name"].(string)
	if !namePattern.MatchString(name) {
		add(newError(CodeInvalidFieldFormat, 0,
			"Field 'name' value '%s' does not match pattern: lowercase letters, numbers, hyphens; start with letter; 2-50 chars", name))
	}

	if n := utf8.RuneCountInString(fm["description"].(string)); n > maxDescriptionLength {
		add(newError(CodeInvalidFieldValue, 0,
			"Field 'description' exceeds maximum length of %d characters (got %d)", maxDescriptionLength, n))
	}

	for _, field := range []string{"allowed-tools", "confirm-before"} {
		for _, e := range stringList(fm, field) {
			add(e)
		}
	}

	for _, e := range validateMetadata(fm) {
		add(e)
	}

	return result.ErrorOrNil()
}

func requiredString(fm map[string]any, field string) *ParseError {
	v, ok := fm[field]
	if !ok || v == nil {
		return missingField(field)
	}
	s, isString := v.(string)
	if !isString {
		return invalidType(field, "string", v)
	}
	if strings.TrimSpace(s) == "" {
		return missingField(field)
	}
	return nil
}

func stringList(fm map[string]any, field string) []*ParseError {
	v, ok := fm[field]
	if !ok || v == nil {
		return nil
	}
	list, isList := v.([]any)
	if !isList {
		return []*ParseError{invalidType(field, "list", v)}
	}
	var errs []*ParseError
	for i, item := range list {
		if _, isString := item.(string); !isString {
			errs = append(errs, invalidType(fmt.Sprintf("%s[%d]", field, i), "string", item))
		}
	}
	return errs
}

func validateMetadata(fm map[string]any) []*ParseError {
	raw, ok := fm["metadata"]
	if !ok {
		return nil
	}
	metadata, isMap := raw.(map[string]any)
	if !isMap {
		return []*ParseError{invalidType("metadata", "object", raw)}
	}

	raw, ok = metadata["miniclaw"]
	if !ok {
		return nil
	}
	miniclaw, isMap := raw.(map[string]any)
	if !isMap {
		return []*ParseError{invalidType("metadata.miniclaw", "object", raw)}
	}

	var errs []*ParseError
	if raw, ok := miniclaw["requires"]; ok {
		if requires, isMap := raw.(map[string]any); isMap {
			errs = append(errs, validateRequires(requires)...)
		} else {
			errs = append(errs, invalidType("metadata.miniclaw.requires", "object", raw))
		}
	}
	if raw, ok := miniclaw["primaryEnv"]; ok && raw != nil {
		if _, isString := raw.(string); !isString {
			errs = append(errs, invalidType("metadata.miniclaw.primaryEnv", "string", raw))
		}
	}
	return errs
}

func validateRequires(requires map[string]any) []*ParseError {
	const prefix = "metadata.miniclaw.requires."

	var errs []*ParseError
	for _, field := range requiresListFields {
		if v, ok := requires[field]; ok && v != nil {
			if _, isList := v.([]any); !isList {
				errs = append(errs, invalidType(prefix+field, "list", v))
			}
		}
	}

	osList, _ := requires["os"].([]any)
	for _, item := range osList {
		if name, isString := item.(string); isString && !validOS[name] {
			errs = append(errs, newError(CodeInvalidFieldValue, 0,
				"Invalid OS value '%s' in %sos. Valid values: darwin, linux, win32", name, prefix))
		}
	}
	return errs
}

func missingField(field string) *ParseError {
	return newError(CodeMissingField, 0, "Missing required field: '%s'", field)
}

func invalidType(field, expected string, got any) *ParseError {
	return newError(CodeInvalidFieldType, 0, "Field '%s' should be %s, got %s", field, expected, typeName(got))
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, uint64, float64:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
