package parser

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ErrorCode classifies parse failures. Codes are grouped by hundreds:
// 1xx file, 2xx frontmatter layout, 3xx YAML, 4xx schema, 5xx limits.
type ErrorCode string

const (
	CodeFileNotFound        ErrorCode = "E101"
	CodeFileReadError       ErrorCode = "E102"
	CodeFileEncodingError   ErrorCode = "E103"
	CodeMissingFrontmatter  ErrorCode = "E201"
	CodeUnclosedFrontmatter ErrorCode = "E202"
	CodeEmptyFrontmatter    ErrorCode = "E203"
	CodeYAMLSyntax          ErrorCode = "E301"
	CodeYAMLMapping         ErrorCode = "E302"
	CodeMissingField        ErrorCode = "E401"
	CodeInvalidFieldType    ErrorCode = "E402"
	CodeInvalidFieldValue   ErrorCode = "E403"
	CodeInvalidFieldFormat  ErrorCode = "E404"
	CodeContentTooLarge     ErrorCode = "E501"
)

// ParseError is one structured problem found in a skill file. Line is
// 1-based; zero means the position is unknown.
type ParseError struct {
	Code    ErrorCode
	Message string
	Line    int
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] %s (line %d)", e.Code, e.Message, e.Line)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Cause }

func newError(code ErrorCode, line int, format string, args ...any) *ParseError {
	return &ParseError{Code: code, Line: line, Message: fmt.Sprintf(format, args...)}
}

// Errors flattens err into the ParseErrors it carries.
func Errors(err error) []*ParseError {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		out := make([]*ParseError, 0, len(merr.Errors))
		for _, e := range merr.Errors {
			out = append(out, Errors(e)...)
		}
		return out
	}
	var perr *ParseError
	if errors.As(err, &perr) {
		return []*ParseError{perr}
	}
	return []*ParseError{{Code: CodeFileReadError, Message: err.Error(), Cause: err}}
}

// HasCode reports whether err carries a ParseError with the given code.
func HasCode(err error, code ErrorCode) bool {
	for _, e := range Errors(err) {
		if e.Code == code {
			return true
		}
	}
	return false
}
