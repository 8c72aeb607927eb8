package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	skilltypes "github.com/jaguarliu/miniclaw-sub002/pkg/types/skills"
)

const fullSkill = `---
name: code-review
description: "  Reviews staged changes  "
allowed-tools:
  - read_file
  - grep
confirm-before: [bash]
metadata:
  miniclaw:
    primaryEnv: GITHUB_TOKEN
    requires:
      env: [GITHUB_TOKEN]
      bins: [git]
      anyBins: [rg, grep]
      config: [skills.review]
      os: [darwin, linux]
  other:
    ignored: true
---

# Code review

Run $ARGUMENTS.
`

func parse(t *testing.T, content string) (*skilltypes.ParsedSkill, error) {
	t.Helper()
	return New().Parse([]byte(content), "/skills/x/SKILL.md", skilltypes.PriorityUser, time.Unix(100, 0))
}

func TestParse_FullDocument(t *testing.T) {
	parsed, err := parse(t, fullSkill)
	require.NoError(t, err)

	md := parsed.Metadata
	assert.Equal(t, "code-review", md.Name)
	assert.Equal(t, "Reviews staged changes", md.Description)
	assert.Equal(t, []string{"read_file", "grep"}, md.AllowedTools)
	assert.Equal(t, []string{"bash"}, md.ConfirmBefore)
	assert.Equal(t, "GITHUB_TOKEN", md.PrimaryEnv)
	assert.Equal(t, "/skills/x/SKILL.md", md.SourcePath)
	assert.Equal(t, skilltypes.PriorityUser, md.Priority)
	require.NotNil(t, md.Requires)
	assert.Equal(t, &skilltypes.SkillRequires{
		Env:     []string{"GITHUB_TOKEN"},
		Bins:    []string{"git"},
		AnyBins: []string{"rg", "grep"},
		Config:  []string{"skills.review"},
		OS:      []string{"darwin", "linux"},
	}, md.Requires)

	assert.Equal(t, "# Code review\n\nRun $ARGUMENTS.\n", parsed.Body)
	assert.Equal(t, time.Unix(100, 0), parsed.LastModified)
}

func TestParse_MinimalDocument(t *testing.T) {
	parsed, err := parse(t, "---\nname: alpha\ndescription: A\n---\nBody")
	require.NoError(t, err)

	assert.Equal(t, "alpha", parsed.Metadata.Name)
	assert.Nil(t, parsed.Metadata.Requires)
	assert.Nil(t, parsed.Metadata.AllowedTools)
	assert.Nil(t, parsed.Metadata.ConfirmBefore)
	assert.Empty(t, parsed.Metadata.PrimaryEnv)
	assert.Equal(t, "Body", parsed.Body)
}

func TestParse_EmptyToolListStaysEmpty(t *testing.T) {
	parsed, err := parse(t, "---\nname: alpha\ndescription: A\nallowed-tools: []\n---\n")
	require.NoError(t, err)
	assert.NotNil(t, parsed.Metadata.AllowedTools)
	assert.Empty(t, parsed.Metadata.AllowedTools)
	assert.Empty(t, parsed.Body)
}

func TestParse_LineEndingsAndLeadingBlankLines(t *testing.T) {
	doc := "\r\n\r\n---\r\nname: alpha\r\ndescription: A\r\n---\r\n\r\n\r\nline one\r\nline two"
	parsed, err := parse(t, doc)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", parsed.Body)

	parsed, err = parse(t, "---\rname: alpha\rdescription: A\r---\rbody")
	require.NoError(t, err)
	assert.Equal(t, "body", parsed.Body)
}

func TestParse_FrontmatterErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code ErrorCode
		line int
	}{
		{"empty document", "", CodeMissingFrontmatter, 1},
		{"only blank lines", "\n\n\n", CodeMissingFrontmatter, 1},
		{"no delimiter", "# Title\n---\nname: a\n---", CodeMissingFrontmatter, 1},
		{"four dashes", "----\nname: alpha\n----\n", CodeMissingFrontmatter, 1},
		{"unclosed", "\n---\nname: alpha\ndescription: A\n", CodeUnclosedFrontmatter, 2},
		{"comments only", "---\n# nothing\n\n---\nbody", CodeEmptyFrontmatter, 1},
		{"empty block", "---\n---\nbody", CodeEmptyFrontmatter, 1},
		{"bad yaml", "---\nname: [unclosed\n---\n", CodeYAMLSyntax, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.doc)
			require.Error(t, err)
			errs := Errors(err)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Equal(t, tt.line, errs[0].Line)
		})
	}
}

func TestParse_UnclosedAfterLineLimit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("---\nname: alpha\ndescription: A\n")
	for range maxFrontmatterLines {
		sb.WriteString("# filler\n")
	}
	sb.WriteString("---\nbody")

	_, err := parse(t, sb.String())
	assert.True(t, HasCode(err, CodeUnclosedFrontmatter))
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		fm      string
		codes   []ErrorCode
		message string
	}{
		{
			name:    "missing name and description",
			fm:      "version: 1",
			codes:   []ErrorCode{CodeMissingField, CodeMissingField},
			message: "Missing required field: 'name'",
		},
		{
			name:    "blank name",
			fm:      "name: '  '\ndescription: A",
			codes:   []ErrorCode{CodeMissingField},
			message: "'name'",
		},
		{
			name:    "numeric name",
			fm:      "name: 42\ndescription: A",
			codes:   []ErrorCode{CodeInvalidFieldType},
			message: "Field 'name' should be string, got number",
		},
		{
			name:    "bad name format",
			fm:      "name: Alpha\ndescription: A",
			codes:   []ErrorCode{CodeInvalidFieldFormat},
			message: "value 'Alpha' does not match pattern",
		},
		{
			name:    "single character name",
			fm:      "name: a\ndescription: A",
			codes:   []ErrorCode{CodeInvalidFieldFormat},
		},
		{
			name:    "description too long",
			fm:      "name: alpha\ndescription: " + strings.Repeat("x", 501),
			codes:   []ErrorCode{CodeInvalidFieldValue},
			message: "exceeds maximum length of 500 characters (got 501)",
		},
		{
			name:    "allowed-tools not a list",
			fm:      "name: alpha\ndescription: A\nallowed-tools: bash",
			codes:   []ErrorCode{CodeInvalidFieldType},
			message: "Field 'allowed-tools' should be list, got string",
		},
		{
			name:    "confirm-before with non-string item",
			fm:      "name: alpha\ndescription: A\nconfirm-before: [bash, 3]",
			codes:   []ErrorCode{CodeInvalidFieldType},
			message: "Field 'confirm-before[1]' should be string, got number",
		},
		{
			name:    "metadata not an object",
			fm:      "name: alpha\ndescription: A\nmetadata: [1]",
			codes:   []ErrorCode{CodeInvalidFieldType},
			message: "Field 'metadata' should be object, got list",
		},
		{
			name:    "miniclaw not an object",
			fm:      "name: alpha\ndescription: A\nmetadata:\n  miniclaw: true",
			codes:   []ErrorCode{CodeInvalidFieldType},
			message: "Field 'metadata.miniclaw' should be object, got boolean",
		},
		{
			name:  "requires fields not lists and bad os",
			fm:    "name: alpha\ndescription: A\nmetadata:\n  miniclaw:\n    primaryEnv: 5\n    requires:\n      env: TOKEN\n      os: [linux, beos]",
			codes: []ErrorCode{CodeInvalidFieldType, CodeInvalidFieldValue, CodeInvalidFieldType},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, "---\n"+tt.fm+"\n---\nbody")
			require.Error(t, err)

			errs := Errors(err)
			codes := make([]ErrorCode, 0, len(errs))
			for _, e := range errs {
				codes = append(codes, e.Code)
			}
			assert.Equal(t, tt.codes, codes)
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestParse_InvalidOSMessage(t *testing.T) {
	_, err := parse(t, "---\nname: alpha\ndescription: A\nmetadata:\n  miniclaw:\n    requires:\n      os: [macos]\n---\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(),
		"Invalid OS value 'macos' in metadata.miniclaw.requires.os. Valid values: darwin, linux, win32")
}

func TestParse_InvalidUTF8(t *testing.T) {
	_, err := New().Parse([]byte{'-', '-', '-', '\n', 0xff, 0xfe}, "x", skilltypes.PriorityProject, time.Time{})
	assert.True(t, HasCode(err, CodeFileEncodingError))
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alpha", "SKILL.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("---\nname: alpha\ndescription: A\n---\nBody\n"), 0o644))

	mtime := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	parsed, err := New().ParseFile(path, skilltypes.PriorityBuiltin)
	require.NoError(t, err)
	assert.Equal(t, path, parsed.Metadata.SourcePath)
	assert.Equal(t, skilltypes.PriorityBuiltin, parsed.Metadata.Priority)
	assert.True(t, parsed.LastModified.Equal(mtime))
}

func TestParseFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := New().ParseFile(filepath.Join(dir, "missing.md"), skilltypes.PriorityProject)
	assert.True(t, HasCode(err, CodeFileNotFound))

	big := filepath.Join(dir, "big.md")
	require.NoError(t, os.WriteFile(big, make([]byte, MaxFileSize+1), 0o644))
	_, err = New().ParseFile(big, skilltypes.PriorityProject)
	assert.True(t, HasCode(err, CodeContentTooLarge))
}

func TestParseError_Format(t *testing.T) {
	assert.Equal(t, "[E202] not closed (line 3)", (&ParseError{Code: CodeUnclosedFrontmatter, Message: "not closed", Line: 3}).Error())
	assert.Equal(t, "[E401] missing", (&ParseError{Code: CodeMissingField, Message: "missing"}).Error())
}
