// Package parser turns SKILL.md documents into skill metadata and body.
//
// A skill document starts with a YAML frontmatter block delimited by "---"
// lines, followed by the markdown instructions handed to the model:
//
//	---
//	name: code-review
//	description: Reviews staged changes
//	allowed-tools: [read_file, grep]
//	metadata:
//	  miniclaw:
//	    requires:
//	      bins: [git]
//	---
//	Review the diff...
package parser

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	goldmarkparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	skilltypes "github.com/jaguarliu/miniclaw-sub002/pkg/types/skills"
)

// MaxFileSize is the largest skill file accepted.
const MaxFileSize = 1 << 20

type frontmatter struct {
	Name          string   `mapstructure:"name"`
	Description   string   `mapstructure:"description"`
	AllowedTools  []string `mapstructure:"allowed-tools"`
	ConfirmBefore []string `mapstructure:"confirm-before"`
	Metadata      struct {
		Miniclaw *struct {
			Requires   *skilltypes.SkillRequires `mapstructure:"requires"`
			PrimaryEnv string                    `mapstructure:"primaryEnv"`
		} `mapstructure:"miniclaw"`
	} `mapstructure:"metadata"`
}

// Parser parses skill documents. The zero value is not usable; call New.
type Parser struct {
	md goldmark.Markdown
}

// New returns a Parser. It is safe for concurrent use.
func New() *Parser {
	return &Parser{md: goldmark.New(goldmark.WithExtensions(meta.Meta))}
}

// ParseFile reads and parses the skill document at path.
func (p *Parser) ParseFile(path string, priority skilltypes.Priority) (*skilltypes.ParsedSkill, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newError(CodeFileNotFound, 0, "File not found: %s", path)
		}
		return nil, &ParseError{Code: CodeFileReadError, Message: fmt.Sprintf("Failed to read file: %s - %v", path, err), Cause: err}
	}
	if info.Size() > MaxFileSize {
		return nil, newError(CodeContentTooLarge, 0,
			"Content size %d bytes exceeds limit of %d bytes", info.Size(), MaxFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Code: CodeFileReadError, Message: fmt.Sprintf("Failed to read file: %s - %v", path, err), Cause: err}
	}
	return p.Parse(content, path, priority, info.ModTime())
}

// Parse parses an in-memory skill document. sourcePath is recorded on the
// metadata but never read.
func (p *Parser) Parse(content []byte, sourcePath string, priority skilltypes.Priority, lastModified time.Time) (*skilltypes.ParsedSkill, error) {
	if len(content) > MaxFileSize {
		return nil, newError(CodeContentTooLarge, 0,
			"Content size %d bytes exceeds limit of %d bytes", len(content), MaxFileSize)
	}
	if !utf8.Valid(content) {
		return nil, newError(CodeFileEncodingError, 0, "Skill file %s is not valid UTF-8", sourcePath)
	}

	ex, err := extract(string(content))
	if err != nil {
		return nil, err
	}

	raw, err := p.decodeYAML(ex.frontmatter)
	if err != nil {
		return nil, &ParseError{
			Code:    CodeYAMLSyntax,
			Line:    ex.startLine,
			Message: fmt.Sprintf("YAML syntax error at line %d: %v", ex.startLine, err),
			Cause:   err,
		}
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	var fm frontmatter
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &fm,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create frontmatter decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, &ParseError{Code: CodeYAMLMapping, Message: err.Error(), Cause: err}
	}

	md := skilltypes.SkillMetadata{
		Name:          strings.TrimSpace(fm.Name),
		Description:   strings.TrimSpace(fm.Description),
		AllowedTools:  fm.AllowedTools,
		ConfirmBefore: fm.ConfirmBefore,
		SourcePath:    sourcePath,
		Priority:      priority,
	}
	if mc := fm.Metadata.Miniclaw; mc != nil {
		md.Requires = mc.Requires
		md.PrimaryEnv = mc.PrimaryEnv
	}

	return &skilltypes.ParsedSkill{
		Metadata:     md,
		Body:         ex.body,
		LastModified: lastModified,
	}, nil
}

// decodeYAML runs the frontmatter through goldmark's meta extension and
// normalizes the nested maps it yields to map[string]any.
func (p *Parser) decodeYAML(fm string) (map[string]any, error) {
	src := []byte(delimiter + "\n" + fm + "\n" + delimiter + "\n")
	pctx := goldmarkparser.NewContext()
	p.md.Parser().Parse(text.NewReader(src), goldmarkparser.WithContext(pctx))

	data, err := meta.TryGet(pctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = normalize(v)
	}
	return out, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = normalize(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = normalize(val)
		}
		return s
	default:
		return v
	}
}
