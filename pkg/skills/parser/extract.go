package parser

import "strings"

const (
	delimiter           = "---"
	maxFrontmatterLines = 1000
)

type extraction struct {
	frontmatter string
	body        string
	startLine   int
}

// extract splits a skill document into its YAML frontmatter and markdown
// body. The first non-blank line must be the opening delimiter, and only the
// first maxFrontmatterLines lines are searched for the closing one.
func extract(content string) (*extraction, error) {
	if content == "" {
		return nil, errMissingFrontmatter()
	}

	normalized := strings.ReplaceAll(strings.ReplaceAll(content, "\r\n", "\n"), "\r", "\n")
	lines := strings.Split(normalized, "\n")

	openLine, closeLine := 0, 0
	var fm []string

scan:
	for i := 0; i < len(lines) && i < maxFrontmatterLines; i++ {
		trimmed := strings.TrimSpace(lines[i])
		switch {
		case openLine == 0:
			if trimmed == "" {
				continue
			}
			if trimmed != delimiter {
				return nil, errMissingFrontmatter()
			}
			openLine = i + 1
		case trimmed == delimiter:
			closeLine = i + 1
			break scan
		default:
			fm = append(fm, lines[i])
		}
	}

	if openLine == 0 {
		return nil, errMissingFrontmatter()
	}
	if closeLine == 0 {
		return nil, newError(CodeUnclosedFrontmatter, openLine,
			"Frontmatter opened at line %d is not closed with ---", openLine)
	}

	frontmatter := strings.Join(fm, "\n")
	if isBlankFrontmatter(frontmatter) {
		return nil, newError(CodeEmptyFrontmatter, 1, "Frontmatter is empty or contains only whitespace/comments")
	}

	rest := lines[closeLine:]
	for len(rest) > 0 && strings.TrimSpace(rest[0]) == "" {
		rest = rest[1:]
	}

	return &extraction{
		frontmatter: frontmatter,
		body:        strings.Join(rest, "\n"),
		startLine:   openLine,
	}, nil
}

func errMissingFrontmatter() *ParseError {
	return newError(CodeMissingFrontmatter, 1, "SKILL.md must start with YAML frontmatter (---)")
}

func isBlankFrontmatter(fm string) bool {
	for _, line := range strings.Split(fm, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			return false
		}
	}
	return true
}
