// Package template renders placeholders in activated skill bodies.
//
// Two placeholder forms are recognized:
//
//	$NAME          a variable from the render context (NAME is [A-Z_][A-Z0-9_]*)
//	${TYPE:key}    TYPE is ENV (process environment), CONFIG or VAR (context)
//
// "$$" renders as a literal "$". Unknown placeholders are kept verbatim and
// substituted values are never scanned again.
package template

import (
	"os"
	"strings"
)

// EnvLookup resolves ENV placeholders.
type EnvLookup func(key string) (string, bool)

// Engine renders skill bodies. It is stateless and safe for concurrent use.
type Engine struct {
	env EnvLookup
}

// Option configures an Engine.
type Option func(*Engine)

// WithEnvLookup replaces os.LookupEnv for ENV placeholders.
func WithEnvLookup(fn EnvLookup) Option {
	return func(e *Engine) { e.env = fn }
}

func New(opts ...Option) *Engine {
	e := &Engine{env: os.LookupEnv}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render substitutes placeholders in tmpl from ctx. A nil ctx resolves no
// variables.
func (e *Engine) Render(tmpl string, ctx *Context) string {
	if !strings.Contains(tmpl, "$") {
		return tmpl
	}
	if ctx == nil {
		ctx = NewContext()
	}

	var sb strings.Builder
	sb.Grow(len(tmpl))

	for i := 0; i < len(tmpl); {
		c := tmpl[i]
		if c != '$' {
			next := strings.IndexByte(tmpl[i:], '$')
			if next < 0 {
				sb.WriteString(tmpl[i:])
				break
			}
			sb.WriteString(tmpl[i : i+next])
			i += next
			continue
		}

		if i+1 >= len(tmpl) {
			sb.WriteByte('$')
			i++
			continue
		}

		switch n := tmpl[i+1]; {
		case n == '$':
			sb.WriteByte('$')
			i += 2
		case n == '{':
			typ, key, end, ok := scanComplex(tmpl, i)
			if !ok {
				sb.WriteByte('$')
				i++
				continue
			}
			if v, found := e.resolve(typ, key, ctx); found {
				sb.WriteString(v)
			} else {
				sb.WriteString(tmpl[i:end])
			}
			i = end
		case isNameStart(n):
			end := i + 2
			for end < len(tmpl) && isNameChar(tmpl[end]) {
				end++
			}
			if v, found := ctx.Get(tmpl[i+1 : end]); found {
				sb.WriteString(v)
			} else {
				sb.WriteString(tmpl[i:end])
			}
			i = end
		default:
			sb.WriteByte('$')
			i++
		}
	}
	return sb.String()
}

// scanComplex matches ${TYPE:key} at start, where TYPE is [A-Z]+ and key is
// a non-empty run without '}'. end is the index just past the closing brace.
func scanComplex(s string, start int) (typ, key string, end int, ok bool) {
	j := start + 2
	for j < len(s) && s[j] >= 'A' && s[j] <= 'Z' {
		j++
	}
	if j == start+2 || j >= len(s) || s[j] != ':' {
		return "", "", 0, false
	}
	typ = s[start+2 : j]

	closing := strings.IndexByte(s[j+1:], '}')
	if closing <= 0 {
		return "", "", 0, false
	}
	key = s[j+1 : j+1+closing]
	return typ, key, j + 1 + closing + 1, true
}

func (e *Engine) resolve(typ, key string, ctx *Context) (string, bool) {
	switch typ {
	case "ENV":
		return e.env(key)
	case "CONFIG":
		return ctx.Config(key)
	case "VAR":
		return ctx.Get(key)
	default:
		return "", false
	}
}

func isNameStart(c byte) bool {
	return c == '_' || c >= 'A' && c <= 'Z'
}

func isNameChar(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9'
}
