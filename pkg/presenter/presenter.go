// Package presenter renders user-facing CLI output for miniclaw-skills:
// status lines, section headers, and per-skill availability markers.
package presenter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// ColorMode selects whether output is colorized.
type ColorMode int

const (
	// ColorAuto lets fatih/color detect terminal support.
	ColorAuto ColorMode = iota
	// ColorAlways forces colorized output.
	ColorAlways
	// ColorNever disables colorized output.
	ColorNever
)

// Presenter writes status output for a CLI session.
type Presenter struct {
	out   io.Writer
	err   io.Writer
	quiet bool
}

// New returns a presenter writing to stdout and stderr.
func New() *Presenter {
	return NewWithOptions(os.Stdout, os.Stderr, detectColorMode())
}

// NewWithOptions returns a presenter writing to the given streams.
func NewWithOptions(out, errOut io.Writer, mode ColorMode) *Presenter {
	switch mode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	}
	return &Presenter{out: out, err: errOut}
}

func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}
	switch os.Getenv("MINICLAW_COLOR") {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// Error prints err to the error stream, prefixed by an optional context.
// Errors are printed even in quiet mode.
func (p *Presenter) Error(err error, context string) {
	if err == nil {
		return
	}
	c := color.New(color.FgRed, color.Bold)
	if context != "" {
		c.Fprintf(p.err, "[ERROR] %s: %v\n", context, err)
		return
	}
	c.Fprintf(p.err, "[ERROR] %v\n", err)
}

func (p *Presenter) Success(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintf(p.out, "✓ %s\n", message)
}

func (p *Presenter) Warning(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgYellow, color.Bold).Fprintf(p.out, "⚠ %s\n", message)
}

func (p *Presenter) Info(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, message)
}

// Section prints an underlined header.
func (p *Presenter) Section(title string) {
	if p.quiet {
		return
	}
	c := color.New(color.Bold)
	c.Fprintln(p.out, title)
	c.Fprintln(p.out, strings.Repeat("-", len(title)))
}

// Field prints an aligned "key: value" line.
func (p *Presenter) Field(key, value string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", color.New(color.FgCyan).Sprintf("%-16s", key+":"), value)
}

// SkillStatus prints one line describing whether a skill is usable.
func (p *Presenter) SkillStatus(name string, available bool, reason string) {
	if p.quiet {
		return
	}
	if available {
		color.New(color.FgGreen).Fprintf(p.out, "  ✓ %s\n", name)
		return
	}
	color.New(color.FgRed).Fprintf(p.out, "  ✗ %s", name)
	if reason != "" {
		color.New(color.Faint).Fprintf(p.out, " (%s)", reason)
	}
	fmt.Fprintln(p.out)
}

func (p *Presenter) Separator() {
	if p.quiet {
		return
	}
	color.New(color.Faint).Fprintln(p.out, strings.Repeat("-", 60))
}

func (p *Presenter) SetQuiet(quiet bool) { p.quiet = quiet }

func (p *Presenter) IsQuiet() bool { return p.quiet }

var defaultPresenter = New()

// Default returns the process-wide presenter.
func Default() *Presenter { return defaultPresenter }

func Error(err error, context string) { defaultPresenter.Error(err, context) }

func Success(message string) { defaultPresenter.Success(message) }

func Warning(message string) { defaultPresenter.Warning(message) }

func Info(message string) { defaultPresenter.Info(message) }

func Section(title string) { defaultPresenter.Section(title) }

func Field(key, value string) { defaultPresenter.Field(key, value) }

func SkillStatus(name string, available bool, reason string) {
	defaultPresenter.SkillStatus(name, available, reason)
}

func Separator() { defaultPresenter.Separator() }

func SetQuiet(quiet bool) { defaultPresenter.SetQuiet(quiet) }
