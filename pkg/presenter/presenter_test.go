package presenter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestPresenter() (*Presenter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewWithOptions(&out, &errOut, ColorNever), &out, &errOut
}

func TestDetectColorMode(t *testing.T) {
	tests := []struct {
		name     string
		noColor  string
		color    string
		expected ColorMode
	}{
		{"NO_COLOR set", "1", "", ColorNever},
		{"always", "", "always", ColorAlways},
		{"force", "", "force", ColorAlways},
		{"never", "", "never", ColorNever},
		{"off", "", "off", ColorNever},
		{"default", "", "", ColorAuto},
		{"unknown", "", "rainbow", ColorAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("MINICLAW_COLOR", tt.color)
			assert.Equal(t, tt.expected, detectColorMode())
		})
	}
}

func TestError(t *testing.T) {
	p, out, errOut := newTestPresenter()

	p.Error(errors.New("parse failed"), "alpha")
	p.Error(errors.New("bare"), "")
	p.Error(nil, "ignored")

	assert.Empty(t, out.String())
	assert.Equal(t, "[ERROR] alpha: parse failed\n[ERROR] bare\n", errOut.String())
}

func TestStatusLines(t *testing.T) {
	p, out, _ := newTestPresenter()

	p.Success("refreshed")
	p.Warning("no skills found")
	p.Info("plain")
	p.Section("Skills")
	p.Field("Priority", "project")

	assert.Equal(t,
		"✓ refreshed\n⚠ no skills found\nplain\nSkills\n------\nPriority:        project\n",
		out.String())
}

func TestSkillStatus(t *testing.T) {
	p, out, _ := newTestPresenter()

	p.SkillStatus("alpha", true, "")
	p.SkillStatus("beta", false, "Missing env vars: TOKEN")
	p.SkillStatus("gamma", false, "")

	assert.Equal(t,
		"  ✓ alpha\n  ✗ beta (Missing env vars: TOKEN)\n  ✗ gamma\n",
		out.String())
}

func TestQuiet(t *testing.T) {
	p, out, errOut := newTestPresenter()
	p.SetQuiet(true)
	assert.True(t, p.IsQuiet())

	p.Success("x")
	p.Warning("x")
	p.Info("x")
	p.Section("x")
	p.Field("x", "y")
	p.SkillStatus("x", true, "")
	p.Separator()
	p.Error(errors.New("still shown"), "")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "still shown")
}
