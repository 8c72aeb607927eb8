package template

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testEnv(key string) (string, bool) {
	env := map[string]string{"HOME": "/home/dev", "EMPTY": ""}
	v, ok := env[key]
	return v, ok
}

func TestRender(t *testing.T) {
	engine := New(WithEnvLookup(testEnv))
	ctx := NewContext().
		WithArguments("fix bug").
		WithProjectRoot("/repo").
		Set("X", "bound").
		Set("INJECT", "$ARGUMENTS ${VAR:X} $$").
		SetConfig("model", "sonnet")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no dollar", "plain text", "plain text"},
		{"simple", "Task: $ARGUMENTS", "Task: fix bug"},
		{"adjacent lowercase", "$ARGUMENTSabc", "fix bugabc"},
		{"unknown simple kept", "$UNKNOWN and $ARGUMENTS", "$UNKNOWN and fix bug"},
		{"greedy name", "$ARGUMENTS_X", "$ARGUMENTS_X"},
		{"escape", "$$X", "$X"},
		{"escape before bound name", "$$ARGUMENTS", "$ARGUMENTS"},
		{"escape then variable", "$$$ARGUMENTS", "$fix bug"},
		{"double escape", "$$$$", "$$"},
		{"lone dollar", "cost: $5 and $", "cost: $5 and $"},
		{"lowercase not a var", "$home", "$home"},
		{"env", "${ENV:HOME}/bin", "/home/dev/bin"},
		{"env empty value", "[${ENV:EMPTY}]", "[]"},
		{"env missing kept", "${ENV:NOPE}", "${ENV:NOPE}"},
		{"config", "model=${CONFIG:model}", "model=sonnet"},
		{"config missing kept", "${CONFIG:other}", "${CONFIG:other}"},
		{"var", "${VAR:PROJECT_ROOT}", "/repo"},
		{"unknown type kept", "${FOO:bar}", "${FOO:bar}"},
		{"lowercase type", "${env:HOME}", "${env:HOME}"},
		{"empty key", "${VAR:}", "${VAR:}"},
		{"unterminated", "${VAR:X", "${VAR:X"},
		{"escaped complex", "$${ENV:HOME}", "${ENV:HOME}"},
		{"values are not rescanned", "$INJECT", "$ARGUMENTS ${VAR:X} $$"},
		{"complex values are not rescanned", "${VAR:INJECT}", "$ARGUMENTS ${VAR:X} $$"},
		{"unicode around", "代码 $ARGUMENTS 审查", "代码 fix bug 审查"},
		{"digits after start", "$_A1 $1", "$_A1 $1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.Render(tt.in, ctx))
		})
	}
}

func TestRender_NilContext(t *testing.T) {
	engine := New(WithEnvLookup(testEnv))
	assert.Equal(t, "$ARGUMENTS /home/dev $", engine.Render("$ARGUMENTS ${ENV:HOME} $$", nil))
}

func TestRender_IdentityWithoutDollar(t *testing.T) {
	engine := New()
	ctx := NewContext().WithArguments("x")
	for _, s := range []string{"", "abc", "{VAR:X}", strings.Repeat("text ", 100)} {
		assert.Equal(t, s, engine.Render(s, ctx))
	}
}

func TestRender_EscapeLawHoldsForAnyBinding(t *testing.T) {
	engine := New()
	for _, ctx := range []*Context{nil, NewContext(), NewContext().Set("X", "value")} {
		assert.Equal(t, "$X", engine.Render("$$X", ctx))
	}
}

func TestContext(t *testing.T) {
	ctx := NewContext().
		WithArguments("a").
		WithCurrentFile("main.go").
		WithSelection("sel").
		WithClipboard("clip").
		WithCwd("/tmp").
		WithSkillBasePath("/skills/x").
		WithGitBranch("main").
		WithAll(map[string]string{"EXTRA": "1"}).
		Set("", "ignored").
		SetConfig("", "ignored")

	assert.True(t, ctx.Has(VarArguments))
	assert.False(t, ctx.Has(VarProjectRoot))
	assert.False(t, ctx.Has(""))

	v, ok := ctx.Get(VarGitBranch)
	assert.True(t, ok)
	assert.Equal(t, "main", v)

	all := ctx.All()
	assert.Len(t, all, 8)
	all["ARGUMENTS"] = "mutated"
	v, _ = ctx.Get(VarArguments)
	assert.Equal(t, "a", v)

	_, ok = ctx.Config("")
	assert.False(t, ok)
}

func TestContextClone(t *testing.T) {
	orig := NewContext().WithArguments("a").SetConfig("k", "v")
	clone := orig.Clone()
	clone.WithArguments("b").SetConfig("k", "w")

	got, _ := orig.Get(VarArguments)
	assert.Equal(t, "a", got)
	cfg, _ := orig.Config("k")
	assert.Equal(t, "v", cfg)

	var nilCtx *Context
	assert.NotNil(t, nilCtx.Clone())
}
