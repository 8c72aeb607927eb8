package template

import "maps"

// Well-known variable names.
const (
	VarArguments     = "ARGUMENTS"
	VarProjectRoot   = "PROJECT_ROOT"
	VarCurrentFile   = "CURRENT_FILE"
	VarSelection     = "SELECTION"
	VarClipboard     = "CLIPBOARD"
	VarCwd           = "CWD"
	VarSkillBasePath = "SKILL_BASE_PATH"
	VarGitBranch     = "GIT_BRANCH"
)

// Context holds the variables and config values available to a render.
// Setters return the receiver for chaining. A Context is not safe for
// concurrent mutation.
type Context struct {
	vars    map[string]string
	configs map[string]string
}

func NewContext() *Context {
	return &Context{vars: map[string]string{}, configs: map[string]string{}}
}

// Set binds a variable. Empty names are ignored.
func (c *Context) Set(name, value string) *Context {
	if name != "" {
		c.vars[name] = value
	}
	return c
}

func (c *Context) Get(name string) (string, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// SetConfig binds a CONFIG value. Empty keys are ignored.
func (c *Context) SetConfig(key, value string) *Context {
	if key != "" {
		c.configs[key] = value
	}
	return c
}

func (c *Context) Config(key string) (string, bool) {
	v, ok := c.configs[key]
	return v, ok
}

func (c *Context) WithArguments(args string) *Context { return c.Set(VarArguments, args) }

func (c *Context) WithProjectRoot(path string) *Context { return c.Set(VarProjectRoot, path) }

func (c *Context) WithCurrentFile(path string) *Context { return c.Set(VarCurrentFile, path) }

func (c *Context) WithSelection(selection string) *Context { return c.Set(VarSelection, selection) }

func (c *Context) WithClipboard(content string) *Context { return c.Set(VarClipboard, content) }

func (c *Context) WithCwd(cwd string) *Context { return c.Set(VarCwd, cwd) }

func (c *Context) WithSkillBasePath(path string) *Context { return c.Set(VarSkillBasePath, path) }

func (c *Context) WithGitBranch(branch string) *Context { return c.Set(VarGitBranch, branch) }

// WithAll binds every entry of vars.
func (c *Context) WithAll(vars map[string]string) *Context {
	for k, v := range vars {
		c.Set(k, v)
	}
	return c
}

func (c *Context) Has(name string) bool {
	_, ok := c.vars[name]
	return ok
}

// All returns a copy of the bound variables.
func (c *Context) All() map[string]string {
	return maps.Clone(c.vars)
}

// Clone returns an independent copy. A nil receiver yields an empty context.
func (c *Context) Clone() *Context {
	if c == nil {
		return NewContext()
	}
	return &Context{vars: maps.Clone(c.vars), configs: maps.Clone(c.configs)}
}
