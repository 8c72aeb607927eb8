// Package skills wires the skill runtime together: discovery and gating in
// the registry, the prompt index, selection of invocations, template
// rendering of activated skills, filesystem watching and uploads.
package skills

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/jaguarliu/miniclaw-sub002/pkg/config"
	"github.com/jaguarliu/miniclaw-sub002/pkg/logger"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills/gating"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills/index"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills/install"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills/parser"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills/registry"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills/selector"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills/template"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills/watcher"
	skilltypes "github.com/jaguarliu/miniclaw-sub002/pkg/types/skills"
)

// Runtime bundles the skill components built from one configuration.
type Runtime struct {
	Enabled   bool
	Evaluator *gating.Evaluator
	Registry  *registry.Registry
	Index     *index.Builder
	Selector  *selector.Selector
	Templates *template.Engine
	Installer *install.Installer

	watcher *watcher.Watcher
}

type options struct {
	viper      *viper.Viper
	gateOpts   []gating.Option
	engineOpts []template.Option
	noWatch    bool
}

// Option customizes Initialize.
type Option func(*options)

// WithViper lets config requirements resolve against v.
func WithViper(v *viper.Viper) Option {
	return func(o *options) { o.viper = v }
}

// WithGatingOptions passes extra options to the gating evaluator.
func WithGatingOptions(opts ...gating.Option) Option {
	return func(o *options) { o.gateOpts = append(o.gateOpts, opts...) }
}

// WithTemplateOptions passes extra options to the template engine.
func WithTemplateOptions(opts ...template.Option) Option {
	return func(o *options) { o.engineOpts = append(o.engineOpts, opts...) }
}

// WithoutWatcher skips the filesystem watcher even when enabled in config.
func WithoutWatcher() Option {
	return func(o *options) { o.noWatch = true }
}

// Initialize builds the runtime and performs the first registry refresh.
// When skills are disabled the runtime has no roots, so every query sees an
// empty registry.
func Initialize(ctx context.Context, cfg config.Config, opts ...Option) (*Runtime, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	ctx = logger.WithComponent(ctx, "skills")

	gateOpts := []gating.Option{gating.WithBinaryCheckTimeout(cfg.Skills.BinaryCheckTimeout)}
	if o.viper != nil {
		gateOpts = append(gateOpts, gating.WithConfigSource(gating.ViperSource{V: o.viper}))
	}
	gateOpts = append(gateOpts, o.gateOpts...)

	var roots registry.Roots
	if cfg.Skills.Enabled {
		roots = registry.Roots{
			Project: cfg.Skills.ProjectDir,
			User:    cfg.Skills.UserDir,
			Builtin: cfg.Skills.BuiltinDir,
		}
	}

	p := parser.New()
	rt := &Runtime{
		Enabled:   cfg.Skills.Enabled,
		Evaluator: gating.NewEvaluator(gateOpts...),
		Templates: template.New(o.engineOpts...),
	}
	rt.Registry = registry.New(p, rt.Evaluator, roots)
	rt.Index = index.New(rt.Registry, index.WithTokenBudget(cfg.Skills.IndexTokenBudget))
	rt.Selector = selector.New(rt.Registry)
	rt.Installer = install.New(p, roots.User, rt.Registry)

	rt.Registry.Refresh(ctx)

	if !cfg.Skills.Enabled {
		logger.G(ctx).Debug("skills disabled by configuration")
		return rt, nil
	}

	if cfg.Skills.WatchEnabled && !o.noWatch {
		rt.watcher = watcher.New(rt.Registry, roots.Dirs(), watcher.WithDebounce(cfg.Skills.WatchDebounce))
		if err := rt.watcher.Start(ctx); err != nil {
			rt.watcher = nil
			return nil, errors.Wrap(err, "failed to start skill watcher")
		}
	}

	stats := rt.Registry.Stats()
	logger.G(ctx).WithFields(logrus.Fields{
		"total":     stats.Total,
		"available": stats.Available,
		"watching":  rt.Watching(),
	}).Debug("skills runtime initialized")
	return rt, nil
}

// Watching reports whether the filesystem watcher is active.
func (rt *Runtime) Watching() bool {
	return rt.watcher != nil && rt.watcher.IsRunning()
}

// Watcher returns the active watcher, or nil.
func (rt *Runtime) Watcher() *watcher.Watcher { return rt.watcher }

// Select interprets user input as a slash command, and failing that, model
// output as a [USE_SKILL:name] marker. llmResponse may be empty.
func (rt *Runtime) Select(ctx context.Context, input, llmResponse string) skilltypes.SkillSelection {
	if sel := rt.Selector.TryManualSelection(ctx, input); sel.Selected {
		return sel
	}
	if llmResponse == "" {
		return skilltypes.NoSelection(input)
	}
	return rt.Selector.ParseFromLLMResponse(ctx, llmResponse, input)
}

// Prepare activates the selected skill and renders its body. tctx is not
// modified; ARGUMENTS and SKILL_BASE_PATH are bound on a copy. A selection
// without arguments leaves $ARGUMENTS unbound, so it renders verbatim.
func (rt *Runtime) Prepare(ctx context.Context, sel skilltypes.SkillSelection, tctx *template.Context) (*skilltypes.LoadedSkill, bool) {
	if !sel.Selected {
		return nil, false
	}
	loaded, ok := rt.Registry.Activate(ctx, sel.SkillName)
	if !ok {
		return nil, false
	}

	render := tctx.Clone().WithSkillBasePath(loaded.BasePath)
	if sel.Arguments != "" {
		render.WithArguments(sel.Arguments)
	}
	loaded.Body = rt.Templates.Render(loaded.Body, render)
	return loaded, true
}

// Close stops the watcher if one is running.
func (rt *Runtime) Close() error {
	if rt.watcher == nil {
		return nil
	}
	return rt.watcher.Stop()
}
