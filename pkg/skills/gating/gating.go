// Package gating decides whether a skill's runtime requirements are met on
// this machine: environment variables, binaries on PATH, configuration flags
// and operating system.
package gating

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jaguarliu/miniclaw-sub002/pkg/logger"
	"github.com/jaguarliu/miniclaw-sub002/pkg/telemetry"
	skilltypes "github.com/jaguarliu/miniclaw-sub002/pkg/types/skills"
)

// DefaultBinaryCheckTimeout bounds a single binary lookup.
const DefaultBinaryCheckTimeout = 5 * time.Second

// EnvLookup resolves an environment variable.
type EnvLookup func(key string) (string, bool)

// BinaryLookup reports whether an executable is reachable on PATH.
type BinaryLookup func(ctx context.Context, name string) bool

// Evaluator checks skill requirements. It is safe for concurrent use.
type Evaluator struct {
	env      EnvLookup
	binaries BinaryLookup
	config   ConfigSource
	timeout  time.Duration

	osOnce sync.Once
	osName string

	binCache sync.Map // name -> *binaryCheck
}

type binaryCheck struct {
	once  sync.Once
	found bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithEnvLookup replaces os.LookupEnv.
func WithEnvLookup(fn EnvLookup) Option {
	return func(e *Evaluator) { e.env = fn }
}

// WithBinaryLookup replaces the which/where lookup.
func WithBinaryLookup(fn BinaryLookup) Option {
	return func(e *Evaluator) { e.binaries = fn }
}

// WithConfigSource sets the source consulted for config requirements.
func WithConfigSource(src ConfigSource) Option {
	return func(e *Evaluator) { e.config = src }
}

// WithBinaryCheckTimeout bounds the default binary lookup.
func WithBinaryCheckTimeout(d time.Duration) Option {
	return func(e *Evaluator) { e.timeout = d }
}

// WithOS pins the normalized OS name instead of detecting it.
func WithOS(name string) Option {
	return func(e *Evaluator) {
		e.osOnce.Do(func() { e.osName = NormalizeOS(name) })
	}
}

// NewEvaluator returns an evaluator backed by the real environment unless
// overridden by opts. Without a config source every config requirement fails.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		env:     os.LookupEnv,
		config:  MapSource(nil),
		timeout: DefaultBinaryCheckTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.binaries == nil {
		e.binaries = ExecLookup(e.timeout)
	}
	return e
}

// Evaluate checks req and reports every unmet requirement. A nil req passes.
func (e *Evaluator) Evaluate(ctx context.Context, req *skilltypes.SkillRequires) Result {
	if req == nil {
		return Passed
	}

	ctx, span := telemetry.StartSpan(ctx, "skills.gating.evaluate")
	defer span.End()

	res := Result{
		MissingEnvVars:     e.missingEnv(req.Env),
		MissingBins:        e.missingBins(ctx, req.Bins),
		UnsatisfiedAnyBins: e.unsatisfiedAnyBins(ctx, req.AnyBins),
		MissingConfigs:     e.missingConfigs(req.Config),
		UnsupportedOS:      e.unsupportedOS(ctx, req.OS),
	}
	res.Available = res.TotalMissing() == 0

	span.SetAttributes(
		attribute.Bool("gating.available", res.Available),
		attribute.Int("gating.missing", res.TotalMissing()),
	)
	if !res.Available {
		logger.G(ctx).WithField("reason", res.FailureReason()).Debug("skill requirements not met")
	}
	return res
}

func (e *Evaluator) missingEnv(keys []string) []string {
	var missing []string
	for _, key := range keys {
		if v, ok := e.env(key); !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

func (e *Evaluator) missingBins(ctx context.Context, bins []string) []string {
	var missing []string
	for _, bin := range bins {
		if !e.HasBinary(ctx, bin) {
			missing = append(missing, bin)
		}
	}
	return missing
}

func (e *Evaluator) unsatisfiedAnyBins(ctx context.Context, bins []string) []string {
	if len(bins) == 0 {
		return nil
	}
	for _, bin := range bins {
		if e.HasBinary(ctx, bin) {
			return nil
		}
	}
	return append([]string(nil), bins...)
}

func (e *Evaluator) missingConfigs(keys []string) []string {
	var missing []string
	for _, key := range keys {
		if v, ok := e.config.Lookup(key); !ok || !strings.EqualFold(v, "true") {
			missing = append(missing, key)
		}
	}
	return missing
}

func (e *Evaluator) unsupportedOS(ctx context.Context, allowed []string) string {
	if len(allowed) == 0 {
		return ""
	}
	current := e.CurrentOS(ctx)
	for _, name := range allowed {
		if name == current {
			return ""
		}
	}
	return current
}

// HasBinary reports whether name is on PATH. The answer is computed once per
// name and reused until ClearBinaryCache is called.
func (e *Evaluator) HasBinary(ctx context.Context, name string) bool {
	v, _ := e.binCache.LoadOrStore(name, &binaryCheck{})
	check := v.(*binaryCheck)
	check.once.Do(func() {
		// the cached answer must not depend on the first caller's deadline
		check.found = e.binaries(context.WithoutCancel(ctx), name)
	})
	return check.found
}

// ClearBinaryCache forgets every memoized binary lookup.
func (e *Evaluator) ClearBinaryCache() {
	e.binCache.Range(func(key, _ any) bool {
		e.binCache.Delete(key)
		return true
	})
}

// CurrentOS returns the normalized OS name, detecting it on first use.
func (e *Evaluator) CurrentOS(ctx context.Context) string {
	e.osOnce.Do(func() { e.osName = DetectOS(ctx) })
	return e.osName
}
