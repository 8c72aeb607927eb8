package gating

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	skilltypes "github.com/jaguarliu/miniclaw-sub002/pkg/types/skills"
)

func envOf(m map[string]string) EnvLookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func binsOf(names ...string) BinaryLookup {
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	return func(_ context.Context, name string) bool { return set[name] }
}

func newTestEvaluator(opts ...Option) *Evaluator {
	base := []Option{
		WithEnvLookup(envOf(nil)),
		WithBinaryLookup(binsOf()),
		WithOS("linux"),
	}
	return NewEvaluator(append(base, opts...)...)
}

func TestEvaluate_NilRequirementsPass(t *testing.T) {
	e := newTestEvaluator()
	res := e.Evaluate(context.Background(), nil)
	assert.Equal(t, Passed, res)
	assert.True(t, res.Available)
	assert.Empty(t, res.FailureReason())
	assert.Zero(t, res.TotalMissing())
}

func TestEvaluate_EmptyRequirementsPass(t *testing.T) {
	res := newTestEvaluator().Evaluate(context.Background(), &skilltypes.SkillRequires{})
	assert.True(t, res.Available)
}

func TestEvaluate_Env(t *testing.T) {
	e := newTestEvaluator(WithEnvLookup(envOf(map[string]string{
		"SET":   "value",
		"BLANK": "   ",
	})))

	res := e.Evaluate(context.Background(), &skilltypes.SkillRequires{
		Env: []string{"SET", "BLANK", "UNSET"},
	})
	assert.False(t, res.Available)
	assert.Equal(t, []string{"BLANK", "UNSET"}, res.MissingEnvVars)
	assert.Equal(t, "Missing env vars: BLANK, UNSET", res.FailureReason())
}

func TestEvaluate_Bins(t *testing.T) {
	e := newTestEvaluator(WithBinaryLookup(binsOf("git")))

	res := e.Evaluate(context.Background(), &skilltypes.SkillRequires{Bins: []string{"git", "docker"}})
	assert.False(t, res.Available)
	assert.Equal(t, []string{"docker"}, res.MissingBins)
	assert.Equal(t, "Missing binaries: docker", res.FailureReason())
}

func TestEvaluate_AnyBins(t *testing.T) {
	t.Run("one hit satisfies", func(t *testing.T) {
		e := newTestEvaluator(WithBinaryLookup(binsOf("podman")))
		res := e.Evaluate(context.Background(), &skilltypes.SkillRequires{AnyBins: []string{"docker", "podman"}})
		assert.True(t, res.Available)
		assert.Empty(t, res.UnsatisfiedAnyBins)
	})

	t.Run("total miss reports every candidate", func(t *testing.T) {
		e := newTestEvaluator()
		res := e.Evaluate(context.Background(), &skilltypes.SkillRequires{AnyBins: []string{"docker", "podman"}})
		assert.False(t, res.Available)
		assert.Equal(t, []string{"docker", "podman"}, res.UnsatisfiedAnyBins)
		assert.Equal(t, 1, res.TotalMissing())
		assert.Equal(t, "Need one of: docker, podman", res.FailureReason())
	})
}

func TestEvaluate_Config(t *testing.T) {
	e := newTestEvaluator(WithConfigSource(MapSource{
		"feature.a": "true",
		"feature.b": "TRUE",
		"feature.c": "yes",
		"feature.d": "false",
	}))

	res := e.Evaluate(context.Background(), &skilltypes.SkillRequires{
		Config: []string{"feature.a", "feature.b", "feature.c", "feature.d", "feature.e"},
	})
	assert.Equal(t, []string{"feature.c", "feature.d", "feature.e"}, res.MissingConfigs)
	assert.Equal(t, "Missing configs: feature.c, feature.d, feature.e", res.FailureReason())
}

func TestEvaluate_ConfigWithoutSourceFails(t *testing.T) {
	e := NewEvaluator(WithBinaryLookup(binsOf()), WithOS("linux"))
	res := e.Evaluate(context.Background(), &skilltypes.SkillRequires{Config: []string{"x"}})
	assert.False(t, res.Available)
}

func TestEvaluate_ViperSource(t *testing.T) {
	v := viper.New()
	v.Set("skills.experimental", true)
	v.Set("skills.legacy", "no")

	e := newTestEvaluator(WithConfigSource(ViperSource{V: v}))
	res := e.Evaluate(context.Background(), &skilltypes.SkillRequires{
		Config: []string{"skills.experimental", "skills.legacy", "skills.absent"},
	})
	assert.Equal(t, []string{"skills.legacy", "skills.absent"}, res.MissingConfigs)

	_, ok := ViperSource{}.Lookup("anything")
	assert.False(t, ok)
}

func TestEvaluate_OS(t *testing.T) {
	e := newTestEvaluator(WithOS("Mac OS X"))
	assert.Equal(t, "darwin", e.CurrentOS(context.Background()))

	res := e.Evaluate(context.Background(), &skilltypes.SkillRequires{OS: []string{"darwin", "linux"}})
	assert.True(t, res.Available)

	res = e.Evaluate(context.Background(), &skilltypes.SkillRequires{OS: []string{"win32"}})
	assert.False(t, res.Available)
	assert.Equal(t, "darwin", res.UnsupportedOS)
	assert.Equal(t, 1, res.TotalMissing())
	assert.Equal(t, "Unsupported OS: darwin", res.FailureReason())
}

func TestEvaluate_CombinedFailure(t *testing.T) {
	e := newTestEvaluator()
	res := e.Evaluate(context.Background(), &skilltypes.SkillRequires{
		Env:     []string{"A", "B"},
		Bins:    []string{"x"},
		AnyBins: []string{"y", "z"},
		Config:  []string{"c"},
		OS:      []string{"win32"},
	})

	assert.False(t, res.Available)
	assert.Equal(t, 6, res.TotalMissing())
	assert.Equal(t,
		"Missing env vars: A, B; Missing binaries: x; Need one of: y, z; Missing configs: c; Unsupported OS: linux",
		res.FailureReason())
}

func TestHasBinary_Memoized(t *testing.T) {
	var calls atomic.Int32
	e := newTestEvaluator(WithBinaryLookup(func(_ context.Context, name string) bool {
		calls.Add(1)
		return name == "git"
	}))

	ctx := context.Background()
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, e.HasBinary(ctx, "git"))
		}()
	}
	wg.Wait()
	assert.False(t, e.HasBinary(ctx, "docker"))
	assert.False(t, e.HasBinary(ctx, "docker"))
	assert.Equal(t, int32(2), calls.Load())

	e.ClearBinaryCache()
	assert.True(t, e.HasBinary(ctx, "git"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestHasBinary_IgnoresCallerCancellation(t *testing.T) {
	e := newTestEvaluator(WithBinaryLookup(func(ctx context.Context, _ string) bool {
		return ctx.Err() == nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, e.HasBinary(ctx, "git"))
}

func TestNormalizeOS(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"darwin", "darwin"},
		{"Mac OS X", "darwin"},
		{"Linux", "linux"},
		{"windows", "win32"},
		{"Windows 11", "win32"},
		{"FreeBSD", "freebsd"},
		{"  Darwin ", "darwin"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeOS(tt.raw))
		})
	}
}

func TestDetectOS(t *testing.T) {
	got := DetectOS(context.Background())
	require.NotEmpty(t, got)
	assert.Equal(t, got, NormalizeOS(got))
}
