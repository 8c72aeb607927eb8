package gating

import (
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/spf13/viper"

	"github.com/jaguarliu/miniclaw-sub002/pkg/logger"
	"github.com/jaguarliu/miniclaw-sub002/pkg/osutil"
)

// ExecLookup returns a BinaryLookup that runs `which` (or `where` on
// Windows) and treats a zero exit status as found. Timeouts and start
// failures count as not found.
func ExecLookup(timeout time.Duration) BinaryLookup {
	return func(ctx context.Context, name string) bool {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := osutil.FindBinary(ctx, name); err != nil {
			logger.G(ctx).WithError(err).WithField("binary", name).Debug("binary not found")
			return false
		}
		return true
	}
}

// DetectOS reads the host OS name through gopsutil and normalizes it,
// falling back to runtime.GOOS when the host cannot be inspected.
func DetectOS(ctx context.Context) string {
	raw := runtime.GOOS
	if info, err := host.InfoWithContext(ctx); err == nil && info.OS != "" {
		raw = info.OS
	} else if err != nil {
		logger.G(ctx).WithError(err).Debug("failed to inspect host, using runtime.GOOS")
	}
	return NormalizeOS(raw)
}

// NormalizeOS maps an OS name onto darwin, linux or win32. Other names are
// returned lower-cased.
func NormalizeOS(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(name, "mac"), strings.Contains(name, "darwin"):
		return "darwin"
	case strings.Contains(name, "linux"):
		return "linux"
	case strings.Contains(name, "win"):
		return "win32"
	default:
		return name
	}
}

// ConfigSource resolves configuration keys for config requirements.
type ConfigSource interface {
	Lookup(key string) (string, bool)
}

// MapSource is a static ConfigSource.
type MapSource map[string]string

func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// ViperSource exposes a viper instance as a ConfigSource, so any key from the
// config file, the environment or a flag can gate a skill.
type ViperSource struct {
	V *viper.Viper
}

func (s ViperSource) Lookup(key string) (string, bool) {
	if s.V == nil || !s.V.IsSet(key) {
		return "", false
	}
	return s.V.GetString(key), true
}
