// Package config loads runtime configuration for the skills runtime from
// viper: the config file at ~/.miniclaw/config.yaml, MINICLAW_* environment
// variables, and bound command-line flags.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jaguarliu/miniclaw-sub002/pkg/telemetry"
)

const (
	// EnvPrefix is the prefix of every environment variable read by viper.
	EnvPrefix = "MINICLAW"

	DefaultProjectDir         = "./.miniclaw/skills"
	DefaultUserDir            = "~/.miniclaw/skills"
	DefaultBuiltinDir         = "./skills"
	DefaultIndexTokenBudget   = 2000
	DefaultWatchDebounce      = 100 * time.Millisecond
	DefaultBinaryCheckTimeout = 5 * time.Second
	DefaultServerAddr         = "localhost"
	DefaultServerPort         = 8090
)

// SkillsConfig holds the settings that shape discovery, indexing and watching.
type SkillsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	ProjectDir         string        `mapstructure:"project_dir"`
	UserDir            string        `mapstructure:"user_dir"`
	BuiltinDir         string        `mapstructure:"builtin_dir"`
	IndexTokenBudget   int           `mapstructure:"index_token_budget"`
	WatchEnabled       bool          `mapstructure:"watch_enabled"`
	WatchDebounce      time.Duration `mapstructure:"watch_debounce"`
	BinaryCheckTimeout time.Duration `mapstructure:"binary_check_timeout"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig is the listen address of the admin API.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Config is the full runtime configuration.
type Config struct {
	Skills  SkillsConfig     `mapstructure:"skills"`
	Log     LogConfig        `mapstructure:"log"`
	Tracing telemetry.Config `mapstructure:"tracing"`
	Server  ServerConfig     `mapstructure:"server"`
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("skills.enabled", true)
	v.SetDefault("skills.project_dir", DefaultProjectDir)
	v.SetDefault("skills.user_dir", DefaultUserDir)
	v.SetDefault("skills.builtin_dir", DefaultBuiltinDir)
	v.SetDefault("skills.index_token_budget", DefaultIndexTokenBudget)
	v.SetDefault("skills.watch_enabled", true)
	v.SetDefault("skills.watch_debounce", DefaultWatchDebounce)
	v.SetDefault("skills.binary_check_timeout", DefaultBinaryCheckTimeout)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "fmt")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sampler", "ratio")
	v.SetDefault("tracing.ratio", 1.0)
	v.SetDefault("server.host", DefaultServerAddr)
	v.SetDefault("server.port", DefaultServerPort)
}

// Setup prepares v the way the CLI uses it: MINICLAW_ env binding,
// defaults, and an optional config.yaml in $HOME/.miniclaw or the working
// directory. A missing config file is not an error.
func Setup(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.miniclaw")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "failed to read config file")
	}
	return nil
}

// Load unmarshals v into a Config, expands the skill roots and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to unmarshal configuration")
	}

	var err error
	for _, dir := range []*string{&cfg.Skills.ProjectDir, &cfg.Skills.UserDir, &cfg.Skills.BuiltinDir} {
		if *dir, err = ExpandPath(*dir); err != nil {
			return cfg, err
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise break the runtime.
func (c Config) Validate() error {
	if c.Skills.IndexTokenBudget <= 0 {
		return errors.Errorf("skills.index_token_budget must be positive, got %d", c.Skills.IndexTokenBudget)
	}
	if c.Skills.WatchDebounce < 0 {
		return errors.Errorf("skills.watch_debounce must not be negative, got %s", c.Skills.WatchDebounce)
	}
	if c.Skills.BinaryCheckTimeout <= 0 {
		return errors.Errorf("skills.binary_check_timeout must be positive, got %s", c.Skills.BinaryCheckTimeout)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// ExpandPath resolves a leading "~" to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve home directory")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
