package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jaguarliu/miniclaw-sub002/pkg/config"
	"github.com/jaguarliu/miniclaw-sub002/pkg/logger"
	"github.com/jaguarliu/miniclaw-sub002/pkg/presenter"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills"
)

var shutdownTracing func(context.Context) error

var rootCmd = &cobra.Command{
	Use:   "miniclaw-skills",
	Short: "Inspect, render and serve miniclaw skills",
	Long: `miniclaw-skills discovers SKILL.md capability plugins from the project, user and
builtin skill roots, checks their requirements, and exposes them through a prompt
index, slash-command selection, template rendering and an admin HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.Setup(viper.GetViper()); err != nil {
			return err
		}
		if err := logger.Configure(viper.GetString("log.level"), viper.GetString("log.format")); err != nil {
			return err
		}
		if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
			presenter.SetQuiet(true)
		}

		shutdown, err := initTracing(cmd.Context())
		if err != nil {
			logger.G(cmd.Context()).WithError(err).Warn("failed to initialize tracing")
			return nil
		}
		shutdownTracing = shutdown
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		if shutdownTracing == nil {
			return
		}
		if err := shutdownTracing(context.Background()); err != nil {
			logger.G(cmd.Context()).WithError(err).Debug("failed to flush traces")
		}
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "Log level (panic, fatal, error, warn, info, debug, trace)")
	flags.String("log-format", "fmt", "Log format (fmt or json)")
	flags.String("project-dir", config.DefaultProjectDir, "Project skill root (highest priority)")
	flags.String("user-dir", config.DefaultUserDir, "User skill root")
	flags.String("builtin-dir", config.DefaultBuiltinDir, "Builtin skill root (lowest priority)")
	flags.Int("token-budget", config.DefaultIndexTokenBudget, "Token budget of the skill index")
	flags.Bool("no-skills", false, "Disable skill discovery")
	flags.BoolP("quiet", "q", false, "Suppress informational output")

	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("log.format", flags.Lookup("log-format"))
	viper.BindPFlag("skills.project_dir", flags.Lookup("project-dir"))
	viper.BindPFlag("skills.user_dir", flags.Lookup("user-dir"))
	viper.BindPFlag("skills.builtin_dir", flags.Lookup("builtin-dir"))
	viper.BindPFlag("skills.index_token_budget", flags.Lookup("token-budget"))

	rootCmd.AddCommand(withTracing(listCmd))
	rootCmd.AddCommand(withTracing(showCmd))
	rootCmd.AddCommand(withTracing(indexCmd))
	rootCmd.AddCommand(withTracing(renderCmd))
	rootCmd.AddCommand(withTracing(selectCmd))
	rootCmd.AddCommand(withTracing(checkCmd))
	rootCmd.AddCommand(withTracing(installCmd))
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the merged configuration and applies --no-skills.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return cfg, errors.Wrap(err, "invalid configuration")
	}
	if noSkills, _ := cmd.Flags().GetBool("no-skills"); noSkills {
		cfg.Skills.Enabled = false
	}
	return cfg, nil
}

// newRuntime builds the skill runtime for a one-shot command. The watcher
// only runs when watch is true.
func newRuntime(cmd *cobra.Command, watch bool) *skills.Runtime {
	cfg, err := loadConfig(cmd)
	if err != nil {
		presenter.Error(err, "failed to load configuration")
		os.Exit(1)
	}

	opts := []skills.Option{skills.WithViper(viper.GetViper())}
	if !watch {
		opts = append(opts, skills.WithoutWatcher())
	}
	rt, err := skills.Initialize(cmd.Context(), cfg, opts...)
	if err != nil {
		presenter.Error(err, "failed to initialize skills")
		os.Exit(1)
	}
	return rt
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
