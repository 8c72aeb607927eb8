package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jaguarliu/miniclaw-sub002/pkg/api"
	"github.com/jaguarliu/miniclaw-sub002/pkg/config"
	"github.com/jaguarliu/miniclaw-sub002/pkg/logger"
	"github.com/jaguarliu/miniclaw-sub002/pkg/presenter"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the skills admin API",
	Long: `Start an HTTP server exposing the skill registry: listing, details, refresh,
index preview, uploads and selection. The registry follows changes to the skill
roots while the server runs.

The server listens on http://localhost:8090 by default.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		cmd.SetContext(ctx)

		runServeCommand(cmd)
	},
}

func init() {
	serveCmd.Flags().String("host", config.DefaultServerAddr, "Host to bind the API server to")
	serveCmd.Flags().Int("port", config.DefaultServerPort, "Port to bind the API server to")
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServeCommand(cmd *cobra.Command) {
	ctx := cmd.Context()
	rt := newRuntime(cmd, true)
	defer func() {
		if err := rt.Close(); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to stop skill watcher")
		}
	}()

	cfg, _ := loadConfig(cmd)
	server, err := api.NewServer(rt, &api.Config{Host: cfg.Server.Host, Port: cfg.Server.Port})
	if err != nil {
		presenter.Error(err, "failed to create API server")
		os.Exit(1)
	}

	presenter.Info("Press Ctrl+C to stop the server")
	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		presenter.Error(err, "API server failed")
		os.Exit(1)
	}
	logger.G(ctx).Info("API server stopped")
}
