package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/jonathan/farlance/internal/config"
	"github.com/jonathan/farlance/internal/db"
	"github.com/jonathan/farlance/internal/identity"
	"github.com/jonathan/farlance/internal/log"
	"github.com/jonathan/farlance/internal/metrics"
	"github.com/jonathan/farlance/internal/notify"
	"github.com/jonathan/farlance/internal/server"
	"github.com/jonathan/farlance/internal/server/ratelimit"
)

var (
	servePort  int
	configPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the marketplace REST endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config and PORT)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON config file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	ctx := cmd.Context()

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}

	database, err := db.ConnectWithRetry(ctx, cfg.DatabaseURL, cfg.Database.ConnectAttempts, cfg.Database.ConnectDelay.Std())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := server.New(server.Options{
		Config:   cfg,
		Store:    database,
		Identity: identity.NewClient(cfg.Identity),
		Notifier: notify.NewClient(cfg.Notify),
		JWT:      server.NewJWTService(jwtConfig),
		Metrics:  metrics.New(reg),
		Gatherer: reg,
		Limiter:  ratelimit.NewLimiter(ratelimit.LoadConfig()),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Info(ctx, "configuration loaded",
		slog.Int("port", cfg.Port),
		slog.String("appUrl", cfg.AppURL),
		slog.Int("notifyConcurrency", cfg.Notify.Concurrency),
	)
	return srv.Start(ctx)
}
