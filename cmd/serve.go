package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/restock-notifier/internal/api"
	"github.com/shaharia-lab/restock-notifier/internal/build"
	"github.com/shaharia-lab/restock-notifier/internal/config"
	"github.com/shaharia-lab/restock-notifier/internal/logger"
	"github.com/shaharia-lab/restock-notifier/internal/scheduler"
	"github.com/shaharia-lab/restock-notifier/internal/server"
	"github.com/shaharia-lab/restock-notifier/internal/telemetry"
)

// NewServeCmd returns the "serve" subcommand that starts the webhook server.
func NewServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook HTTP server",
		Long: `Start the HTTP server that receives Contentful webhooks on POST /webhook
and dispatches restock notifications. Configuration is read from the
environment; see CONTENTFUL_* and EMAIL_* variables.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			// CLI flags override env config.
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			return runServe(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVar(&port, "port", 3000, "HTTP server port (overrides PORT env var)")
	return cmd
}

func runServe(parent context.Context, cfg *config.AppConfig, stderr io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sysLogger, logCloser, err := logger.New(stderr, cfg.LogDir, cfg.SlogLevel())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logCloser.Close()

	sysLogger.Info("restock-notifier starting",
		slog.Int("port", cfg.Port),
		slog.String("contentful_space", cfg.ContentfulSpaceID),
		slog.String("contentful_environment", cfg.ContentfulEnvironment),
		slog.String("fallback_language", cfg.FallbackLanguage),
		slog.Int("max_concurrent_sends", cfg.MaxConcurrentSends),
		slog.Bool("delivery_log", cfg.AuditLogEnabled()),
		slog.Bool("tracing", cfg.TracingEnabled()),
		slog.String("version", build.Version),
		slog.String("commit", build.CommitSHA),
		slog.String("build_date", build.BuildDate),
	)

	tp, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:       cfg.OTLPEndpoint,
		ServiceName:    "restock-notifier",
		ServiceVersion: build.Version,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			sysLogger.Warn("failed to flush traces", "error", err)
		}
	}()

	a, err := buildApp(cfg, sysLogger)
	if err != nil {
		return err
	}
	defer a.close()

	var sched *scheduler.Scheduler
	if a.deliverySvc != nil {
		sched, err = scheduler.New(scheduler.Config{
			Pruner:    a.deliverySvc,
			Retention: cfg.DeliveryLogRetention,
			Logger:    sysLogger,
		})
		if err != nil {
			return fmt.Errorf("creating scheduler: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer func() {
			if err := sched.Stop(); err != nil {
				sysLogger.Warn("failed to stop scheduler", "error", err)
			}
		}()
	}

	apiSrv := api.New(a.restockSvc, a.deliverySvc, sysLogger)
	srv := server.New(apiSrv, a.metrics.Handler(), cfg.Port, sysLogger)

	sysLogger.Info("server ready",
		"webhook", fmt.Sprintf("http://localhost:%d/webhook", cfg.Port),
		"languages", a.catalog.Languages(),
	)

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		sysLogger.Error("server stopped with error", "error", err)
		return err
	}
	sysLogger.Info("restock-notifier stopped")
	return nil
}
