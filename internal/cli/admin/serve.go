package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/archivesearch/internal/api/handlers"
	"github.com/cloo-solutions/archivesearch/internal/api/middleware"
	"github.com/cloo-solutions/archivesearch/internal/archive"
	"github.com/cloo-solutions/archivesearch/internal/config"
	"github.com/cloo-solutions/archivesearch/internal/database"
	"github.com/cloo-solutions/archivesearch/internal/jobs"
	"github.com/cloo-solutions/archivesearch/internal/logging"
	"github.com/cloo-solutions/archivesearch/internal/render"
	"github.com/cloo-solutions/archivesearch/internal/repository"
	"github.com/cloo-solutions/archivesearch/internal/server"
	"github.com/cloo-solutions/archivesearch/internal/service"
	"github.com/cloo-solutions/archivesearch/internal/telemetry"
	"github.com/spf13/cobra"
)

const defaultSessionSecret = "change-me"

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long:  "Start the archivesearch web server and search API on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides ARCHIVESEARCH_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.Setup(cfg.Debug)

	if cfg.HasSentry() {
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: cfg.TracesSampleRate(),
			Debug:            cfg.Debug,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("telemetry init failed (continuing without tracing)")
		} else {
			defer shutdownTelemetry()
		}
	}

	if portFlag, _ := cmd.Flags().GetString("port"); portFlag != "" {
		cfg.Port = portFlag
	}
	if cfg.SessionSecret == defaultSessionSecret {
		logger.Warn().Msg("ARCHIVESEARCH_SESSION_SECRET is the default value; visited cookies can be forged")
	}

	fileLog, err := newFileQueryLog(cfg)
	if err != nil {
		return err
	}
	queryLogs := service.MultiQueryLog{fileLog}

	if cfg.HasDatabase() {
		pool, err := getDBPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := database.Migrate(cfg.DatabaseURL, database.DefaultMigrationsSource, logger); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		queryLogs = append(queryLogs, repository.NewQueryLogRepository(pool))
	}

	var archiveWorker *jobs.Worker
	if cfg.HasS3() {
		s3Client, err := newS3Client(ctx, cfg)
		if err != nil {
			return err
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		logger.Info().Str("bucket", s3Client.Bucket()).Msg("S3 bucket ready")

		archiver := jobs.NewLogArchiver(fileLog, s3Client, logArchivePrefix, logger)
		archiveWorker = jobs.NewWorker("log-archiver", archiver, cfg.LogArchiveInterval, logger,
			jobs.WithPassTimeout(time.Minute), jobs.WithFinalPass())
		go archiveWorker.Start(ctx)
	}

	fetcher := archive.NewClient(archive.Config{
		Endpoint:  cfg.CDXEndpoint,
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
		Rate:      cfg.FetchRate,
		Burst:     cfg.FetchBurst,
	})
	searchSvc := service.NewSearchService(fetcher, queryLogs, service.NewArchiveLinks(cfg.ArchiveBaseURL)).
		WithLogger(logger)

	renderer, err := render.New()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	router := server.NewRouter(server.RouterConfig{
		Logger:        logger,
		VisitedGate:   middleware.NewVisitedGate(cfg.SessionSecret),
		PageHandler:   handlers.NewPageHandler(searchSvc, renderer, logger),
		SearchHandler: handlers.NewSearchHandler(searchSvc, logger),
		Static:        render.StaticHandler(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if archiveWorker != nil {
		archiveWorker.Stop()
	}

	logger.Info().Msg("server exited")
	return nil
}
