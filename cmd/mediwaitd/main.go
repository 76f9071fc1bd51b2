package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chani890/MediWait/config"
	"github.com/chani890/MediWait/internal/api"
	"github.com/chani890/MediWait/internal/broadcast"
	"github.com/chani890/MediWait/internal/db"
	"github.com/chani890/MediWait/internal/mw"
	"github.com/chani890/MediWait/internal/noshow"
	"github.com/chani890/MediWait/internal/notification"
	"github.com/chani890/MediWait/internal/queue"
	"github.com/chani890/MediWait/internal/store"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "mediwaitd",
		Short:        "Clinic patient queue server",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the YAML config file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the queue API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configPath)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(configPath)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config/config.yaml"
}

func newLogger(development bool) zerolog.Logger {
	if development {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runMigrate(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	logger := newLogger(cfg.Server.Development)

	if _, err := db.Init(&cfg.Database); err != nil {
		return err
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database schema is up to date")
	return nil
}

func runServer(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	logger := newLogger(cfg.Server.Development)
	logger.Info().Str("path", configPath).Msg("configuration loaded")

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize database")
		return err
	}
	appStore := store.NewGormStore(gormDB)
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		pushPool       *broadcast.WorkerPool
		webpushOptions *webpush.Options
	)
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pushPool = broadcast.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, logger)
		pushPool.Start(ctx)
	} else {
		logger.Warn().Msg("VAPID keys are not configured, web push is disabled")
	}
	hub := broadcast.NewHub(pushPool, logger)

	responses := mw.NewResponseCache(time.Duration(cfg.Server.CacheTTLSeconds) * time.Second)
	sms := notification.NewSwitchableGateway(
		notification.NewGateway(cfg.Notification, logger),
		logger,
		cfg.Notification.Provider == "log",
	)
	trigger := notification.NewTrigger(appStore, sms, cfg.Notification, logger)

	svc := queue.NewService(appStore,
		queue.WithPublisher(queue.Publishers{
			hub,
			queue.PublisherFunc(func(queue.Event) { responses.Invalidate() }),
		}),
		queue.WithTrigger(trigger),
		queue.WithRetryAttempts(cfg.Queue.CallRetryAttempts),
		queue.WithLogger(logger),
	)

	sweeper := noshow.NewSweeper(cfg.NoShow, appStore, svc, logger)
	go sweeper.Run(ctx)

	handler := api.NewHandler(svc, appStore, hub, sms, webpushOptions, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(handler, responses, cfg.Server, logger),
		// Event streams end when ctx is cancelled at shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info().Msg("shutdown signal received, stopping services")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("HTTP server failed")
		return err
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}

	logger.Info().Msg("server gracefully stopped")
	return nil
}
