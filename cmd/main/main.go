package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Houeta/offerhunt/internal/api"
	"github.com/Houeta/offerhunt/internal/bot"
	"github.com/Houeta/offerhunt/internal/config"
	"github.com/Houeta/offerhunt/internal/fetcher"
	"github.com/Houeta/offerhunt/internal/metrics"
	"github.com/Houeta/offerhunt/internal/normalizer"
	"github.com/Houeta/offerhunt/internal/parser"
	"github.com/Houeta/offerhunt/internal/repository"
	"github.com/Houeta/offerhunt/internal/repository/postgres"
	"github.com/Houeta/offerhunt/internal/repository/sqlite"
	"github.com/Houeta/offerhunt/internal/services/ingest"
	"github.com/Houeta/offerhunt/internal/services/scheduler"
	"github.com/Houeta/offerhunt/internal/services/tracker"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

const shutdownTimeout = 10 * time.Second

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load() // .env is optional

	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env, os.Stdout)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(reg)

	store, err := openStore(ctx, logger, cfg.Storage, reg)
	if err != nil {
		log.Fatalf("Failed to init store: %v", err)
	}
	defer store.Close()

	prices := normalizer.New(normalizer.Options{
		Floor:         cfg.Price.Floor,
		RequireMarker: cfg.Price.RequireCurrency,
		DecimalComma:  true,
	})

	registry, err := parser.NewRegistry(logger, cfg.Sources, prices)
	if err != nil {
		log.Fatalf("Failed to load sources from %s: %v", cfg.SourceCfg, err)
	}

	executor := fetcher.New(
		logger,
		&http.Client{},
		fetcher.NewRodRenderer(logger, cfg.Fetch.BrowserBin, cfg.Fetch.UserAgent),
		fetcher.Options{
			Timeout:        cfg.Fetch.Timeout,
			RenderTimeout:  cfg.Fetch.RenderTimeout,
			UserAgent:      cfg.Fetch.UserAgent,
			AcceptLanguage: cfg.Fetch.AcceptLanguage,
			HostRate:       cfg.Fetch.HostRate,
			MaxBodyBytes:   cfg.Fetch.MaxBodyBytes,
		},
	)

	coordinator := ingest.NewCoordinator(
		logger,
		registry.Sources(),
		executor,
		prices,
		store,
		ingest.Options{Concurrency: cfg.RunLimit, Metrics: appMetrics, Lookup: registry},
	)
	alerts := tracker.New(logger, store, coordinator)

	var (
		notifier tracker.Notifier
		chatBot  *bot.Bot
	)
	if cfg.Tg.Token != "" {
		chatBot, err = bot.NewBot(logger, cfg.Tg.Token, cfg.Tg.Timeout, alerts)
		if err != nil {
			log.Fatalf("Failed to init bot: %v", err)
		}
		notifier = chatBot
	} else {
		logger.WarnContext(ctx, "OH_TELEGRAM_TOKEN is empty, chat bot and alert sweep are disabled")
	}

	if cfg.Env != envLocal {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(api.NewHandler(logger, store, coordinator, appMetrics), reg, cfg.HTTP.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Log that the application has started.
	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.", "sources", len(registry.Sources()))

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.New(logger, coordinator, alerts, notifier, cfg.Schedule.Interval, cfg.Schedule.AlertInterval).Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.InfoContext(ctx, "HTTP server is listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "HTTP server failed", "error", err)
			stop()
		}
	}()

	// Start the bot in a goroutine to allow main to listen for signals.
	if chatBot != nil {
		go chatBot.Start()
	}

	// Wait for the context to be canceled (e.g., by Ctrl+C).
	<-ctx.Done()

	// Log that a shutdown signal has been received.
	logger.InfoContext(ctx, "Shutdown signal received. Stopping application...")

	if chatBot != nil {
		chatBot.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(shutdownCtx, "HTTP server shutdown failed", "error", err)
	}

	wg.Wait()

	// Log graceful shutdown completion.
	logger.InfoContext(shutdownCtx, "Application stopped gracefully.")
}

// openStore connects the configured storage driver.
func openStore(
	ctx context.Context,
	log *slog.Logger,
	cfg config.Storage,
	reg prometheus.Registerer,
) (repository.Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		repo, err := sqlite.NewRepository(ctx, log, cfg.Path)
		if err != nil {
			return nil, err
		}
		reg.MustRegister(collectors.NewDBStatsCollector(repo.DB(), "sqlite"))
		return repo, nil
	case "postgres":
		repo, err := postgres.NewRepository(ctx, log, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, errors.New("unknown storage driver " + cfg.Driver)
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string, out io.Writer) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(out, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{
				Level:     slog.LevelWarn,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{
				Level:     slog.LevelError,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}
