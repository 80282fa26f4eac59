package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clide7029/MagicProxyAPp/internal/api"
	"github.com/clide7029/MagicProxyAPp/internal/api/handlers"
	"github.com/clide7029/MagicProxyAPp/internal/config"
	"github.com/clide7029/MagicProxyAPp/internal/database"
	"github.com/clide7029/MagicProxyAPp/internal/ratelimit"
	"github.com/clide7029/MagicProxyAPp/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if err := database.Initialize(database.Config{
		Driver: cfg.DBDriver,
		Path:   cfg.DBPath,
		URL:    cfg.DatabaseURL,
	}, logger); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	db := database.GetDB()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	generator, err := newIdeaGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	scryfall := services.NewScryfallService(cfg.ScryfallBaseURL, logger)
	cardCache := services.NewCardCache(scryfall, db, logger)
	store := services.NewDeckStore(db)
	deckGenerator := services.NewDeckGenerator(cardCache, store, generator, logger)
	enricher := services.NewDeckEnricher(cardCache, logger)

	pruner := services.NewCachePruner(db, cfg.CacheRetention, logger)
	go func() {
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("cache pruner panicked, restarting in 30 seconds", zap.Any("panic", r))
					}
				}()
				pruner.Start(ctx)
			}()

			select {
			case <-ctx.Done():
				return
			case <-time.After(30 * time.Second):
			}
		}
	}()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(api.RouterConfig{
		Decks:            handlers.NewDeckHandler(deckGenerator, store, enricher, logger),
		Cards:            handlers.NewCardHandler(cardCache, logger),
		Limiter:          ratelimit.New(ratelimit.WithWindow(cfg.RateLimitPerMinute, time.Minute)),
		Logger:           logger,
		CORSOrigins:      cfg.CORSOrigins,
		FrontendDistPath: cfg.FrontendDistPath,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("port", cfg.Port),
			zap.String("llm_provider", cfg.LLMProvider),
			zap.String("model", generator.ModelName()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-quit:
	}
	logger.Info("shutting down server")
	cancel()

	// generation requests can take a while, give them time to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}

func newIdeaGenerator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.IdeaGenerator, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		return services.NewGeminiService(ctx, services.GeminiConfig{
			APIKey: cfg.GoogleAPIKey,
			Model:  cfg.GeminiModel,
		}, logger)
	default:
		return services.NewOpenRouterService(services.OpenRouterConfig{
			APIKey:  cfg.OpenRouterAPIKey,
			BaseURL: cfg.OpenRouterBaseURL,
			Model:   cfg.OpenRouterModel,
			AppURL:  cfg.AppURL,
		}, logger)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level == "debug" {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zcfg.Build()
}
