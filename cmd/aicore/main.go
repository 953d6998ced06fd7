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

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/vnmchuo/ai-core/config"
	"github.com/vnmchuo/ai-core/internal/abilities"
	"github.com/vnmchuo/ai-core/internal/aiclient"
	"github.com/vnmchuo/ai-core/internal/api"
	"github.com/vnmchuo/ai-core/internal/auth"
	"github.com/vnmchuo/ai-core/internal/billing"
	"github.com/vnmchuo/ai-core/internal/cache"
	"github.com/vnmchuo/ai-core/internal/db"
	"github.com/vnmchuo/ai-core/internal/logger"
	"github.com/vnmchuo/ai-core/internal/pricing"
	"github.com/vnmchuo/ai-core/internal/provider"
	"github.com/vnmchuo/ai-core/internal/provider/claude"
	"github.com/vnmchuo/ai-core/internal/provider/hosted"
	"github.com/vnmchuo/ai-core/internal/provider/openai"
	"github.com/vnmchuo/ai-core/internal/seeder"
	"github.com/vnmchuo/ai-core/internal/settings"
	"github.com/vnmchuo/ai-core/internal/telemetry"
	"github.com/vnmchuo/ai-core/internal/thread"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init logger
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init telemetry
	shutdownTracer, err := telemetry.InitTracer("ai-core", cfg, log)
	if err != nil {
		log.Fatal("failed to init tracer", "error", err)
	}
	defer shutdownTracer()

	// 4. Connect database and migrate
	ctx := context.Background()
	dsn := cfg.PostgresDSN
	if cfg.DatabaseDriver == string(db.SQLite) {
		dsn = cfg.SQLitePath
	}
	database, err := db.Open(ctx, cfg.DatabaseDriver, dsn)
	if err != nil {
		log.Fatal("failed to open database", "driver", cfg.DatabaseDriver, "error", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		log.Fatal("failed to migrate database", "error", err)
	}
	log.Info("database ready", "driver", cfg.DatabaseDriver)

	// 5. Connect cache
	var c cache.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to ping redis", "addr", cfg.RedisAddr, "error", err)
		}
		c = cache.NewRedisCache(rdb)
		log.Info("redis connected", "addr", cfg.RedisAddr)
	} else {
		c = cache.NewMemoryCache()
		log.Info("using in-memory cache")
	}

	// 6. Load pricing
	prices := pricing.Default()
	if cfg.PricingFile != "" {
		prices, err = pricing.LoadFile(cfg.PricingFile)
		if err != nil {
			log.Fatal("failed to load pricing file", "path", cfg.PricingFile, "error", err)
		}
		log.Info("pricing table loaded", "path", cfg.PricingFile, "entries", len(prices.Entries()))
	}

	// 7. Init stores
	threadStore := thread.NewSQLStore(database)
	logStore := billing.NewSQLStore(database, prices)
	settingsService := settings.NewService(settings.NewSQLStore(database), cfg)
	authStore := auth.NewSQLStore(database)

	if n, err := logStore.BackfillCost(ctx); err != nil {
		log.Error("failed to backfill log costs", "error", err)
	} else if n > 0 {
		log.Info("backfilled log costs", "rows", n)
	}

	// 8. Init providers
	vendors := []provider.Provider{
		openai.New(c),
		claude.New(c),
	}
	var host provider.Provider
	if cfg.HostAIURL != "" {
		host = hosted.New(cfg.HostAIURL, cfg.HostAIKey, c)
		log.Info("host AI client enabled", "url", cfg.HostAIURL)
	}

	// 9. Init client factory
	tracer := otel.GetTracerProvider().Tracer("ai-core")
	factory := &aiclient.Factory{
		Settings: settingsService,
		Vendors:  vendors,
		Host:     host,
		Threads:  threadStore,
		Logs:     logStore,
		Logger:   log,
		Tracer:   tracer,
	}

	// 10. Seed development admin key if RUN_SEED=true
	if cfg.RunSeed {
		if err := seeder.SeedDevAdminKey(ctx, authStore, log); err != nil {
			log.Error("failed to seed admin key", "error", err)
		}
	}

	// 11. Init router
	authMiddleware := auth.NewMiddleware(authStore, c, log)
	handler := api.NewHandler(factory, log)
	mcpHandler := abilities.New(factory, log).HTTPHandler()
	router := api.NewRouter(handler, authMiddleware, mcpHandler, log)

	// 12. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: provider.ChatTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("ai-core starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", "error", err)
		}
	}()

	<-quit
	log.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
		return
	}
	log.Info("server stopped")
}
