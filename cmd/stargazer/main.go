package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/maxxcraig/Stargazer/internal/api"
	"github.com/maxxcraig/Stargazer/internal/auth"
	"github.com/maxxcraig/Stargazer/internal/catalog"
	"github.com/maxxcraig/Stargazer/internal/ephemcache"
	"github.com/maxxcraig/Stargazer/internal/metrics"
	"github.com/maxxcraig/Stargazer/internal/sky"
	"github.com/maxxcraig/Stargazer/internal/stream"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	addr := os.Getenv("STARGAZER_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	store := catalog.NewStore()
	cat, err := catalog.Load(logger)
	if err != nil {
		logger.Error("catalog load failed", "error", err)
		os.Exit(1)
	}
	store.Set(cat)
	metrics.SetCatalogSizes(len(cat.Stars()), len(cat.Constellations()), len(cat.Planets()))

	cacheCfg := loadCacheConfig(logger)
	ephem := ephemcache.New(cacheCfg, store, logger)

	skyCfg := loadSkyConfig(logger)
	skySvc := sky.NewService(store, ephem, skyCfg, logger)

	streamCfg := loadStreamConfig(logger)
	streamHandler := stream.NewHandler(skySvc, store, streamCfg, logger)

	srv := api.NewServer(addr, logger, authCfg, store, skySvc, ephem, streamHandler)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start ephemeris cache background worker.
	go ephem.Start(ctx)

	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func logLevel() slog.Level {
	switch os.Getenv("STARGAZER_LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("STARGAZER_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("STARGAZER_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("STARGAZER_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("STARGAZER_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadSkyConfig(logger *slog.Logger) sky.Config {
	cfg := sky.Config{}

	if v := os.Getenv("STARGAZER_SKY_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid STARGAZER_SKY_WORKERS value, using default", "value", v)
		} else {
			cfg.Workers = n
		}
	}

	logger.Info("sky config", "workers", cfg.Workers)
	return cfg
}

func loadCacheConfig(logger *slog.Logger) ephemcache.Config {
	cfg := ephemcache.Config{
		Step:    1 * time.Second,
		Horizon: 300 * time.Second,
		Buffer:  60 * time.Second,
	}

	if v := os.Getenv("STARGAZER_CACHE_STEP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid STARGAZER_CACHE_STEP value, using default", "value", v, "default", 1)
		} else {
			cfg.Step = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("STARGAZER_CACHE_HORIZON"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid STARGAZER_CACHE_HORIZON value, using default", "value", v, "default", 300)
		} else {
			cfg.Horizon = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("STARGAZER_CACHE_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid STARGAZER_CACHE_BUFFER value, using default", "value", v, "default", 60)
		} else {
			cfg.Buffer = time.Duration(n) * time.Second
		}
	}

	logger.Info("ephemeris cache config",
		"step_seconds", cfg.Step.Seconds(),
		"horizon_seconds", cfg.Horizon.Seconds(),
		"buffer_seconds", cfg.Buffer.Seconds(),
	)

	return cfg
}

func loadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
	}

	if v := os.Getenv("STARGAZER_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid STARGAZER_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("STARGAZER_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid STARGAZER_STREAM_KEEPALIVE_INTERVAL value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("STARGAZER_STREAM_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid STARGAZER_STREAM_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}
