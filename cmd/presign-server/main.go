// Package main is the entry point for the Lysbox presign server, the
// stateless service that issues presigned object-storage URLs for the
// Lysbox client applications.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Thanawat984/lysbox-presign/internal/config"
	"github.com/Thanawat984/lysbox-presign/internal/handler"
	"github.com/Thanawat984/lysbox-presign/internal/identity"
	"github.com/Thanawat984/lysbox-presign/internal/metrics"
	"github.com/Thanawat984/lysbox-presign/internal/ratelimit"
	"github.com/Thanawat984/lysbox-presign/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	setupLogger(cfg.Logging)

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Starting Lysbox Presign Server")

	if err := cfg.Storage.Validate(); err != nil {
		// Startup proceeds so the deployment answers with explicit 500s,
		// but the defect is visible from the first log line.
		log.Warn().Err(err).Msg("storage signing identity incomplete; presign requests will fail")
	}

	// Metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// Identity verifier
	var verifier identity.Verifier = identity.NewHTTPVerifier(identity.Config{
		BaseURL:   cfg.Identity.BaseURL,
		PublicKey: cfg.Identity.PublicKey,
		Timeout:   cfg.Identity.VerifyTimeout,
	}, log.Logger)
	if m != nil {
		verifier = identity.NewTimedVerifier(verifier, m.IdentityVerifyDuration.Observe)
	}

	// Presign service
	presignService := service.NewPresignService(verifier, cfg, log.Logger)

	// Rate limiter
	limiter, err := buildLimiter(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize rate limiter")
	}
	defer func() {
		_ = limiter.Close()
	}()

	// HTTP router
	presignHandler := handler.NewPresignHandler(handler.Config{
		PresignService: presignService,
		Metrics:        m,
		MaxBodySize:    cfg.Server.MaxBodySize,
		Logger:         log.Logger,
	})
	router := handler.NewRouter(handler.RouterConfig{
		PresignHandler: presignHandler,
		Limiter:        limiter,
		Metrics:        m,
		Logger:         log.Logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Metrics server on its own port
	var metricsServer *http.Server
	if m != nil {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.Port),
			Handler: mux,
		}

		go func() {
			log.Info().Str("addr", metricsServer.Addr).Str("path", cfg.Metrics.Path).Msg("metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("presign server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
}

// setupLogger configures the global zerolog logger from config.
func setupLogger(cfg config.LoggingConfig) {
	zerolog.TimeFieldFormat = cfg.TimeFormat

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// buildLimiter constructs the configured rate limiter backend.
func buildLimiter(cfg *config.Config) (ratelimit.Limiter, error) {
	if !cfg.RateLimit.Enabled {
		return ratelimit.NewNoopLimiter(), nil
	}

	switch cfg.RateLimit.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Addr(),
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout,
		})

		pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("redis unavailable: %w", err)
		}

		limit := int(cfg.RateLimit.RequestsPerSecond)
		if cfg.RateLimit.BurstSize > limit {
			limit = cfg.RateLimit.BurstSize
		}
		return ratelimit.NewRedisLimiter(client, limit), nil

	default:
		return ratelimit.NewMemoryLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize), nil
	}
}
