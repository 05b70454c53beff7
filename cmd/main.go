package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/VNGato/sistema-estoque/internal/cache"
	"github.com/VNGato/sistema-estoque/internal/config"
	"github.com/VNGato/sistema-estoque/internal/db"
	"github.com/VNGato/sistema-estoque/internal/events"
	httpapi "github.com/VNGato/sistema-estoque/internal/http"
	"github.com/VNGato/sistema-estoque/internal/product"
	"github.com/VNGato/sistema-estoque/internal/sale"
	"github.com/VNGato/sistema-estoque/internal/sequence"
)

func main() {
	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zlog.With().Str("service", "sistema-estoque").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- DB ---
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect")
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatal().Err(err).Msg("db migrate")
		}
	}

	productRepo := product.NewPostgresRepository(pool)
	saleRepo := sale.NewPostgresRepository(pool)
	saleSvc := sale.NewService(saleRepo)

	// --- AMQP (optional) ---
	var pub httpapi.EventPublisher
	if cfg.RabbitURL != "" {
		conn := events.MustDialRabbit(cfg.RabbitURL)
		defer conn.Close()

		seqRepo := sequence.NewRepository(pool)
		publisher, err := events.NewPublisher(conn, seqRepo, events.PublisherOptions{})
		if err != nil {
			logger.Fatal().Err(err).Msg("create publisher")
		}
		defer publisher.Close()
		pub = publisher
	} else {
		logger.Warn().Msg("RABBITMQ_URL not set; event publishing disabled")
	}

	// --- Redis (optional) ---
	var listCache *cache.Cache
	if cfg.RedisAddr != "" {
		listCache, err = cache.Connect(ctx, cfg.RedisAddr, cfg.CacheTTL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable; product-list cache disabled")
			listCache = nil
		} else {
			defer listCache.Close()
		}
	}

	// --- HTTP ---
	ph := httpapi.NewProductHandler(productRepo, listCache, pub, logger)
	sh := httpapi.NewSaleHandler(saleSvc, listCache, pub, logger)
	r := httpapi.NewRouter(ph, sh, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("fatal error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = httpServer.Shutdown(shutdownCtx)
	cancel()

	logger.Info().Msg("shutdown complete")
}
