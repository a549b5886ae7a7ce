// Package main запускает HTTP-сервер маркетплейса.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/marketplace-management/internal/cache"
	"github.com/mmeshcher/marketplace-management/internal/config"
	"github.com/mmeshcher/marketplace-management/internal/events"
	"github.com/mmeshcher/marketplace-management/internal/handler"
	"github.com/mmeshcher/marketplace-management/internal/identity"
	"github.com/mmeshcher/marketplace-management/internal/metrics"
	"github.com/mmeshcher/marketplace-management/internal/middleware"
	"github.com/mmeshcher/marketplace-management/internal/repository"
	"github.com/mmeshcher/marketplace-management/internal/repository/memory"
	"github.com/mmeshcher/marketplace-management/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repo service.Repository
	if cfg.DatabaseURI != "" {
		pg, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		repo = pg
	} else {
		sugar.Warn("DATABASE_URI is empty, using in-memory store with demo catalog")
		mem := memory.New()
		memory.SeedDemo(mem)
		repo = mem
	}

	m := metrics.New()
	opts := []service.Option{service.WithRecorder(m)}

	if cfg.RedisAddr != "" {
		c, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.CatalogCacheTTL, logger)
		if err != nil {
			sugar.Warnw("catalog cache disabled", "error", err.Error())
		} else {
			defer c.Close()
			opts = append(opts, service.WithCache(c))
		}
	}

	if cfg.AMQPURL != "" {
		p, err := events.NewPublisher(cfg.AMQPURL, cfg.OrdersQueue, logger)
		if err != nil {
			sugar.Warnw("order events disabled", "error", err.Error())
		} else {
			defer p.Close()
			opts = append(opts, service.WithPublisher(p))
		}
	}

	svc := service.NewService(repo, logger, opts...)
	defer svc.Close()

	var verifier middleware.Verifier
	if cfg.IdentityURL != "" {
		verifier = identity.NewClient(cfg.IdentityURL, cfg.IdentityAPIKey)
	} else {
		sugar.Warn("IDENTITY_URL is empty, accepting locally signed tokens")
		verifier = middleware.NewLocalVerifier(cfg.AuthSecret)
	}

	authMiddleware := middleware.NewAuthMiddleware(verifier, logger)
	h := handler.NewHandler(svc, logger, authMiddleware, handler.WithMetrics(m))

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Фоновая сверка баллов и корзин после частично неудачных оформлений
	g.Go(func() error {
		svc.RunReconciler(ctx, cfg.ReconcileInterval)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting marketplace server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
