// Package main запускает HTTP-сервер книжного магазина.
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

	"github.com/mmeshcher/bookstore-system/internal/config"
	"github.com/mmeshcher/bookstore-system/internal/gateway"
	"github.com/mmeshcher/bookstore-system/internal/handler"
	"github.com/mmeshcher/bookstore-system/internal/middleware"
	"github.com/mmeshcher/bookstore-system/internal/notification"
	"github.com/mmeshcher/bookstore-system/internal/repository"
	"github.com/mmeshcher/bookstore-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	// При отсутствии секрета шлюза проверка подписи отклоняет все callback-и.
	if cfg.RazorpaySecret == "" {
		sugar.Warn("razorpay secret is not set, payment callbacks will be rejected")
	}
	gatewayClient := gateway.NewClient(gateway.DefaultBaseURL, cfg.RazorpayKeyID, cfg.RazorpaySecret)

	var notifier service.Notifier
	if cfg.EmailHost != "" && cfg.EmailUser != "" {
		notifier = notification.NewSender(cfg.EmailHost, cfg.EmailPort, cfg.EmailUser, cfg.EmailPassword, logger)
	} else {
		sugar.Warn("email sender is not configured, order confirmations will not be sent")
	}

	svc := service.NewService(repo, gatewayClient, notifier, logger)
	defer svc.Close()

	adminAuth := middleware.NewAdminAuth(cfg.AdminSecret)
	h := handler.NewHandler(svc, logger, adminAuth)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting bookstore server", "addr", cfg.RunAddress)
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
