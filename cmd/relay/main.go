package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/contactform/backend/internal/config"
	"github.com/contactform/backend/internal/delivery"
	"github.com/contactform/backend/internal/handler"
	"github.com/contactform/backend/internal/logging"
)

func main() {
	config.LoadDotEnv()
	logger := logging.Setup()

	cfg, err := config.LoadRelay()
	if err != nil {
		logging.Fatal("failed to load config", "error", err)
	}
	if cfg.SharedSecret == "" {
		logger.Warn("WORKER_SHARED_SECRET is not set; every request will be rejected")
	}

	smtp := delivery.NewSMTPDispatcher(delivery.SMTPConfig{
		Addr:     cfg.SMTPAddr,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SenderAddress,
		FromName: cfg.SenderName,
		To:       cfg.DestinationAddress,
	})
	relayHandler := handler.NewRelayHandler(cfg.SharedSecret, smtp)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler.NewRelayRouter(relayHandler, promhttp.Handler()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("relay listening", "addr", server.Addr, "smtp", cfg.SMTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal("relay error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
