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
	"github.com/contactform/backend/internal/service"
	"github.com/contactform/backend/pkg/turnstile"
)

func main() {
	config.LoadDotEnv()
	logger := logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("failed to load config", "error", err)
	}

	missing := cfg.Missing()
	if len(missing) > 0 {
		// Submissions fail as misconfigured until these are set.
		logger.Warn("contact API is missing configuration", "missing", missing)
	}

	var dispatcher delivery.Dispatcher
	switch cfg.DeliveryMode {
	case config.DeliveryRelay:
		dispatcher = delivery.NewRelayDispatcher(cfg.RelayURL, cfg.SharedSecret)
	default:
		dispatcher = delivery.NewResendDispatcher(delivery.ResendConfig{
			APIKey:  cfg.ResendAPIKey,
			APIURL:  cfg.ResendAPIURL,
			From:    cfg.EmailFrom,
			To:      cfg.EmailTo,
			ReplyTo: cfg.EmailReplyTo,
		})
	}

	contactService := service.NewContactService(
		service.ContactSettings{
			ChallengeSecret: cfg.TurnstileSecret,
			AttemptTimeout:  cfg.DeliveryTimeout,
		},
		turnstile.NewClient(cfg.TurnstileSecret, cfg.TurnstileVerifyURL),
		dispatcher,
	)

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = promhttp.Handler()
	}

	h := handler.New("contact API", cfg.AllowedOrigins, missing)
	contactHandler := handler.NewContactHandler(contactService, cfg.TrustedProxyCount)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler.NewContactRouter(h, contactHandler, metricsHandler),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", server.Addr, "delivery", dispatcher.Name())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal("server error", "error", err)
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
