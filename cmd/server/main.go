package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/logan-han/sms-otp-burner/internal/app"
	"github.com/logan-han/sms-otp-burner/internal/platform/config"
	"github.com/logan-han/sms-otp-burner/internal/platform/logger"
	"github.com/logan-han/sms-otp-burner/internal/telstra"
	httptransport "github.com/logan-han/sms-otp-burner/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("OTP burner service starting", "port", cfg.ServerPort, "max_leased_numbers", cfg.MaxLeasedNumberCount)

	if cfg.TelstraClientID == "" || cfg.TelstraClientSecret == "" {
		appLogger.Warn("Telstra client credentials not configured; provider calls will fail until they are set")
	}

	tokens := telstra.NewTokenSource(appLogger, cfg.TelstraAuthURL, cfg.TelstraClientID, cfg.TelstraClientSecret, nil)
	client := telstra.NewClient(appLogger, cfg.TelstraAPIBaseURL, tokens, nil)

	numberService := app.NewNumberService(client, appLogger, cfg.MaxLeasedNumberCount)
	messageService := app.NewMessageService(client, appLogger)
	handler := httptransport.NewHandler(numberService, messageService, appLogger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(httptransport.RequestLogger(appLogger))
	r.Use(httptransport.Metrics)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(httptransport.SecureHeaders(cfg.AllowedOrigins))
		handler.RegisterRoutes(api)
	})

	if cfg.WebRoot != "" {
		appLogger.Info("Serving static frontend", "web_root", cfg.WebRoot)
		r.NotFound(httptransport.SPAHandler(cfg.WebRoot))
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		appLogger.Error("HTTP server failed", "error", err)
		os.Exit(1)
	case sig := <-quit:
		appLogger.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Server stopped")
}
