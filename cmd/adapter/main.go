package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foopay/storefront-adapter/internal/application/services"
	"github.com/foopay/storefront-adapter/internal/config"
	"github.com/foopay/storefront-adapter/internal/domain"
	"github.com/foopay/storefront-adapter/internal/infrastructure/persistence"
	"github.com/foopay/storefront-adapter/internal/infrastructure/persistence/postgres"
	"github.com/foopay/storefront-adapter/internal/infrastructure/provider"
	"github.com/foopay/storefront-adapter/internal/interfaces/rest/handlers"
	"github.com/foopay/storefront-adapter/internal/interfaces/rest/middleware"
	"github.com/go-chi/chi/v5"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	env := domain.Environment(cfg.Provider.Environment)

	logger.Info("starting adapter service",
		"port", cfg.Server.Port,
		"environment", env,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := persistence.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	orderRepo := postgres.NewOrderRepository(db.Pool)
	credentialRepo := postgres.NewCredentialRepository(db.Pool)

	providerClient := provider.NewClient(cfg.Provider)

	lifecycleService := services.NewLifecycleService(orderRepo, credentialRepo, providerClient, env, logger)
	onboardingService := services.NewOnboardingService(
		credentialRepo,
		providerClient,
		env,
		cfg.Provider.AppID,
		cfg.Provider.PublicBaseURL,
		logger,
	)

	h := handlers.NewHandlers(lifecycleService, onboardingService, logger)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.Timeout(cfg.Server.ReadTimeout))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	h.Routes(router)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
