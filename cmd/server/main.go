package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/qcom/otpd/internal/config"
	"github.com/qcom/otpd/internal/handlers"
	"github.com/qcom/otpd/internal/middleware"
	"github.com/qcom/otpd/internal/repository"
	"github.com/qcom/otpd/internal/service"
	"github.com/qcom/otpd/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	ctx := context.Background()

	otpRepo, closeRepo, err := repository.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize OTP storage")
	}
	defer closeRepo()

	otpService := service.NewOTPService(otpRepo, &cfg.OTP, logger)
	otpHandlers := handlers.NewOTPHandlers(otpService, logger)

	var otpMiddleware []mux.MiddlewareFunc
	if cfg.Storage.Mode == config.StorageModeEphemeral {
		sessionMiddleware, closeSessions, err := initSessions(ctx, cfg, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize sessions")
		}
		defer closeSessions()
		otpMiddleware = append(otpMiddleware, sessionMiddleware.Attach)
	}

	router := handlers.NewRouter(otpHandlers, otpMiddleware...)
	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.LoggingMiddleware(logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":         cfg.Server.Port,
			"storage_mode": cfg.Storage.Mode,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initSessions(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*middleware.SessionMiddleware, func() error, error) {
	tokens, err := service.NewSessionTokenService(&cfg.Session, logger)
	if err != nil {
		return nil, nil, err
	}

	var store session.Store
	closeStore := func() error { return nil }

	switch cfg.Session.Store {
	case config.SessionStoreMemory:
		logger.Warn("Using in-memory session store; sessions are lost on restart")
		store = session.NewMemoryStore()
	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Endpoint,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		logger.WithField("endpoint", cfg.Redis.Endpoint).Info("Redis session store connected")
		store = session.NewRedisStore(client, cfg.Session.Lifetime, logger)
		closeStore = client.Close
	}

	return middleware.NewSessionMiddleware(tokens, store, cfg.Session.CookieName, logger), closeStore, nil
}
