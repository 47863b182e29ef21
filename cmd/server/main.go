package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"todo-backend/internal/config"
	httproutes "todo-backend/internal/http"
	"todo-backend/internal/http/handlers"
	"todo-backend/internal/http/middleware"
	"todo-backend/internal/logging"
	"todo-backend/internal/obs"
	"todo-backend/internal/services"
	"todo-backend/internal/store"
	"todo-backend/pkg/security"
)

var version = "dev"

func main() {
	config.LoadDotEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Getenv, listen); err != nil {
		log.Fatal(err)
	}
}

func listen(srv *http.Server) error { return srv.ListenAndServe() }

func run(ctx context.Context, getEnv func(string) string, serve func(*http.Server) error) error {
	settings, err := config.Load(getEnv)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:   settings.LogLevel,
		Pretty:  settings.LogPretty,
		Service: "todo-backend",
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := config.ConnectDB(settings.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	srv := buildServer(settings, db, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", srv.Addr))
		errCh <- serve(srv)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func buildServer(s config.Settings, db *gorm.DB, logger *zap.Logger) *http.Server {
	metrics := obs.NewMetrics()
	passwords := security.NewPasswords(s.BcryptCost)
	issuer := security.NewIssuer(s.JWTSecret, s.AccessTokenTTL, nil)

	authSvc := services.NewAuthService(
		store.NewCredentialStore(db, passwords),
		issuer,
		passwords,
		services.AuthConfig{
			RefreshTTL:          s.RefreshTokenTTL(),
			RotateRefreshTokens: s.RotateRefreshTokens,
		},
		logger,
		metrics,
	)
	todoSvc := services.NewTodoService(store.NewTodoStore(db), nil, logger)

	mux := http.NewServeMux()
	httproutes.Routes(mux, httproutes.Deps{
		Auth:    handlers.NewAuthHandler(authSvc, logger),
		Todos:   handlers.NewTodoHandler(todoSvc, logger),
		Issuer:  issuer,
		Limiter: middleware.NewIPLimiter(s.AuthRateLimit),
		Metrics: metrics,
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})

	return &http.Server{
		Addr:              serverAddress(s.Port),
		Handler:           httproutes.Wrap(mux, logger, metrics, s.CORSOrigin),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func serverAddress(port string) string {
	if port == "" {
		port = "8080"
	}
	return ":" + port
}
