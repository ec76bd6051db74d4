package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/nimbuschat/nimbus-go/internal/config"
	"github.com/nimbuschat/nimbus-go/internal/handler"
	"github.com/nimbuschat/nimbus-go/internal/middleware"
	"github.com/nimbuschat/nimbus-go/internal/provider"
	"github.com/nimbuschat/nimbus-go/internal/repository"
	"github.com/nimbuschat/nimbus-go/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()

	store := newUserStore(cfg)

	adapter, err := provider.New(cfg.Provider, cfg.APIKey, cfg.Model)
	if err != nil {
		slog.Error("invalid provider configuration", "provider", cfg.Provider, "error", err)
		os.Exit(1)
	}
	if cfg.APIKey == "" {
		slog.Warn("AI_API_KEY not set — chat requests will fail until configured")
	}

	authService := service.NewAuthService(store, cfg.JWTSecret, cfg.TokenTTL, cfg.RememberTokenTTL)
	authHandler := handler.NewAuthHandler(authService, !cfg.IsProduction())

	chatService := service.NewChatService(adapter, cfg.APIKey != "")
	chatHandler := handler.NewChatHandler(chatService)

	healthHandler := handler.NewHealthHandler(cfg.Provider)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateWindow, cfg.RateLimit))

		r.Get("/health", healthHandler.HandleHealth)
		r.Get("/ping", healthHandler.HandlePing)

		r.Post("/auth/signup", authHandler.HandleSignup)
		r.Post("/auth/signin", authHandler.HandleSignin)
		r.Post("/auth/forgot-password", authHandler.HandleForgotPassword)
		r.Post("/auth/reset-password", authHandler.HandleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(cfg.JWTSecret))
			r.Get("/auth/verify", authHandler.HandleVerify)
			r.Post("/chat", chatHandler.HandleChat)
		})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "provider", cfg.Provider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// newUserStore selects the credential store: MySQL when DATABASE_DSN is set
// and reachable, otherwise the file-backed store.
func newUserStore(cfg config.Config) service.UserStore {
	if cfg.DatabaseDSN != "" {
		db, err := repository.NewDB(cfg.DatabaseDSN)
		if err == nil {
			slog.Info("using mysql user store")
			return repository.NewSQLUserStore(db)
		}
		slog.Warn("database connection failed — falling back to file store", "error", err)
	}

	store, err := repository.NewFileUserStore(cfg.UsersFile)
	if err != nil {
		slog.Error("opening user store", "path", cfg.UsersFile, "error", err)
		os.Exit(1)
	}
	slog.Info("using file user store", "path", cfg.UsersFile)
	return store
}
