package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/EribyteVT/eribot/internal/app"
	"github.com/EribyteVT/eribot/internal/cache"
	"github.com/EribyteVT/eribot/internal/crypto"
	"github.com/EribyteVT/eribot/internal/database"
	"github.com/EribyteVT/eribot/internal/discord"
	"github.com/EribyteVT/eribot/internal/domain"
	"github.com/EribyteVT/eribot/internal/platform/config"
	"github.com/EribyteVT/eribot/internal/platform/logging"
	"github.com/EribyteVT/eribot/internal/server"
	"github.com/EribyteVT/eribot/internal/twitch"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return db
}

func runGracefulShutdown(srv *server.Server, appSvc *app.Service) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		appSvc.Close()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	// The vault refuses to start without its secret; config validation
	// already guarantees presence, NewVault guards the key itself.
	vault, err := crypto.NewVault(cfg.TokenEncryptionSecret)
	if err != nil {
		slog.Error("Failed to create credential vault", "error", err)
		os.Exit(1)
	}

	credentialRepo := database.NewCredentialRepo(pool)
	authStateRepo := database.NewAuthStateRepo(pool)
	streamerRepo := database.NewStreamerRepo(pool)

	discordClient := discord.NewClient(cfg.DiscordBotToken)
	guildCache := cache.New[[]domain.Guild](clock)
	authService := discord.NewAuthService(discordClient, guildCache)

	oauthService := twitch.NewOAuthService(
		cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.TwitchRedirectURI,
		vault, credentialRepo, authStateRepo, clock,
	)

	appSvc := app.NewService(streamerRepo, authStateRepo, authService, clock)

	healthChecks := []server.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
	}

	srv := server.NewServer(cfg, appSvc, discordClient, authService, oauthService, healthChecks)

	done := runGracefulShutdown(srv, appSvc)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
