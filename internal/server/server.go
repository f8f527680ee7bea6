package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/EribyteVT/eribot/internal/app"
	"github.com/EribyteVT/eribot/internal/domain"
	"github.com/EribyteVT/eribot/internal/platform/config"
)

type appService interface {
	GetStreamer(ctx context.Context, bearerToken, guildID string) (*domain.Streamer, error)
	SaveStreamer(ctx context.Context, bearerToken string, streamer domain.Streamer) (*domain.Streamer, error)
	DeleteStreamer(ctx context.Context, bearerToken, guildID string) error
	Evaluate(ctx context.Context, bearerToken, guildID string) (*app.Decision, error)
}

type guildLister interface {
	GetUserGuilds(ctx context.Context, bearerToken string) ([]domain.Guild, error)
}

type twitchLinkService interface {
	BeginAuthorization(ctx context.Context, guildID string) (authorizeURL, state string, err error)
	CompleteAuthorization(ctx context.Context, code, state string) (guildID string, err error)
	HasLinkedTwitch(ctx context.Context, guildID string) (bool, error)
	Unlink(ctx context.Context, guildID string) error
}

type guildGate interface {
	IsAllowedGuild(ctx context.Context, bearerToken, guildID string) bool
	BotGuildIDs(ctx context.Context) (map[string]struct{}, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app    appService
	guilds guildLister
	gate   guildGate
	twitch twitchLinkService

	oauthClient  discordOAuthClient
	sessionStore *sessions.CookieStore
	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, app appService, guilds guildLister, gate guildGate, twitch twitchLinkService, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		app:          app,
		guilds:       guilds,
		gate:         gate,
		twitch:       twitch,
		oauthClient:  newDiscordOAuthClient(cfg.DiscordClientID, cfg.DiscordClientSecret, cfg.DiscordRedirectURI),
		sessionStore: setupSessionStore(cfg),
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Session keys
const (
	sessionName          = "eribot-session"
	sessionKeyToken      = "discord_token"
	sessionKeyOAuthState = "oauth_state"
)

func setupSessionStore(cfg *config.Config) *sessions.CookieStore {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}
	return sessionStore
}
