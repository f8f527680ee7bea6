package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/EribyteVT/eribot/internal/domain"
	apperrors "github.com/EribyteVT/eribot/internal/platform/errors"
)

func (s *Server) registerAPIRoutes(csrfMiddleware, rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/api/guilds", s.handleListGuilds, rateLimiter, s.requireAuth)
	s.echo.GET("/api/onboarding/:guildID", s.handleOnboarding, rateLimiter, s.requireAuth)
	s.echo.GET("/api/streamers/:guildID", s.handleGetStreamer, rateLimiter, s.requireAuth)
	s.echo.PUT("/api/streamers/:guildID", s.handleSaveStreamer, rateLimiter, s.requireAuth, csrfMiddleware)
	s.echo.DELETE("/api/streamers/:guildID", s.handleDeleteStreamer, rateLimiter, s.requireAuth, csrfMiddleware)
}

type guildResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Icon       string `json:"icon,omitempty"`
	Owner      bool   `json:"owner"`
	BotPresent bool   `json:"bot_present"`
}

// handleListGuilds returns the caller's guilds where they hold the
// administrator bit, each annotated with whether the bot is already a member.
// Everything else is invisible to the dashboard.
func (s *Server) handleListGuilds(c echo.Context) error {
	ctx := c.Request().Context()

	guilds, err := s.guilds.GetUserGuilds(ctx, s.bearerToken(c))
	if err != nil {
		return apperrors.ExternalError("failed to fetch guilds from Discord", err)
	}

	// A failed bot guild lookup degrades to "not present" rather than
	// failing the whole listing.
	botGuilds, err := s.gate.BotGuildIDs(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch bot guilds", "error", err)
	}

	response := make([]guildResponse, 0, len(guilds))
	for _, g := range guilds {
		if !g.HasAdministrator() {
			continue
		}
		_, botPresent := botGuilds[g.ID]
		response = append(response, guildResponse{ID: g.ID, Name: g.Name, Icon: g.Icon, Owner: g.Owner, BotPresent: botPresent})
	}

	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type onboardingResponse struct {
	State            int  `json:"state"`
	RedirectToManage bool `json:"redirect_to_manage"`
}

func (s *Server) handleOnboarding(c echo.Context) error {
	ctx := c.Request().Context()

	guildID := c.Param("guildID")
	if guildID == "" {
		return apperrors.ValidationError("missing guild ID")
	}

	decision, err := s.app.Evaluate(ctx, s.bearerToken(c), guildID)
	if err != nil {
		return apperrors.InternalError("failed to evaluate onboarding state", err).WithContext("guild_id", guildID)
	}
	if !decision.Authorized {
		return apperrors.UnauthorizedError("not an administrator of this guild")
	}

	response := onboardingResponse{
		State:            int(decision.State),
		RedirectToManage: decision.RedirectToManage,
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type streamerRequest struct {
	Name               string `json:"name"`
	TwitchUserID       string `json:"twitch_user_id"`
	Timezone           string `json:"timezone"`
	LevelSystem        bool   `json:"level_system"`
	AutoDiscordEvent   bool   `json:"auto_discord_event"`
	AutoTwitchSchedule bool   `json:"auto_twitch_schedule"`
}

type streamerResponse struct {
	ID                 string `json:"id"`
	GuildID            string `json:"guild_id"`
	Name               string `json:"name"`
	TwitchUserID       string `json:"twitch_user_id"`
	Timezone           string `json:"timezone"`
	LevelSystem        bool   `json:"level_system"`
	AutoDiscordEvent   bool   `json:"auto_discord_event"`
	AutoTwitchSchedule bool   `json:"auto_twitch_schedule"`
}

func toStreamerResponse(s *domain.Streamer) streamerResponse {
	return streamerResponse{
		ID:                 s.ID.String(),
		GuildID:            s.GuildID,
		Name:               s.Name,
		TwitchUserID:       s.TwitchUserID,
		Timezone:           s.Timezone,
		LevelSystem:        s.LevelSystem,
		AutoDiscordEvent:   s.AutoDiscordEvent,
		AutoTwitchSchedule: s.AutoTwitchSchedule,
	}
}

func (s *Server) handleGetStreamer(c echo.Context) error {
	ctx := c.Request().Context()

	guildID := c.Param("guildID")
	streamer, err := s.app.GetStreamer(ctx, s.bearerToken(c), guildID)
	if errors.Is(err, domain.ErrNotAuthorized) {
		return apperrors.UnauthorizedError("not an administrator of this guild")
	}
	if errors.Is(err, domain.ErrStreamerNotFound) {
		return apperrors.NotFoundError("no streamer configured for this guild").WithContext("guild_id", guildID)
	}
	if err != nil {
		return apperrors.InternalError("failed to load streamer", err).WithContext("guild_id", guildID)
	}

	if err := c.JSON(http.StatusOK, toStreamerResponse(streamer)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleSaveStreamer(c echo.Context) error {
	ctx := c.Request().Context()

	guildID := c.Param("guildID")
	var req streamerRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Name == "" {
		return apperrors.ValidationError("name is required")
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}

	streamer, err := s.app.SaveStreamer(ctx, s.bearerToken(c), domain.Streamer{
		GuildID:            guildID,
		Name:               req.Name,
		TwitchUserID:       req.TwitchUserID,
		Timezone:           req.Timezone,
		LevelSystem:        req.LevelSystem,
		AutoDiscordEvent:   req.AutoDiscordEvent,
		AutoTwitchSchedule: req.AutoTwitchSchedule,
	})
	if errors.Is(err, domain.ErrNotAuthorized) {
		return apperrors.UnauthorizedError("not an administrator of this guild")
	}
	if err != nil {
		return apperrors.InternalError("failed to save streamer", err).WithContext("guild_id", guildID)
	}

	if err := c.JSON(http.StatusOK, toStreamerResponse(streamer)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteStreamer(c echo.Context) error {
	ctx := c.Request().Context()

	guildID := c.Param("guildID")
	err := s.app.DeleteStreamer(ctx, s.bearerToken(c), guildID)
	if errors.Is(err, domain.ErrNotAuthorized) {
		return apperrors.UnauthorizedError("not an administrator of this guild")
	}
	if errors.Is(err, domain.ErrStreamerNotFound) {
		return apperrors.NotFoundError("no streamer configured for this guild").WithContext("guild_id", guildID)
	}
	if err != nil {
		return apperrors.InternalError("failed to delete streamer", err).WithContext("guild_id", guildID)
	}

	if err := c.JSON(http.StatusOK, map[string]string{"status": "deleted"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
