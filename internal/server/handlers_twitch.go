package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/EribyteVT/eribot/internal/domain"
	apperrors "github.com/EribyteVT/eribot/internal/platform/errors"
)

func (s *Server) registerTwitchRoutes(csrfMiddleware, rateLimiter echo.MiddlewareFunc) {
	s.echo.POST("/twitch/link/:guildID", s.handleTwitchLink, rateLimiter, s.requireAuth, csrfMiddleware)
	s.echo.GET("/twitch/callback", s.handleTwitchCallback, rateLimiter)
	s.echo.POST("/twitch/unlink/:guildID", s.handleTwitchUnlink, rateLimiter, s.requireAuth, csrfMiddleware)
	s.echo.GET("/twitch/status/:guildID", s.handleTwitchStatus, rateLimiter, s.requireAuth)
}

// handleTwitchLink starts the authorization-code flow for a guild and hands
// the authorize URL back to the frontend.
func (s *Server) handleTwitchLink(c echo.Context) error {
	ctx := c.Request().Context()

	guildID := c.Param("guildID")
	if !s.gate.IsAllowedGuild(ctx, s.bearerToken(c), guildID) {
		return apperrors.UnauthorizedError("not an administrator of this guild")
	}

	authorizeURL, _, err := s.twitch.BeginAuthorization(ctx, guildID)
	if err != nil {
		return apperrors.InternalError("failed to begin Twitch authorization", err).WithContext("guild_id", guildID)
	}

	if err := c.JSON(http.StatusOK, map[string]string{"authorize_url": authorizeURL}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// handleTwitchCallback finishes the flow. The state token is the CSRF
// defense here; no session is required because the provider redirects the
// browser straight to this route.
func (s *Server) handleTwitchCallback(c echo.Context) error {
	ctx := c.Request().Context()

	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" || state == "" {
		return apperrors.ValidationError("missing code or state parameter")
	}

	guildID, err := s.twitch.CompleteAuthorization(ctx, code, state)
	if errors.Is(err, domain.ErrInvalidState) {
		return apperrors.ValidationError("invalid or expired authorization state")
	}
	var upstreamErr *domain.UpstreamError
	if errors.As(err, &upstreamErr) {
		return apperrors.ExternalError("token exchange with Twitch failed", err)
	}
	if err != nil {
		return apperrors.InternalError("failed to complete Twitch authorization", err)
	}

	if err := c.Redirect(http.StatusFound, "/manage/"+guildID); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) handleTwitchUnlink(c echo.Context) error {
	ctx := c.Request().Context()

	guildID := c.Param("guildID")
	if !s.gate.IsAllowedGuild(ctx, s.bearerToken(c), guildID) {
		return apperrors.UnauthorizedError("not an administrator of this guild")
	}

	if err := s.twitch.Unlink(ctx, guildID); err != nil {
		return apperrors.InternalError("failed to unlink Twitch account", err).WithContext("guild_id", guildID)
	}

	if err := c.JSON(http.StatusOK, map[string]string{"status": "unlinked"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleTwitchStatus(c echo.Context) error {
	ctx := c.Request().Context()

	guildID := c.Param("guildID")
	if !s.gate.IsAllowedGuild(ctx, s.bearerToken(c), guildID) {
		return apperrors.UnauthorizedError("not an administrator of this guild")
	}

	linked, err := s.twitch.HasLinkedTwitch(ctx, guildID)
	if err != nil {
		return apperrors.InternalError("failed to check Twitch link", err).WithContext("guild_id", guildID)
	}

	if err := c.JSON(http.StatusOK, map[string]bool{"linked": linked}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
