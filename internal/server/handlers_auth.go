package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "github.com/EribyteVT/eribot/internal/platform/errors"
)

const (
	discordAuthURL = "https://discord.com/oauth2/authorize"
	discordScopes  = "identify guilds"
	oauthTimeout   = 10 * time.Second
)

func (s *Server) registerAuthRoutes(csrfMiddleware, rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/auth/login", s.handleLogin, rateLimiter)
	s.echo.GET("/auth/callback", s.handleOAuthCallback, rateLimiter)
	s.echo.POST("/auth/logout", s.handleLogout, rateLimiter, csrfMiddleware)
}

// requireAuth loads the caller's Discord bearer token from the session and
// stashes it in the request context. API callers without a session get a 403.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := s.sessionStore.Get(c.Request(), sessionName)
		if err != nil {
			return apperrors.UnauthorizedError("not logged in")
		}

		token, ok := session.Values[sessionKeyToken].(string)
		if !ok || token == "" {
			return apperrors.UnauthorizedError("not logged in")
		}

		c.Set("discordToken", token)
		return next(c)
	}
}

func (s *Server) bearerToken(c echo.Context) string {
	token, _ := c.Get("discordToken").(string)
	return token
}

func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate OAuth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (s *Server) handleLogin(c echo.Context) error {
	state, err := generateOAuthState()
	if err != nil {
		return apperrors.InternalError("failed to generate OAuth state", err)
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.Error("Failed to get session for OAuth state", "error", err)
	}

	session.Values[sessionKeyOAuthState] = state
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save OAuth state session", err)
	}

	authURL := fmt.Sprintf(
		"%s?client_id=%s&redirect_uri=%s&response_type=code&scope=%s&state=%s",
		discordAuthURL,
		url.QueryEscape(s.config.DiscordClientID),
		url.QueryEscape(s.config.DiscordRedirectURI),
		url.QueryEscape(discordScopes),
		url.QueryEscape(state),
	)

	if err := c.Redirect(http.StatusFound, authURL); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) handleOAuthCallback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return apperrors.ValidationError("missing code parameter")
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return apperrors.ValidationError("invalid session")
	}

	expectedState, ok := session.Values[sessionKeyOAuthState].(string)
	if !ok || expectedState == "" {
		return apperrors.ValidationError("missing OAuth state")
	}
	if c.QueryParam("state") != expectedState {
		return apperrors.ValidationError("invalid OAuth state")
	}
	delete(session.Values, sessionKeyOAuthState)

	ctx, cancel := context.WithTimeout(c.Request().Context(), oauthTimeout)
	defer cancel()

	result, err := s.oauthClient.ExchangeCodeForToken(ctx, code)
	if err != nil {
		return apperrors.ExternalError("failed to authenticate with Discord", err)
	}

	// Regenerate the session after authentication so a fixated pre-login
	// session ID cannot be reused.
	session.Options.MaxAge = -1
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to invalidate old session", err)
	}

	session, err = s.sessionStore.New(c.Request(), sessionName)
	if err != nil {
		return apperrors.InternalError("failed to create new session", err)
	}

	session.Values[sessionKeyToken] = result.AccessToken
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	slog.InfoContext(ctx, "User logged in via Discord")

	if err := c.Redirect(http.StatusFound, "/"); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) handleLogout(c echo.Context) error {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.Error("Failed to get session during logout", "error", err)
		session, err = s.sessionStore.New(c.Request(), sessionName)
		if err != nil {
			return apperrors.InternalError("failed to create new session during logout", err)
		}
	}
	session.Options.MaxAge = -1

	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save logout session", err)
	}

	if err := c.Redirect(http.StatusFound, "/auth/login"); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}
