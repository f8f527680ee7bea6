package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/EribyteVT/eribot/internal/app"
	"github.com/EribyteVT/eribot/internal/domain"
	"github.com/EribyteVT/eribot/internal/platform/config"
)

// --- Mock implementations ---

type mockAppService struct {
	getStreamerFn    func(ctx context.Context, bearerToken, guildID string) (*domain.Streamer, error)
	saveStreamerFn   func(ctx context.Context, bearerToken string, streamer domain.Streamer) (*domain.Streamer, error)
	deleteStreamerFn func(ctx context.Context, bearerToken, guildID string) error
	evaluateFn       func(ctx context.Context, bearerToken, guildID string) (*app.Decision, error)
}

func (m *mockAppService) GetStreamer(ctx context.Context, bearerToken, guildID string) (*domain.Streamer, error) {
	if m.getStreamerFn != nil {
		return m.getStreamerFn(ctx, bearerToken, guildID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) SaveStreamer(ctx context.Context, bearerToken string, streamer domain.Streamer) (*domain.Streamer, error) {
	if m.saveStreamerFn != nil {
		return m.saveStreamerFn(ctx, bearerToken, streamer)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) DeleteStreamer(ctx context.Context, bearerToken, guildID string) error {
	if m.deleteStreamerFn != nil {
		return m.deleteStreamerFn(ctx, bearerToken, guildID)
	}
	return errors.New("not implemented")
}

func (m *mockAppService) Evaluate(ctx context.Context, bearerToken, guildID string) (*app.Decision, error) {
	if m.evaluateFn != nil {
		return m.evaluateFn(ctx, bearerToken, guildID)
	}
	return nil, errors.New("not implemented")
}

type mockGuildLister struct {
	guilds []domain.Guild
	err    error
}

func (m *mockGuildLister) GetUserGuilds(_ context.Context, _ string) ([]domain.Guild, error) {
	return m.guilds, m.err
}

type mockGuildGate struct {
	allowed   map[string]bool
	botGuilds map[string]struct{}
	botErr    error
}

func (m *mockGuildGate) IsAllowedGuild(_ context.Context, _, guildID string) bool {
	return m.allowed[guildID]
}

func (m *mockGuildGate) BotGuildIDs(_ context.Context) (map[string]struct{}, error) {
	return m.botGuilds, m.botErr
}

type mockTwitchLink struct {
	beginFn    func(ctx context.Context, guildID string) (string, string, error)
	completeFn func(ctx context.Context, code, state string) (string, error)
	linked     bool
	linkedErr  error
	unlinkErr  error
	unlinked   []string
}

func (m *mockTwitchLink) BeginAuthorization(ctx context.Context, guildID string) (string, string, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx, guildID)
	}
	return "https://id.twitch.tv/oauth2/authorize?state=abc", "abc", nil
}

func (m *mockTwitchLink) CompleteAuthorization(ctx context.Context, code, state string) (string, error) {
	if m.completeFn != nil {
		return m.completeFn(ctx, code, state)
	}
	return "", domain.ErrInvalidState
}

func (m *mockTwitchLink) HasLinkedTwitch(_ context.Context, _ string) (bool, error) {
	return m.linked, m.linkedErr
}

func (m *mockTwitchLink) Unlink(_ context.Context, guildID string) error {
	if m.unlinkErr != nil {
		return m.unlinkErr
	}
	m.unlinked = append(m.unlinked, guildID)
	return nil
}

type mockOAuthClient struct {
	result *discordTokenResult
	err    error
}

func (m *mockOAuthClient) ExchangeCodeForToken(_ context.Context, _ string) (*discordTokenResult, error) {
	return m.result, m.err
}

// --- Test helpers ---

func newTestServer(t *testing.T, app appService, opts ...func(*Server)) *Server {
	t.Helper()

	store := sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!!"))
	store.Options = &sessions.Options{
		Path:   "/",
		MaxAge: 3600,
	}

	e := echo.New()

	srv := &Server{
		echo: e,
		config: &config.Config{
			DiscordClientID:    "test-client-id",
			DiscordRedirectURI: "http://localhost/auth/callback",
		},
		app:          app,
		guilds:       &mockGuildLister{},
		gate:         &mockGuildGate{allowed: map[string]bool{}},
		twitch:       &mockTwitchLink{},
		sessionStore: store,
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

func withGuildLister(g guildLister) func(*Server) {
	return func(s *Server) {
		s.guilds = g
	}
}

func withGuildGate(g guildGate) func(*Server) {
	return func(s *Server) {
		s.gate = g
	}
}

func withTwitchLink(tw twitchLinkService) func(*Server) {
	return func(s *Server) {
		s.twitch = tw
	}
}

func withOAuthClient(oauth discordOAuthClient) func(*Server) {
	return func(s *Server) {
		s.oauthClient = oauth
	}
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return ErrorHandlingMiddleware()(handler)(c)
}

func setSessionToken(t *testing.T, srv *Server, req *http.Request, rec *httptest.ResponseRecorder, token string) {
	t.Helper()
	session, err := srv.sessionStore.Get(req, sessionName)
	require.NoError(t, err)
	session.Values[sessionKeyToken] = token
	require.NoError(t, session.Save(req, rec))
}

// authedContext builds an echo context with the bearer token already stashed,
// as requireAuth would have done.
func authedContext(srv *Server, req *http.Request, rec *httptest.ResponseRecorder, token string) echo.Context {
	c := srv.echo.NewContext(req, rec)
	c.Set("discordToken", token)
	return c
}
