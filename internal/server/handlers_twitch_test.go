package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EribyteVT/eribot/internal/domain"
)

func TestHandleTwitchLink_ReturnsAuthorizeURL(t *testing.T) {
	gate := &mockGuildGate{allowed: map[string]bool{"123": true}}
	link := &mockTwitchLink{
		beginFn: func(_ context.Context, guildID string) (string, string, error) {
			return "https://id.twitch.tv/oauth2/authorize?client_id=x&state=s1", "s1", nil
		},
	}
	srv := newTestServer(t, &mockAppService{}, withGuildGate(gate), withTwitchLink(link))

	req := httptest.NewRequest(http.MethodPost, "/twitch/link/123", nil)
	rec := httptest.NewRecorder()
	c := authedContext(srv, req, rec, "token")
	c.SetParamNames("guildID")
	c.SetParamValues("123")

	err := srv.handleTwitchLink(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authorize_url"`)
	assert.Contains(t, rec.Body.String(), "id.twitch.tv")
}

func TestHandleTwitchLink_DeniedForNonAdmin(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	req := httptest.NewRequest(http.MethodPost, "/twitch/link/123", nil)
	rec := httptest.NewRecorder()
	c := authedContext(srv, req, rec, "token")
	c.SetParamNames("guildID")
	c.SetParamValues("123")

	err := callHandler(srv.handleTwitchLink, c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleTwitchCallback_Success(t *testing.T) {
	link := &mockTwitchLink{
		completeFn: func(_ context.Context, code, state string) (string, error) {
			assert.Equal(t, "the-code", code)
			assert.Equal(t, "the-state", state)
			return "123", nil
		},
	}
	srv := newTestServer(t, &mockAppService{}, withTwitchLink(link))

	req := httptest.NewRequest(http.MethodGet, "/twitch/callback?code=the-code&state=the-state", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	err := srv.handleTwitchCallback(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/manage/123", rec.Header().Get("Location"))
}

func TestHandleTwitchCallback_InvalidState(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	req := httptest.NewRequest(http.MethodGet, "/twitch/callback?code=abc&state=replayed", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	err := callHandler(srv.handleTwitchCallback, c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTwitchCallback_MissingParams(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	req := httptest.NewRequest(http.MethodGet, "/twitch/callback", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	err := callHandler(srv.handleTwitchCallback, c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTwitchCallback_UpstreamError(t *testing.T) {
	link := &mockTwitchLink{
		completeFn: func(_ context.Context, _, _ string) (string, error) {
			return "", &domain.UpstreamError{Upstream: "twitch", StatusCode: 503}
		},
	}
	srv := newTestServer(t, &mockAppService{}, withTwitchLink(link))

	req := httptest.NewRequest(http.MethodGet, "/twitch/callback?code=abc&state=s1", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	err := callHandler(srv.handleTwitchCallback, c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleTwitchUnlink(t *testing.T) {
	gate := &mockGuildGate{allowed: map[string]bool{"123": true}}
	link := &mockTwitchLink{}
	srv := newTestServer(t, &mockAppService{}, withGuildGate(gate), withTwitchLink(link))

	req := httptest.NewRequest(http.MethodPost, "/twitch/unlink/123", nil)
	rec := httptest.NewRecorder()
	c := authedContext(srv, req, rec, "token")
	c.SetParamNames("guildID")
	c.SetParamValues("123")

	err := srv.handleTwitchUnlink(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"123"}, link.unlinked)
}

func TestHandleTwitchUnlink_DeniedForNonAdmin(t *testing.T) {
	link := &mockTwitchLink{}
	srv := newTestServer(t, &mockAppService{}, withTwitchLink(link))

	req := httptest.NewRequest(http.MethodPost, "/twitch/unlink/123", nil)
	rec := httptest.NewRecorder()
	c := authedContext(srv, req, rec, "token")
	c.SetParamNames("guildID")
	c.SetParamValues("123")

	err := callHandler(srv.handleTwitchUnlink, c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, link.unlinked)
}

func TestHandleTwitchStatus(t *testing.T) {
	gate := &mockGuildGate{allowed: map[string]bool{"123": true}}
	link := &mockTwitchLink{linked: true}
	srv := newTestServer(t, &mockAppService{}, withGuildGate(gate), withTwitchLink(link))

	req := httptest.NewRequest(http.MethodGet, "/twitch/status/123", nil)
	rec := httptest.NewRecorder()
	c := authedContext(srv, req, rec, "token")
	c.SetParamNames("guildID")
	c.SetParamValues("123")

	err := srv.handleTwitchStatus(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"linked":true}`, rec.Body.String())
}

func TestHandleTwitchStatus_LookupError(t *testing.T) {
	gate := &mockGuildGate{allowed: map[string]bool{"123": true}}
	link := &mockTwitchLink{linkedErr: errors.New("connection refused")}
	srv := newTestServer(t, &mockAppService{}, withGuildGate(gate), withTwitchLink(link))

	req := httptest.NewRequest(http.MethodGet, "/twitch/status/123", nil)
	rec := httptest.NewRecorder()
	c := authedContext(srv, req, rec, "token")
	c.SetParamNames("guildID")
	c.SetParamValues("123")

	err := callHandler(srv.handleTwitchStatus, c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
