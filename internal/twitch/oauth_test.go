package twitch

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EribyteVT/eribot/internal/crypto"
	"github.com/EribyteVT/eribot/internal/domain"
)

type oauthFixture struct {
	svc         *OAuthService
	credentials *fakeCredentialRepo
	states      *fakeStateRepo
	exchanger   *fakeExchanger
	clock       *clockwork.FakeClock
	vault       *crypto.Vault
}

func newOAuthFixture(t *testing.T) *oauthFixture {
	t.Helper()

	vault, err := crypto.NewVault("s3cr3t")
	require.NoError(t, err)

	credentials := newFakeCredentialRepo()
	states := newFakeStateRepo()
	exchanger := &fakeExchanger{}
	clock := clockwork.NewFakeClock()

	svc := NewOAuthService("client-id", "client-secret", "http://localhost/twitch/callback", vault, credentials, states, clock)
	svc.exchanger = exchanger

	return &oauthFixture{
		svc:         svc,
		credentials: credentials,
		states:      states,
		exchanger:   exchanger,
		clock:       clock,
		vault:       vault,
	}
}

func TestBeginAuthorization_BuildsAuthorizeURL(t *testing.T) {
	fx := newOAuthFixture(t)

	authorizeURL, state, err := fx.svc.BeginAuthorization(context.Background(), "123")
	require.NoError(t, err)
	assert.Len(t, state, 32, "state should be 16 random bytes hex-encoded")

	parsed, err := url.Parse(authorizeURL)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "user:read:email channel:manage:schedule", q.Get("scope"))
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, "http://localhost/twitch/callback", q.Get("redirect_uri"))
}

func TestBeginAuthorization_PersistsStateWithExpiry(t *testing.T) {
	fx := newOAuthFixture(t)

	_, state, err := fx.svc.BeginAuthorization(context.Background(), "123")
	require.NoError(t, err)

	row, err := fx.states.Consume(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "123", row.GuildID)
	assert.Equal(t, fx.clock.Now().Add(10*time.Minute), row.ExpiresAt)
}

func TestBeginAuthorization_EmptyGuildAllowed(t *testing.T) {
	fx := newOAuthFixture(t)

	_, state, err := fx.svc.BeginAuthorization(context.Background(), "")
	require.NoError(t, err)

	row, err := fx.states.Consume(context.Background(), state)
	require.NoError(t, err)
	assert.Empty(t, row.GuildID)
}

func TestCompleteAuthorization_Success(t *testing.T) {
	fx := newOAuthFixture(t)
	fx.exchanger.exchangePair = &tokenPair{
		AccessToken:  "access-plain",
		RefreshToken: "refresh-plain",
		ExpiresIn:    14400,
	}

	_, state, err := fx.svc.BeginAuthorization(context.Background(), "123")
	require.NoError(t, err)

	guildID, err := fx.svc.CompleteAuthorization(context.Background(), "auth-code", state)
	require.NoError(t, err)
	assert.Equal(t, "123", guildID)

	// Both slots persisted, encrypted, and decryptable back to the tokens.
	pair, err := fx.credentials.GetPair(context.Background(), "123", domain.ServiceTwitch)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAccess, pair.Access.Role)
	assert.Equal(t, domain.RoleRefresh, pair.Refresh.Role)
	assert.NotContains(t, pair.Access.Ciphertext, "access-plain")

	plain, err := fx.vault.Decrypt(pair.Access.Ciphertext, pair.Access.IV)
	require.NoError(t, err)
	assert.Equal(t, "access-plain", plain)
	plain, err = fx.vault.Decrypt(pair.Refresh.Ciphertext, pair.Refresh.IV)
	require.NoError(t, err)
	assert.Equal(t, "refresh-plain", plain)

	linked, err := fx.svc.HasLinkedTwitch(context.Background(), "123")
	require.NoError(t, err)
	assert.True(t, linked)
}

func TestCompleteAuthorization_UnknownState(t *testing.T) {
	fx := newOAuthFixture(t)

	_, err := fx.svc.CompleteAuthorization(context.Background(), "code", "never-issued")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 0, fx.exchanger.exchangeCalls, "no exchange without a valid state")
}

func TestCompleteAuthorization_ExpiredState(t *testing.T) {
	fx := newOAuthFixture(t)
	fx.exchanger.exchangePair = &tokenPair{AccessToken: "a", RefreshToken: "r"}

	_, state, err := fx.svc.BeginAuthorization(context.Background(), "123")
	require.NoError(t, err)

	fx.clock.Advance(11 * time.Minute)

	_, err = fx.svc.CompleteAuthorization(context.Background(), "code", state)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 0, fx.exchanger.exchangeCalls)
}

func TestCompleteAuthorization_StateIsSingleUse(t *testing.T) {
	fx := newOAuthFixture(t)
	fx.exchanger.exchangePair = &tokenPair{AccessToken: "a", RefreshToken: "r"}

	_, state, err := fx.svc.BeginAuthorization(context.Background(), "123")
	require.NoError(t, err)

	_, err = fx.svc.CompleteAuthorization(context.Background(), "code", state)
	require.NoError(t, err)

	// Replaying the callback with the same state must fail.
	_, err = fx.svc.CompleteAuthorization(context.Background(), "code", state)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 1, fx.exchanger.exchangeCalls)
}

func TestCompleteAuthorization_UpstreamErrorPropagates(t *testing.T) {
	fx := newOAuthFixture(t)
	fx.exchanger.exchangeErr = &domain.UpstreamError{Upstream: "twitch", StatusCode: 503}

	_, state, err := fx.svc.BeginAuthorization(context.Background(), "123")
	require.NoError(t, err)

	_, err = fx.svc.CompleteAuthorization(context.Background(), "code", state)
	var upErr *domain.UpstreamError
	require.ErrorAs(t, err, &upErr, "provider errors surface unchanged")
	assert.Equal(t, 503, upErr.StatusCode)

	// Nothing persisted on a failed exchange.
	_, err = fx.credentials.GetPair(context.Background(), "123", domain.ServiceTwitch)
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestHasLinkedTwitch_Unlinked(t *testing.T) {
	fx := newOAuthFixture(t)

	linked, err := fx.svc.HasLinkedTwitch(context.Background(), "123")
	require.NoError(t, err)
	assert.False(t, linked)
}

func TestUnlink_RemovesCredentials(t *testing.T) {
	fx := newOAuthFixture(t)
	fx.exchanger.exchangePair = &tokenPair{AccessToken: "a", RefreshToken: "r"}

	_, state, err := fx.svc.BeginAuthorization(context.Background(), "123")
	require.NoError(t, err)
	_, err = fx.svc.CompleteAuthorization(context.Background(), "code", state)
	require.NoError(t, err)

	require.NoError(t, fx.svc.Unlink(context.Background(), "123"))

	linked, err := fx.svc.HasLinkedTwitch(context.Background(), "123")
	require.NoError(t, err)
	assert.False(t, linked)
}

func TestGenerateState_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for range 100 {
		state, err := generateState()
		require.NoError(t, err)
		assert.NotContains(t, seen, state)
		seen[state] = struct{}{}
	}
}

func TestBeginAuthorization_ScopesAreEscapedOnce(t *testing.T) {
	fx := newOAuthFixture(t)

	authorizeURL, _, err := fx.svc.BeginAuthorization(context.Background(), "123")
	require.NoError(t, err)
	assert.True(t, strings.Contains(authorizeURL, "scope=user%3Aread%3Aemail+channel%3Amanage%3Aschedule") ||
		strings.Contains(authorizeURL, "scope=user%3Aread%3Aemail%20channel%3Amanage%3Aschedule"))
}
