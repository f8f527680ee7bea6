package twitch

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/EribyteVT/eribot/internal/crypto"
	"github.com/EribyteVT/eribot/internal/domain"
	"github.com/EribyteVT/eribot/internal/metrics"
)

const (
	stateTTL = 10 * time.Minute

	// linkedRowCount is the row count that marks a guild as Twitch-linked:
	// one access row plus one refresh row.
	linkedRowCount = 2
)

// Scopes requested during authorization.
var oauthScopes = []string{"user:read:email", "channel:manage:schedule"}

// OAuthService orchestrates the three-legged OAuth handshake with Twitch and
// is the sole reader/writer of the credential vault.
type OAuthService struct {
	exchanger    oauthExchanger
	vault        *crypto.Vault
	credentials  domain.CredentialRepository
	states       domain.AuthStateRepository
	clock        clockwork.Clock
	clientID     string
	redirectURI  string
	authorizeURL string // overridable for tests
}

func NewOAuthService(clientID, clientSecret, redirectURI string, vault *crypto.Vault, credentials domain.CredentialRepository, states domain.AuthStateRepository, clock clockwork.Clock) *OAuthService {
	return &OAuthService{
		exchanger:    newHTTPExchanger(clientID, clientSecret, redirectURI),
		vault:        vault,
		credentials:  credentials,
		states:       states,
		clock:        clock,
		clientID:     clientID,
		redirectURI:  redirectURI,
		authorizeURL: defaultAuthorizeURL,
	}
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate OAuth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// BeginAuthorization issues a fresh anti-forgery state bound to guildID
// (empty means no guild context), persists it with a ten-minute expiry, and
// returns the provider authorize URL to redirect the user to.
func (s *OAuthService) BeginAuthorization(ctx context.Context, guildID string) (authorizeURL, state string, err error) {
	state, err = generateState()
	if err != nil {
		return "", "", err
	}

	now := s.clock.Now()
	err = s.states.Create(ctx, domain.AuthState{
		State:     state,
		GuildID:   guildID,
		ExpiresAt: now.Add(stateTTL),
		CreatedAt: now,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to persist oauth state: %w", err)
	}

	authorizeURL = fmt.Sprintf(
		"%s?client_id=%s&redirect_uri=%s&response_type=code&scope=%s&state=%s",
		s.authorizeURL,
		url.QueryEscape(s.clientID),
		url.QueryEscape(s.redirectURI),
		url.QueryEscape(strings.Join(oauthScopes, " ")),
		url.QueryEscape(state),
	)

	return authorizeURL, state, nil
}

// CompleteAuthorization finishes the handshake: it consumes the persisted
// state (single use - a replayed callback fails), exchanges the code for a
// token pair, and replaces the guild's encrypted twitch credentials
// wholesale. Returns the guild the flow was started for.
func (s *OAuthService) CompleteAuthorization(ctx context.Context, code, state string) (guildID string, err error) {
	row, err := s.states.Consume(ctx, state)
	if err != nil {
		metrics.OAuthExchanges.WithLabelValues("invalid_state").Inc()
		return "", err
	}

	if s.clock.Now().After(row.ExpiresAt) {
		metrics.OAuthExchanges.WithLabelValues("invalid_state").Inc()
		return "", domain.ErrInvalidState
	}

	tokens, err := s.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		metrics.OAuthExchanges.WithLabelValues("upstream_error").Inc()
		return "", err
	}

	if err := s.storeTokens(ctx, row.GuildID, tokens); err != nil {
		return "", err
	}

	metrics.OAuthExchanges.WithLabelValues("success").Inc()
	slog.InfoContext(ctx, "Twitch account linked", "guild_id", row.GuildID)
	return row.GuildID, nil
}

func (s *OAuthService) storeTokens(ctx context.Context, guildID string, tokens *tokenPair) error {
	accessCiphertext, accessIV, err := s.vault.Encrypt(tokens.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	refreshCiphertext, refreshIV, err := s.vault.Encrypt(tokens.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	pair := domain.CredentialPair{
		GuildID: guildID,
		Service: domain.ServiceTwitch,
		Access: domain.EncryptedCredential{
			GuildID:    guildID,
			Service:    domain.ServiceTwitch,
			Role:       domain.RoleAccess,
			Ciphertext: accessCiphertext,
			IV:         accessIV,
		},
		Refresh: domain.EncryptedCredential{
			GuildID:    guildID,
			Service:    domain.ServiceTwitch,
			Role:       domain.RoleRefresh,
			Ciphertext: refreshCiphertext,
			IV:         refreshIV,
		},
	}

	if err := s.credentials.ReplacePair(ctx, pair); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

// HasLinkedTwitch reports whether a guild holds a complete twitch credential
// pair. Linked means at least two rows: access plus refresh.
func (s *OAuthService) HasLinkedTwitch(ctx context.Context, guildID string) (bool, error) {
	count, err := s.credentials.CountByGuildService(ctx, guildID, domain.ServiceTwitch)
	if err != nil {
		return false, fmt.Errorf("failed to count credentials: %w", err)
	}
	return count >= linkedRowCount, nil
}

// Unlink removes every twitch credential row for the guild (sign-out cleanup).
func (s *OAuthService) Unlink(ctx context.Context, guildID string) error {
	if err := s.credentials.DeleteByGuildService(ctx, guildID, domain.ServiceTwitch); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	slog.InfoContext(ctx, "Twitch account unlinked", "guild_id", guildID)
	return nil
}
