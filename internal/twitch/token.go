package twitch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/EribyteVT/eribot/internal/domain"
	"github.com/EribyteVT/eribot/internal/metrics"
)

// TokenRefreshError reports a failed refresh. Revoked marks refresh tokens
// the user has invalidated upstream; the stored pair is dead and the guild
// must re-link.
type TokenRefreshError struct {
	Revoked bool
	Err     error
}

func (e *TokenRefreshError) Error() string {
	if e.Revoked {
		return fmt.Sprintf("token revoked: %v", e.Err)
	}
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }

// EnsureFreshToken returns a live plaintext access token for the guild.
// The stored pair is decrypted and validated against the provider; a dead
// access token is refreshed with the stored refresh token and the new pair
// replaces the old one wholesale. A refresh rejected with 400/401 surfaces
// as a revoked TokenRefreshError.
func (s *OAuthService) EnsureFreshToken(ctx context.Context, guildID string) (string, error) {
	pair, err := s.credentials.GetPair(ctx, guildID, domain.ServiceTwitch)
	if err != nil {
		return "", fmt.Errorf("failed to load credentials: %w", err)
	}

	accessToken, err := s.vault.Decrypt(pair.Access.Ciphertext, pair.Access.IV)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt access token: %w", err)
	}

	valid, err := s.exchanger.ValidateToken(ctx, accessToken)
	if err != nil {
		return "", err
	}
	if valid {
		return accessToken, nil
	}

	refreshToken, err := s.vault.Decrypt(pair.Refresh.Ciphertext, pair.Refresh.IV)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	tokens, err := s.exchanger.RefreshToken(ctx, refreshToken)
	if err != nil {
		var upErr *domain.UpstreamError
		if errors.As(err, &upErr) && (upErr.StatusCode == http.StatusBadRequest || upErr.StatusCode == http.StatusUnauthorized) {
			metrics.TokenRefreshes.WithLabelValues("revoked").Inc()
			return "", &TokenRefreshError{Revoked: true, Err: err}
		}
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return "", &TokenRefreshError{Err: err}
	}

	if err := s.storeTokens(ctx, guildID, tokens); err != nil {
		return "", err
	}

	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	return tokens.AccessToken, nil
}
