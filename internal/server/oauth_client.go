package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	discordTokenURL = "https://discord.com/api/oauth2/token"
	httpCallTimeout = 10 * time.Second
)

// discordOAuthClient handles the Discord login token exchange.
type discordOAuthClient interface {
	ExchangeCodeForToken(ctx context.Context, code string) (*discordTokenResult, error)
}

type discordTokenResult struct {
	AccessToken string
	ExpiresIn   int
}

// discordOAuthHTTPClient is the production implementation using the Discord
// token endpoint.
type discordOAuthHTTPClient struct {
	clientID     string
	clientSecret string
	redirectURI  string
	tokenURL     string
}

func newDiscordOAuthClient(clientID, clientSecret, redirectURI string) *discordOAuthHTTPClient {
	return &discordOAuthHTTPClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		tokenURL:     discordTokenURL,
	}
}

func (c *discordOAuthHTTPClient) ExchangeCodeForToken(ctx context.Context, code string) (*discordTokenResult, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", c.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: httpCallTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord returned status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("discord returned empty access token")
	}

	return &discordTokenResult{AccessToken: tokenResp.AccessToken, ExpiresIn: tokenResp.ExpiresIn}, nil
}
