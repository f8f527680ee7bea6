package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/EribyteVT/eribot/internal/domain"
)

const (
	defaultAuthorizeURL = "https://id.twitch.tv/oauth2/authorize"
	defaultTokenURL     = "https://id.twitch.tv/oauth2/token"
	defaultValidateURL  = "https://id.twitch.tv/oauth2/validate"
	httpCallTimeout     = 10 * time.Second
)

// tokenPair is the plaintext result of a code exchange or refresh.
type tokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// oauthExchanger is the outbound contract to the Twitch OAuth endpoints.
type oauthExchanger interface {
	ExchangeCode(ctx context.Context, code string) (*tokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*tokenPair, error)
	ValidateToken(ctx context.Context, accessToken string) (bool, error)
}

// httpExchanger is the production implementation against the Twitch id API.
type httpExchanger struct {
	clientID     string
	clientSecret string
	redirectURI  string
	tokenURL     string // overridable for tests
	validateURL  string
	httpClient   *http.Client
}

func newHTTPExchanger(clientID, clientSecret, redirectURI string) *httpExchanger {
	return &httpExchanger{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		tokenURL:     defaultTokenURL,
		validateURL:  defaultValidateURL,
		httpClient:   &http.Client{Timeout: httpCallTimeout},
	}
}

func (c *httpExchanger) ExchangeCode(ctx context.Context, code string) (*tokenPair, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", c.redirectURI)

	return c.postTokenEndpoint(ctx, data)
}

func (c *httpExchanger) RefreshToken(ctx context.Context, refreshToken string) (*tokenPair, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	return c.postTokenEndpoint(ctx, data)
}

func (c *httpExchanger) postTokenEndpoint(ctx context.Context, data url.Values) (*tokenPair, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.UpstreamError{Upstream: "twitch", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &tokenPair{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
	}, nil
}

// ValidateToken asks the provider whether an access token is still live.
// A 401 means expired or revoked; any other non-200 is an upstream error.
func (c *httpExchanger) ValidateToken(ctx context.Context, accessToken string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.validateURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create validate request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to execute validate request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusUnauthorized:
		return false, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, &domain.UpstreamError{Upstream: "twitch", StatusCode: resp.StatusCode, Body: string(body)}
	}
}
