package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/EribyteVT/eribot/internal/domain"
)

const (
	defaultBaseURL  = "https://discord.com/api/v10"
	httpCallTimeout = 10 * time.Second

	// Discord's global REST rate limit is 50 requests/second per token.
	// Stay well under it; the bot guild list is cached anyway.
	requestsPerSecond = 20
	requestBurst      = 10
)

// Client fetches guild lists from the Discord REST API.
type Client struct {
	botToken   string
	baseURL    string // overridable for tests
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(botToken string) *Client {
	return &Client{
		botToken:   botToken,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: httpCallTimeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}
}

// GetUserGuilds returns the guilds the bearer token's user belongs to,
// including the user's permission bitfield per guild.
func (c *Client) GetUserGuilds(ctx context.Context, bearerToken string) ([]domain.Guild, error) {
	return c.fetchGuilds(ctx, "Bearer "+bearerToken)
}

// GetBotGuilds returns the guilds the bot account itself has joined.
func (c *Client) GetBotGuilds(ctx context.Context) ([]domain.Guild, error) {
	return c.fetchGuilds(ctx, "Bot "+c.botToken)
}

func (c *Client) fetchGuilds(ctx context.Context, authorization string) ([]domain.Guild, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/users/@me/guilds", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create guilds request: %w", err)
	}
	req.Header.Set("Authorization", authorization)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute guilds request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &domain.UpstreamError{Upstream: "discord", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var guilds []domain.Guild
	if err := json.NewDecoder(resp.Body).Decode(&guilds); err != nil {
		return nil, fmt.Errorf("failed to decode guilds response: %w", err)
	}

	return guilds, nil
}
