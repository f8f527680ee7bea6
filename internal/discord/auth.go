package discord

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/EribyteVT/eribot/internal/cache"
	"github.com/EribyteVT/eribot/internal/domain"
	"github.com/EribyteVT/eribot/internal/metrics"
)

const (
	botGuildsCacheKey = "discord:bot_guilds"
	botGuildsCacheTTL = 5 * time.Minute
)

// outcome is the internal three-state result of an authorization check.
// The external contract collapses to a boolean, but keeping the lookup-failed
// branch separate keeps metrics and tests honest about which branch fired.
type outcome string

const (
	outcomeAuthorized   outcome = "authorized"
	outcomeDenied       outcome = "denied"
	outcomeLookupFailed outcome = "lookup_failed"
)

// guildLister is the slice of Client the auth service needs.
type guildLister interface {
	GetUserGuilds(ctx context.Context, bearerToken string) ([]domain.Guild, error)
	GetBotGuilds(ctx context.Context) ([]domain.Guild, error)
}

// AuthService decides whether a caller has administrative authority over a
// guild, and tracks which guilds the bot has joined.
type AuthService struct {
	client guildLister
	cache  *cache.Cache[[]domain.Guild]
	group  singleflight.Group
}

func NewAuthService(client guildLister, guildCache *cache.Cache[[]domain.Guild]) *AuthService {
	return &AuthService{client: client, cache: guildCache}
}

// IsAllowedGuild reports whether the bearer token's user holds the
// administrator bit on the given guild. The caller's guild list is fetched
// live on every call; permissions change at any time and this gate protects
// mutation endpoints. Every ambiguous state resolves to false: an upstream
// error, a malformed payload, a missing token, or no entry for the guild all
// deny rather than propagate.
func (s *AuthService) IsAllowedGuild(ctx context.Context, bearerToken, guildID string) bool {
	result := s.checkGuild(ctx, bearerToken, guildID)
	metrics.GuildAuthDecisions.WithLabelValues(string(result)).Inc()
	return result == outcomeAuthorized
}

func (s *AuthService) checkGuild(ctx context.Context, bearerToken, guildID string) outcome {
	if bearerToken == "" || guildID == "" {
		return outcomeDenied
	}

	guilds, err := s.client.GetUserGuilds(ctx, bearerToken)
	if err != nil {
		slog.WarnContext(ctx, "Guild lookup failed, denying", "guild_id", guildID, "error", err)
		return outcomeLookupFailed
	}

	for _, g := range guilds {
		if g.ID == guildID {
			if g.HasAdministrator() {
				return outcomeAuthorized
			}
			return outcomeDenied
		}
	}

	// No entry for the requested guild: the caller is not a member.
	return outcomeDenied
}

// BotGuildIDs returns the set of guild IDs the bot account belongs to.
// The list changes rarely and is queried on every onboarding check, so it is
// cached for five minutes; concurrent misses collapse to one upstream fetch.
func (s *AuthService) BotGuildIDs(ctx context.Context) (map[string]struct{}, error) {
	if guilds, ok := s.cache.Get(botGuildsCacheKey); ok {
		metrics.BotGuildCacheHits.Inc()
		return guildIDSet(guilds), nil
	}

	v, err, _ := s.group.Do(botGuildsCacheKey, func() (any, error) {
		// Re-check: another flight may have populated the cache.
		if guilds, ok := s.cache.Get(botGuildsCacheKey); ok {
			return guilds, nil
		}

		metrics.BotGuildCacheMisses.Inc()
		guilds, err := s.client.GetBotGuilds(ctx)
		if err != nil {
			return nil, err
		}

		s.cache.Set(botGuildsCacheKey, guilds, botGuildsCacheTTL)
		return guilds, nil
	})
	if err != nil {
		return nil, err
	}

	return guildIDSet(v.([]domain.Guild)), nil
}

// InvalidateBotGuilds drops the cached bot guild list, forcing the next
// lookup to hit the Discord API.
func (s *AuthService) InvalidateBotGuilds() {
	s.cache.Delete(botGuildsCacheKey)
}

func guildIDSet(guilds []domain.Guild) map[string]struct{} {
	ids := make(map[string]struct{}, len(guilds))
	for _, g := range guilds {
		ids[g.ID] = struct{}{}
	}
	return ids
}
