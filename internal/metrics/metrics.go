// Package metrics defines the Prometheus metrics exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Authorization metrics
var (
	// GuildAuthDecisions tracks guild authorization checks by outcome
	// (authorized / denied / lookup_failed).
	GuildAuthDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guild_auth_decisions_total",
			Help: "Guild authorization checks by outcome",
		},
		[]string{"outcome"},
	)

	// BotGuildCacheHits tracks cache hits for the bot guild membership list
	BotGuildCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_guild_cache_hits_total",
			Help: "Bot guild list lookups served from cache",
		},
	)

	// BotGuildCacheMisses tracks cache misses for the bot guild membership list
	BotGuildCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_guild_cache_misses_total",
			Help: "Bot guild list lookups that hit the Discord API",
		},
	)
)

// OAuth metrics
var (
	// OAuthExchanges tracks Twitch code exchanges by result
	// (success / invalid_state / upstream_error).
	OAuthExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oauth_exchanges_total",
			Help: "Twitch OAuth code exchanges by result",
		},
		[]string{"result"},
	)

	// TokenRefreshes tracks Twitch token refreshes by result (success / revoked / error)
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_refreshes_total",
			Help: "Twitch token refreshes by result",
		},
		[]string{"result"},
	)
)

// HTTP metrics
var (
	// HTTPErrorsTotal tracks HTTP errors by structured error type
	HTTPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total HTTP errors by error type",
		},
		[]string{"type"},
	)
)
