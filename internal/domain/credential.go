package domain

import (
	"context"
	"time"
)

// Service identifies the third party a credential belongs to.
type Service string

const (
	ServiceDiscord Service = "discord"
	ServiceTwitch  Service = "twitch"
)

// TokenRole distinguishes the two slots of an OAuth credential pair.
type TokenRole string

const (
	RoleAccess  TokenRole = "access"
	RoleRefresh TokenRole = "refresh"
)

// EncryptedCredential is one stored token row. Ciphertext carries the
// AES-GCM output as "<hex-ciphertext>:<hex-tag>"; IV is hex-encoded and
// unique per row. Plaintext never appears in this struct.
type EncryptedCredential struct {
	GuildID    string
	Service    Service
	Role       TokenRole
	Ciphertext string
	IV         string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CredentialPair models the access+refresh tokens of one guild/service link
// as a single record with two named slots. A guild counts as linked only when
// both slots are present.
type CredentialPair struct {
	GuildID string
	Service Service
	Access  EncryptedCredential
	Refresh EncryptedCredential
}

// CredentialRepository persists encrypted credential pairs. Pairs are only
// ever replaced wholesale for a guild/service key, never mutated in place.
type CredentialRepository interface {
	// ReplacePair deletes any existing rows for the pair's guild/service key
	// and inserts both slots in one transaction.
	ReplacePair(ctx context.Context, pair CredentialPair) error
	// GetPair returns ErrCredentialNotFound unless both slots exist.
	GetPair(ctx context.Context, guildID string, service Service) (*CredentialPair, error)
	// CountByGuildService reports how many rows exist for a guild/service key.
	CountByGuildService(ctx context.Context, guildID string, service Service) (int, error)
	// DeleteByGuildService removes all rows for a guild/service key.
	DeleteByGuildService(ctx context.Context, guildID string, service Service) error
}

// AuthState is a pending OAuth handshake: an unguessable single-use token
// bound to the guild that initiated the flow. GuildID may be empty when the
// flow was started without guild context.
type AuthState struct {
	State     string
	GuildID   string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// AuthStateRepository persists handshake states. Consume enforces single use:
// the row is removed atomically with the read, so a replayed callback with
// the same state token fails.
type AuthStateRepository interface {
	Create(ctx context.Context, state AuthState) error
	// Consume atomically reads and deletes the row. Returns ErrInvalidState
	// if the state is unknown.
	Consume(ctx context.Context, state string) (*AuthState, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
