package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Streamer is the per-guild configuration row linking a guild to a Twitch
// account and scheduling preferences.
type Streamer struct {
	ID                 uuid.UUID
	GuildID            string
	Name               string
	TwitchUserID       string
	Timezone           string
	LevelSystem        bool
	AutoDiscordEvent   bool
	AutoTwitchSchedule bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type StreamerRepository interface {
	GetByGuild(ctx context.Context, guildID string) (*Streamer, error)
	Upsert(ctx context.Context, streamer Streamer) (*Streamer, error)
	Delete(ctx context.Context, guildID string) error
}
