package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EribyteVT/eribot/internal/domain"
)

// StreamerRepo stores per-guild streamer configuration. The guild column is
// unique, so each guild has at most one streamer row.
type StreamerRepo struct {
	pool *pgxpool.Pool
}

func NewStreamerRepo(pool *pgxpool.Pool) *StreamerRepo {
	return &StreamerRepo{pool: pool}
}

const streamerColumns = `streamer_id, guild, streamer_name, twitch_user_id, timezone,
	level_system, auto_discord_event, auto_twitch_schedule, created_at, updated_at`

func scanStreamer(row pgx.Row) (*domain.Streamer, error) {
	var s domain.Streamer
	err := row.Scan(
		&s.ID, &s.GuildID, &s.Name, &s.TwitchUserID, &s.Timezone,
		&s.LevelSystem, &s.AutoDiscordEvent, &s.AutoTwitchSchedule, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StreamerRepo) GetByGuild(ctx context.Context, guildID string) (*domain.Streamer, error) {
	streamer, err := scanStreamer(r.pool.QueryRow(ctx, `
		SELECT `+streamerColumns+`
		FROM streamer_lookup
		WHERE guild = $1
	`, guildID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStreamerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get streamer by guild: %w", err)
	}
	return streamer, nil
}

func (r *StreamerRepo) Upsert(ctx context.Context, streamer domain.Streamer) (*domain.Streamer, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO streamer_lookup (guild, streamer_name, twitch_user_id, timezone,
			level_system, auto_discord_event, auto_twitch_schedule, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (guild) DO UPDATE SET
			streamer_name = EXCLUDED.streamer_name,
			twitch_user_id = EXCLUDED.twitch_user_id,
			timezone = EXCLUDED.timezone,
			level_system = EXCLUDED.level_system,
			auto_discord_event = EXCLUDED.auto_discord_event,
			auto_twitch_schedule = EXCLUDED.auto_twitch_schedule,
			updated_at = NOW()
		RETURNING `+streamerColumns+`
	`, streamer.GuildID, streamer.Name, streamer.TwitchUserID, streamer.Timezone,
		streamer.LevelSystem, streamer.AutoDiscordEvent, streamer.AutoTwitchSchedule)

	saved, err := scanStreamer(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert streamer: %w", err)
	}
	return saved, nil
}

func (r *StreamerRepo) Delete(ctx context.Context, guildID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM streamer_lookup
		WHERE guild = $1
	`, guildID)
	if err != nil {
		return fmt.Errorf("failed to delete streamer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStreamerNotFound
	}
	return nil
}
