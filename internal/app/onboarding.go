package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/EribyteVT/eribot/internal/domain"
)

// OnboardingState is a bit-flag progress value for a guild's setup.
type OnboardingState int

const (
	// StateStreamerExists is set when the guild has a streamer record.
	StateStreamerExists OnboardingState = 1 << 0
	// StateBotPresent is set when the bot account is a member of the guild.
	StateBotPresent OnboardingState = 1 << 1

	// StateNone means neither flag is set.
	StateNone OnboardingState = 0
	// StateComplete means both flags are set and setup is finished.
	StateComplete OnboardingState = StateStreamerExists | StateBotPresent
)

// Decision is what a page-level caller does with a guild: turn the user away,
// send them to the management surface, or show the onboarding flow at the
// computed state.
type Decision struct {
	Authorized       bool
	State            OnboardingState
	RedirectToManage bool
}

// Evaluate computes the onboarding decision for a guild. A caller without the
// administrator bit is denied outright. The state only observes external
// transitions: an admin invites the bot or creates the streamer record
// elsewhere, and the next evaluation sees the new bits.
func (s *Service) Evaluate(ctx context.Context, bearerToken, guildID string) (*Decision, error) {
	if !s.auth.IsAllowedGuild(ctx, bearerToken, guildID) {
		return &Decision{Authorized: false}, nil
	}

	state := StateNone

	_, err := s.streamers.GetByGuild(ctx, guildID)
	switch {
	case err == nil:
		state |= StateStreamerExists
	case errors.Is(err, domain.ErrStreamerNotFound):
		// bit stays unset
	default:
		return nil, fmt.Errorf("failed to check streamer record: %w", err)
	}

	botGuilds, err := s.auth.BotGuildIDs(ctx)
	if err != nil {
		// Membership unknown means the bit stays unset; the user retries
		// onboarding instead of seeing a wrong redirect.
		slog.Warn("failed to fetch bot guilds for onboarding", "guild_id", guildID, "error", err)
	} else if _, ok := botGuilds[guildID]; ok {
		state |= StateBotPresent
	}

	return &Decision{
		Authorized:       true,
		State:            state,
		RedirectToManage: state == StateComplete,
	}, nil
}
