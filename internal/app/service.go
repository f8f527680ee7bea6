package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/EribyteVT/eribot/internal/domain"
)

const (
	stateCleanupInterval = 5 * time.Minute
	stateCleanupTimeout  = 10 * time.Second
)

// GuildAuthorizer answers whether a dashboard caller administers a guild and
// which guilds the bot currently sits in.
type GuildAuthorizer interface {
	IsAllowedGuild(ctx context.Context, bearerToken, guildID string) bool
	BotGuildIDs(ctx context.Context) (map[string]struct{}, error)
}

// Service is the application layer, the only component that references
// multiple domain components. It orchestrates all use cases.
type Service struct {
	streamers domain.StreamerRepository
	states    domain.AuthStateRepository
	auth      GuildAuthorizer
	clock     clockwork.Clock

	cleanupStopCh chan struct{}
	stopOnce      sync.Once
	cleanupWg     sync.WaitGroup
}

// NewService creates the application layer service and starts the expired
// handshake cleanup timer.
func NewService(streamers domain.StreamerRepository, states domain.AuthStateRepository, auth GuildAuthorizer, clock clockwork.Clock) *Service {
	s := &Service{
		streamers:     streamers,
		states:        states,
		auth:          auth,
		clock:         clock,
		cleanupStopCh: make(chan struct{}),
	}

	s.startStateCleanup()
	return s
}

// GetStreamer returns the guild's streamer row. The caller must administer
// the guild; anyone else sees ErrNotAuthorized regardless of whether the row
// exists.
func (s *Service) GetStreamer(ctx context.Context, bearerToken, guildID string) (*domain.Streamer, error) {
	if !s.auth.IsAllowedGuild(ctx, bearerToken, guildID) {
		return nil, domain.ErrNotAuthorized
	}
	return s.streamers.GetByGuild(ctx, guildID)
}

// SaveStreamer creates or updates the guild's streamer row after verifying
// the caller administers the guild.
func (s *Service) SaveStreamer(ctx context.Context, bearerToken string, streamer domain.Streamer) (*domain.Streamer, error) {
	if !s.auth.IsAllowedGuild(ctx, bearerToken, streamer.GuildID) {
		return nil, domain.ErrNotAuthorized
	}
	return s.streamers.Upsert(ctx, streamer)
}

// DeleteStreamer removes the guild's streamer row after verifying the caller
// administers the guild.
func (s *Service) DeleteStreamer(ctx context.Context, bearerToken, guildID string) error {
	if !s.auth.IsAllowedGuild(ctx, bearerToken, guildID) {
		return domain.ErrNotAuthorized
	}
	return s.streamers.Delete(ctx, guildID)
}

// Close stops the cleanup timer and waits for an in-flight sweep to finish.
func (s *Service) Close() {
	s.stopOnce.Do(func() {
		close(s.cleanupStopCh)
	})
	s.cleanupWg.Wait()
}

func (s *Service) startStateCleanup() {
	s.cleanupWg.Add(1)
	go func() {
		defer s.cleanupWg.Done()

		ticker := s.clock.NewTicker(stateCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.cleanupStopCh:
				return
			case <-ticker.Chan():
				s.sweepExpiredStates()
			}
		}
	}()
}

func (s *Service) sweepExpiredStates() {
	ctx, cancel := context.WithTimeout(context.Background(), stateCleanupTimeout)
	defer cancel()

	deleted, err := s.states.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		slog.Error("failed to sweep expired auth states", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("swept expired auth states", "deleted", deleted)
	}
}
