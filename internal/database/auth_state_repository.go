package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EribyteVT/eribot/internal/domain"
)

// AuthStateRepo stores pending OAuth handshake states.
type AuthStateRepo struct {
	pool *pgxpool.Pool
}

func NewAuthStateRepo(pool *pgxpool.Pool) *AuthStateRepo {
	return &AuthStateRepo{pool: pool}
}

func (r *AuthStateRepo) Create(ctx context.Context, state domain.AuthState) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO auth_state (state, guild_id, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
	`, state.State, state.GuildID, state.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert auth state: %w", err)
	}
	return nil
}

// Consume deletes the row and returns it in one statement, so a second
// callback with the same state token finds nothing.
func (r *AuthStateRepo) Consume(ctx context.Context, state string) (*domain.AuthState, error) {
	var row domain.AuthState
	err := r.pool.QueryRow(ctx, `
		DELETE FROM auth_state
		WHERE state = $1
		RETURNING state, guild_id, expires_at, created_at
	`, state).Scan(&row.State, &row.GuildID, &row.ExpiresAt, &row.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrInvalidState
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume auth state: %w", err)
	}
	return &row, nil
}

func (r *AuthStateRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM auth_state
		WHERE expires_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired auth states: %w", err)
	}
	return tag.RowsAffected(), nil
}
