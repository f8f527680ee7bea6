package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EribyteVT/eribot/internal/domain"
)

// CredentialRepo stores encrypted token rows in the encrypted_token table.
type CredentialRepo struct {
	pool *pgxpool.Pool
}

func NewCredentialRepo(pool *pgxpool.Pool) *CredentialRepo {
	return &CredentialRepo{pool: pool}
}

// ReplacePair swaps the stored rows for the pair's guild/service key in one
// transaction. Readers never observe a half-written pair.
func (r *CredentialRepo) ReplacePair(ctx context.Context, pair domain.CredentialPair) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM encrypted_token
		WHERE guild_id = $1 AND service = $2
	`, pair.GuildID, pair.Service)
	if err != nil {
		return fmt.Errorf("failed to delete old credentials: %w", err)
	}

	for _, cred := range []struct {
		role domain.TokenRole
		row  domain.EncryptedCredential
	}{
		{domain.RoleAccess, pair.Access},
		{domain.RoleRefresh, pair.Refresh},
	} {
		_, err = tx.Exec(ctx, `
			INSERT INTO encrypted_token (guild_id, service, role, ciphertext, iv, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		`, pair.GuildID, pair.Service, cred.role, cred.row.Ciphertext, cred.row.IV)
		if err != nil {
			return fmt.Errorf("failed to insert %s credential: %w", cred.role, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPair loads both slots for a guild/service key. A missing or incomplete
// pair reports domain.ErrCredentialNotFound.
func (r *CredentialRepo) GetPair(ctx context.Context, guildID string, service domain.Service) (*domain.CredentialPair, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT guild_id, service, role, ciphertext, iv, created_at, updated_at
		FROM encrypted_token
		WHERE guild_id = $1 AND service = $2
	`, guildID, service)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	pair := domain.CredentialPair{GuildID: guildID, Service: service}
	var haveAccess, haveRefresh bool

	for rows.Next() {
		var cred domain.EncryptedCredential
		if err := rows.Scan(&cred.GuildID, &cred.Service, &cred.Role, &cred.Ciphertext, &cred.IV, &cred.CreatedAt, &cred.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan credential row: %w", err)
		}
		switch cred.Role {
		case domain.RoleAccess:
			pair.Access = cred
			haveAccess = true
		case domain.RoleRefresh:
			pair.Refresh = cred
			haveRefresh = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credential rows: %w", err)
	}

	if !haveAccess || !haveRefresh {
		return nil, domain.ErrCredentialNotFound
	}
	return &pair, nil
}

func (r *CredentialRepo) CountByGuildService(ctx context.Context, guildID string, service domain.Service) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM encrypted_token
		WHERE guild_id = $1 AND service = $2
	`, guildID, service).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count credentials: %w", err)
	}
	return count, nil
}

func (r *CredentialRepo) DeleteByGuildService(ctx context.Context, guildID string, service domain.Service) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM encrypted_token
		WHERE guild_id = $1 AND service = $2
	`, guildID, service)
	if err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}
