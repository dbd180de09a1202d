package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studyhub/adserver/internal/models"
)

type AdvertiserRepo struct {
	pool *pgxpool.Pool
}

func NewAdvertiserRepo(pool *pgxpool.Pool) *AdvertiserRepo {
	return &AdvertiserRepo{pool: pool}
}

// UpsertByUserID returns the advertiser profile for a user, creating it on
// first use. Profiles come into existence lazily at first deposit.
func (r *AdvertiserRepo) UpsertByUserID(ctx context.Context, userID uuid.UUID) (*models.AdvertiserProfile, error) {
	var p models.AdvertiserProfile
	err := r.pool.QueryRow(ctx, `
		INSERT INTO advertiser_profiles (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
		RETURNING id, user_id, balance_cents, created_at, updated_at
	`, userID).Scan(&p.ID, &p.UserID, &p.BalanceCents, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByUserID returns (nil, nil) when the user has no advertiser profile.
func (r *AdvertiserRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.AdvertiserProfile, error) {
	var p models.AdvertiserProfile
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, balance_cents, created_at, updated_at
		FROM advertiser_profiles WHERE user_id = $1
	`, userID).Scan(&p.ID, &p.UserID, &p.BalanceCents, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *AdvertiserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AdvertiserProfile, error) {
	var p models.AdvertiserProfile
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, balance_cents, created_at, updated_at
		FROM advertiser_profiles WHERE id = $1
	`, id).Scan(&p.ID, &p.UserID, &p.BalanceCents, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
