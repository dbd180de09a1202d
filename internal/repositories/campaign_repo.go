package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studyhub/adserver/internal/models"
)

type CampaignRepo struct {
	pool *pgxpool.Pool
}

func NewCampaignRepo(pool *pgxpool.Pool) *CampaignRepo {
	return &CampaignRepo{pool: pool}
}

func (r *CampaignRepo) Create(ctx context.Context, c *models.AdCampaign) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO ad_campaigns (advertiser_id, title, subjects, budget_cents, cpc_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, spent_cents, created_at, updated_at
	`, c.AdvertiserID, c.Title, c.Subjects, c.BudgetCents, c.CPCCents, c.Status,
	).Scan(&c.ID, &c.SpentCents, &c.CreatedAt, &c.UpdatedAt)
}

// GetByID returns (nil, nil) when no campaign exists.
func (r *CampaignRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AdCampaign, error) {
	var c models.AdCampaign
	err := r.pool.QueryRow(ctx, `
		SELECT id, advertiser_id, title, subjects, budget_cents, spent_cents, cpc_cents, status, created_at, updated_at
		FROM ad_campaigns WHERE id = $1
	`, id).Scan(&c.ID, &c.AdvertiserID, &c.Title, &c.Subjects, &c.BudgetCents,
		&c.SpentCents, &c.CPCCents, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepo) Update(ctx context.Context, c *models.AdCampaign) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ad_campaigns SET title = $1, subjects = $2, budget_cents = $3, cpc_cents = $4, updated_at = now()
		WHERE id = $5
	`, c.Title, c.Subjects, c.BudgetCents, c.CPCCents, c.ID)
	return err
}

// UpdateStatus transitions a campaign only from the expected status; the
// guard keeps concurrent transitions from clobbering each other.
func (r *CampaignRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ad_campaigns SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("campaign %s is no longer %s", id, from)
	}
	return nil
}

// ReactivateFunded flips depleted campaigns back to active where the budget
// has been raised above spend. Run periodically by the worker.
func (r *CampaignRepo) ReactivateFunded(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ad_campaigns SET status = 'active', updated_at = now()
		WHERE status = 'depleted' AND spent_cents < budget_cents
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type CampaignFilter struct {
	AdvertiserID *uuid.UUID
	Status       *string
	Limit        int
	Offset       int
}

func (r *CampaignRepo) List(ctx context.Context, f CampaignFilter) ([]models.AdCampaign, error) {
	query := `
		SELECT id, advertiser_id, title, subjects, budget_cents, spent_cents, cpc_cents, status, created_at, updated_at
		FROM ad_campaigns
	`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.AdvertiserID != nil {
		where = append(where, fmt.Sprintf("advertiser_id = $%d", argIdx))
		args = append(args, *f.AdvertiserID)
		argIdx++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}

	if len(where) > 0 {
		query += " WHERE "
		for i, w := range where {
			if i > 0 {
				query += " AND "
			}
			query += w
		}
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.AdCampaign
	for rows.Next() {
		var c models.AdCampaign
		if err := rows.Scan(&c.ID, &c.AdvertiserID, &c.Title, &c.Subjects, &c.BudgetCents,
			&c.SpentCents, &c.CPCCents, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, nil
}
