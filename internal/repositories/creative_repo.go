package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studyhub/adserver/internal/models"
)

type CreativeRepo struct {
	pool *pgxpool.Pool
}

func NewCreativeRepo(pool *pgxpool.Pool) *CreativeRepo {
	return &CreativeRepo{pool: pool}
}

func (r *CreativeRepo) Create(ctx context.Context, cr *models.AdCreative) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO ad_creatives (campaign_id, image_url, headline, description, destination_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, cr.CampaignID, cr.ImageURL, cr.Headline, cr.Description, cr.DestinationURL,
	).Scan(&cr.ID, &cr.CreatedAt)
}

// GetByID returns (nil, nil) when no creative exists.
func (r *CreativeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AdCreative, error) {
	var cr models.AdCreative
	err := r.pool.QueryRow(ctx, `
		SELECT id, campaign_id, image_url, headline, description, destination_url,
		       impressions, clicks, spent_cents, last_served_at, created_at
		FROM ad_creatives WHERE id = $1
	`, id).Scan(&cr.ID, &cr.CampaignID, &cr.ImageURL, &cr.Headline, &cr.Description,
		&cr.DestinationURL, &cr.Impressions, &cr.Clicks, &cr.SpentCents,
		&cr.LastServedAt, &cr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cr, nil
}

func (r *CreativeRepo) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.AdCreative, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, campaign_id, image_url, headline, description, destination_url,
		       impressions, clicks, spent_cents, last_served_at, created_at
		FROM ad_creatives WHERE campaign_id = $1
		ORDER BY created_at DESC
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creatives []models.AdCreative
	for rows.Next() {
		var cr models.AdCreative
		if err := rows.Scan(&cr.ID, &cr.CampaignID, &cr.ImageURL, &cr.Headline, &cr.Description,
			&cr.DestinationURL, &cr.Impressions, &cr.Clicks, &cr.SpentCents,
			&cr.LastServedAt, &cr.CreatedAt); err != nil {
			return nil, err
		}
		creatives = append(creatives, cr)
	}
	return creatives, nil
}

func (r *CreativeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM ad_creatives WHERE id = $1`, id)
	return err
}

// SelectEligible returns creatives of active campaigns with remaining
// budget, least-recently-served first so rotation stays fair. An empty
// subject matches all campaigns; otherwise the campaign must target it.
func (r *CreativeRepo) SelectEligible(ctx context.Context, subject string, count int) ([]models.AdWithCampaign, error) {
	if count <= 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT cr.id, cr.campaign_id, cr.image_url, cr.headline, cr.description, cr.destination_url,
		       cr.impressions, cr.clicks, cr.spent_cents, cr.last_served_at, cr.created_at,
		       c.title, c.status
		FROM ad_creatives cr
		JOIN ad_campaigns c ON c.id = cr.campaign_id
		WHERE c.status = 'active'
		  AND c.spent_cents < c.budget_cents
		  AND ($1 = '' OR $1 = ANY(c.subjects))
		ORDER BY cr.last_served_at ASC NULLS FIRST
		LIMIT $2
	`, subject, count)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ads []models.AdWithCampaign
	for rows.Next() {
		var ad models.AdWithCampaign
		if err := rows.Scan(&ad.ID, &ad.CampaignID, &ad.ImageURL, &ad.Headline, &ad.Description,
			&ad.DestinationURL, &ad.Impressions, &ad.Clicks, &ad.SpentCents,
			&ad.LastServedAt, &ad.CreatedAt, &ad.CampaignTitle, &ad.CampaignStatus); err != nil {
			return nil, err
		}
		ads = append(ads, ad)
	}
	return ads, nil
}

// MarkServed advances the rotation clock for the given creatives.
func (r *CreativeRepo) MarkServed(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE ad_creatives SET last_served_at = now() WHERE id = ANY($1)
	`, ids)
	return err
}
