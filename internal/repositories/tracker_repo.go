package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TrackerRepo holds the hot-path accounting writes. Every counter move is
// an atomic relative update (x = x + n) executed in one database
// transaction — never a read-modify-write on an application-held value, so
// concurrent clicks on the same campaign cannot lose updates.
type TrackerRepo struct {
	pool *pgxpool.Pool
}

func NewTrackerRepo(pool *pgxpool.Pool) *TrackerRepo {
	return &TrackerRepo{pool: pool}
}

// RecordView bumps impression counters on the creative plus both daily
// rollups. Impressions are free; no budget moves.
func (r *TrackerRepo) RecordView(ctx context.Context, creativeID, campaignID uuid.UUID) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		UPDATE ad_creatives SET impressions = impressions + 1 WHERE id = $1
	`, creativeID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ad_daily_metrics (campaign_id, date, impressions)
		VALUES ($1, current_date, 1)
		ON CONFLICT (campaign_id, date)
		DO UPDATE SET impressions = ad_daily_metrics.impressions + 1
	`, campaignID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ad_creative_daily_metrics (creative_id, date, impressions)
		VALUES ($1, current_date, 1)
		ON CONFLICT (creative_id, date)
		DO UPDATE SET impressions = ad_creative_daily_metrics.impressions + 1
	`, creativeID)
	return err
}

// RecordClick counts the click and, when the campaign is active with
// budget headroom, debits cost-per-click from campaign spend. The charge
// is clamped to the remaining budget — a campaign whose remainder is
// smaller than cpc pays out the remainder rather than serving free clicks
// forever — and the campaign flips to depleted in the same statement the
// moment spend reaches budget. The FOR UPDATE lock serializes concurrent
// clicks on the same campaign, so ten concurrent clicks against a
// 10-click budget debit exactly ten times and the eleventh is unbilled.
// Returns billed=false when the campaign could not be charged.
func (r *TrackerRepo) RecordClick(ctx context.Context, creativeID, campaignID uuid.UUID) (billed bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var cpcCents int64
	err = tx.QueryRow(ctx, `
		WITH charge AS (
			SELECT id, LEAST(cpc_cents, budget_cents - spent_cents) AS amount
			FROM ad_campaigns
			WHERE id = $1 AND status = 'active' AND spent_cents < budget_cents
			FOR UPDATE
		)
		UPDATE ad_campaigns c
		SET spent_cents = c.spent_cents + charge.amount,
		    status = CASE WHEN c.spent_cents + charge.amount >= c.budget_cents THEN 'depleted' ELSE c.status END,
		    updated_at = now()
		FROM charge
		WHERE c.id = charge.id
		RETURNING charge.amount
	`, campaignID).Scan(&cpcCents)
	if errors.Is(err, pgx.ErrNoRows) {
		// Depleted, paused, or under review — count the click, bill nothing.
		err = nil
		cpcCents = 0
	} else if err != nil {
		return false, err
	} else {
		billed = true
	}

	_, err = tx.Exec(ctx, `
		UPDATE ad_creatives SET clicks = clicks + 1, spent_cents = spent_cents + $2 WHERE id = $1
	`, creativeID, cpcCents)
	if err != nil {
		return false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ad_daily_metrics (campaign_id, date, clicks, spent_cents)
		VALUES ($1, current_date, 1, $2)
		ON CONFLICT (campaign_id, date)
		DO UPDATE SET clicks = ad_daily_metrics.clicks + 1,
		              spent_cents = ad_daily_metrics.spent_cents + $2
	`, campaignID, cpcCents)
	if err != nil {
		return false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ad_creative_daily_metrics (creative_id, date, clicks, spent_cents)
		VALUES ($1, current_date, 1, $2)
		ON CONFLICT (creative_id, date)
		DO UPDATE SET clicks = ad_creative_daily_metrics.clicks + 1,
		              spent_cents = ad_creative_daily_metrics.spent_cents + $2
	`, creativeID, cpcCents)
	if err != nil {
		return false, err
	}

	return billed, nil
}
