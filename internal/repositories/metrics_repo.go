package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studyhub/adserver/internal/models"
)

type MetricsRepo struct {
	pool *pgxpool.Pool
}

func NewMetricsRepo(pool *pgxpool.Pool) *MetricsRepo {
	return &MetricsRepo{pool: pool}
}

func (r *MetricsRepo) CampaignDaily(ctx context.Context, campaignID uuid.UUID, from, to time.Time) ([]models.AdDailyMetrics, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT campaign_id, date, impressions, clicks, spent_cents
		FROM ad_daily_metrics
		WHERE campaign_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`, campaignID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []models.AdDailyMetrics
	for rows.Next() {
		var m models.AdDailyMetrics
		if err := rows.Scan(&m.CampaignID, &m.Date, &m.Impressions, &m.Clicks, &m.SpentCents); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

func (r *MetricsRepo) CreativeDaily(ctx context.Context, creativeID uuid.UUID, from, to time.Time) ([]models.AdCreativeDailyMetrics, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT creative_id, date, impressions, clicks, spent_cents
		FROM ad_creative_daily_metrics
		WHERE creative_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`, creativeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []models.AdCreativeDailyMetrics
	for rows.Next() {
		var m models.AdCreativeDailyMetrics
		if err := rows.Scan(&m.CreativeID, &m.Date, &m.Impressions, &m.Clicks, &m.SpentCents); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

// PruneOlderThan drops rollup rows past the retention horizon.
func (r *MetricsRepo) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ad_daily_metrics WHERE date < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	deleted := tag.RowsAffected()
	tag, err = r.pool.Exec(ctx, `DELETE FROM ad_creative_daily_metrics WHERE date < $1`, cutoff)
	if err != nil {
		return deleted, err
	}
	return deleted + tag.RowsAffected(), nil
}
