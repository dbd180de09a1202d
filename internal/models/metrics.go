package models

import (
	"time"

	"github.com/google/uuid"
)

// Daily rollups are increment-only, keyed by (campaign|creative, date).
// Rows are upserted by the tracker with relative updates.

type AdDailyMetrics struct {
	CampaignID  uuid.UUID `json:"campaign_id"`
	Date        time.Time `json:"date"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	SpentCents  int64     `json:"spent_cents"`
}

type AdCreativeDailyMetrics struct {
	CreativeID  uuid.UUID `json:"creative_id"`
	Date        time.Time `json:"date"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	SpentCents  int64     `json:"spent_cents"`
}
