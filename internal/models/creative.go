package models

import (
	"time"

	"github.com/google/uuid"
)

type AdCreative struct {
	ID             uuid.UUID  `json:"id"`
	CampaignID     uuid.UUID  `json:"campaign_id"`
	ImageURL       *string    `json:"image_url,omitempty"`
	Headline       string     `json:"headline"`
	Description    *string    `json:"description,omitempty"`
	DestinationURL string     `json:"destination_url"`
	Impressions    int64      `json:"impressions"`
	Clicks         int64      `json:"clicks"`
	SpentCents     int64      `json:"spent_cents"`
	LastServedAt   *time.Time `json:"last_served_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// AdWithCampaign embeds the creative and the campaign fields ad slots need,
// avoiding N+1 lookups at render time.
type AdWithCampaign struct {
	AdCreative
	CampaignTitle  string `json:"campaign_title"`
	CampaignStatus string `json:"campaign_status"`
}
