package events

import "context"

// Streams
const (
	StreamAds     = "events:ads"
	StreamBilling = "events:billing"
)

// Event types
const (
	EventAdImpression          = "ad_impression"
	EventAdClick               = "ad_click"
	EventCampaignStatusChanged = "campaign_status_changed"
	EventTransactionCompleted  = "transaction_completed"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
