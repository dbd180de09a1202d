package billing

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Known webhook event types. Anything else parses as EventUnknown and is
// acknowledged without processing, so the provider does not keep
// redelivering event types we do not care about.
const (
	EventBillingPaid    = "billing.paid"
	EventBillingExpired = "billing.expired"
	EventUnknown        = "unknown"
)

var (
	ErrInvalidEvent  = errors.New("invalid webhook event")
	ErrMalformedBody = errors.New("malformed webhook body")
)

// WebhookEvent is the provider's envelope. Metadata carries our own
// transaction id, set when the billing was created.
type WebhookEvent struct {
	Type string      `json:"type"`
	Data WebhookData `json:"data"`
}

type WebhookData struct {
	ID       string            `json:"id"` // gateway billing id
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

// TransactionID extracts our transaction id from the event metadata.
func (e *WebhookEvent) TransactionID() string {
	if e.Data.Metadata == nil {
		return ""
	}
	return e.Data.Metadata["transaction_id"]
}

// ParseEvent decodes the raw webhook body. Event types we do not recognize
// are normalized to EventUnknown rather than rejected.
func ParseEvent(raw []byte) (*WebhookEvent, error) {
	var evt WebhookEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if evt.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedBody)
	}
	switch evt.Type {
	case EventBillingPaid, EventBillingExpired:
	default:
		evt.Type = EventUnknown
	}
	return &evt, nil
}
