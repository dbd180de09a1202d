package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction statuses. Completed is terminal and immutable: a transaction
// moves pending -> completed at most once, which is what makes webhook
// redelivery safe.
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// AdTransaction is a deposit ledger entry against an advertiser profile.
// It is created at deposit-intent time (pending) and finalized only by the
// webhook reconciler.
type AdTransaction struct {
	ID           uuid.UUID  `json:"id"`
	AdvertiserID uuid.UUID  `json:"advertiser_id"`
	AmountCents  int64      `json:"amount_cents"`
	Status       string     `json:"status"`
	ExternalID   *string    `json:"external_id,omitempty"` // gateway billing id
	CheckoutURL  *string    `json:"checkout_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}
