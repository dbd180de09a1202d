package models

import (
	"time"

	"github.com/google/uuid"
)

// AdvertiserProfile is 1:1 with a platform user and owns the prepaid
// balance. It is created lazily on the user's first deposit; the balance
// is mutated only by the payment reconciler, never by user-facing code.
type AdvertiserProfile struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	BalanceCents int64     `json:"balance_cents"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
