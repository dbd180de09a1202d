package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign statuses
const (
	CampaignStatusPendingReview = "pending_review"
	CampaignStatusActive        = "active"
	CampaignStatusRejected      = "rejected"
	CampaignStatusPaused        = "paused"
	CampaignStatusDepleted      = "depleted"
)

// Valid state transitions: from -> []to
//
// Review is one-directional: a rejected campaign stays rejected. Active
// campaigns may bounce between paused/depleted and back — depleted returns
// to active only after the budget is raised above spend.
var ValidCampaignTransitions = map[string][]string{
	CampaignStatusPendingReview: {CampaignStatusActive, CampaignStatusRejected},
	CampaignStatusActive:        {CampaignStatusPaused, CampaignStatusDepleted},
	CampaignStatusPaused:        {CampaignStatusActive},
	CampaignStatusDepleted:      {CampaignStatusActive},
	CampaignStatusRejected:      {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidCampaignTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

type AdCampaign struct {
	ID           uuid.UUID `json:"id"`
	AdvertiserID uuid.UUID `json:"advertiser_id"`
	Title        string    `json:"title"`
	Subjects     []string  `json:"subjects"` // targeting, e.g. ["math","physics"]
	BudgetCents  int64     `json:"budget_cents"`
	SpentCents   int64     `json:"spent_cents"`
	CPCCents     int64     `json:"cpc_cents"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RemainingCents is the unspent part of the budget, clamped at zero.
func (c *AdCampaign) RemainingCents() int64 {
	if c.SpentCents >= c.BudgetCents {
		return 0
	}
	return c.BudgetCents - c.SpentCents
}
