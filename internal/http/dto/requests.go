package dto

type CreateCampaignRequest struct {
	Title       string   `json:"title"`
	Subjects    []string `json:"subjects,omitempty"`
	BudgetCents int64    `json:"budget_cents"`
	CPCCents    int64    `json:"cpc_cents,omitempty"`
}

type UpdateCampaignRequest struct {
	Title       string   `json:"title"`
	Subjects    []string `json:"subjects,omitempty"`
	BudgetCents int64    `json:"budget_cents"`
	CPCCents    int64    `json:"cpc_cents,omitempty"`
}

type CreateCreativeRequest struct {
	ImageURL       *string `json:"image_url,omitempty"`
	Headline       string  `json:"headline,omitempty"` // prefilled from the landing page when empty
	Description    *string `json:"description,omitempty"`
	DestinationURL string  `json:"destination_url"`
}

type CreateDepositRequest struct {
	AmountCents int64 `json:"amount_cents"`
}
