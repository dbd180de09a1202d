package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type DepositResponse struct {
	TransactionID string `json:"transaction_id"`
	CheckoutURL   string `json:"checkout_url"`
	Status        string `json:"status"`
}

type BalanceResponse struct {
	BalanceCents int64 `json:"balance_cents"`
}

type WebhookAck struct {
	Received bool `json:"received"`
}
