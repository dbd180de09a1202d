package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/studyhub/adserver/internal/models"
	"go.uber.org/zap"
)

type AdvertiserStore interface {
	UpsertByUserID(ctx context.Context, userID uuid.UUID) (*models.AdvertiserProfile, error)
}

type Gateway interface {
	CreateBilling(ctx context.Context, req CreateBillingRequest) (*Billing, error)
}

// DepositService starts deposits: it lazily creates the advertiser profile,
// records a pending transaction, and asks the gateway for a hosted checkout
// URL. The transaction is finalized later by the Reconciler, never here.
type DepositService struct {
	advertisers  AdvertiserStore
	transactions TransactionStore
	gateway      Gateway
	audit        Auditor
	currency     string
	log          *zap.Logger
}

func NewDepositService(
	advertisers AdvertiserStore,
	transactions TransactionStore,
	gateway Gateway,
	audit Auditor,
	currency string,
	log *zap.Logger,
) *DepositService {
	if currency == "" {
		currency = "USD"
	}
	return &DepositService{
		advertisers:  advertisers,
		transactions: transactions,
		gateway:      gateway,
		audit:        audit,
		currency:     currency,
		log:          log,
	}
}

func (s *DepositService) CreateDeposit(ctx context.Context, userID uuid.UUID, amountCents int64) (*models.AdTransaction, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("deposit amount must be positive")
	}

	profile, err := s.advertisers.UpsertByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load advertiser profile: %w", err)
	}

	txn := &models.AdTransaction{
		AdvertiserID: profile.ID,
		AmountCents:  amountCents,
		Status:       models.TransactionStatusPending,
	}
	if err := s.transactions.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	billing, err := s.gateway.CreateBilling(ctx, CreateBillingRequest{
		AmountCents: amountCents,
		Currency:    s.currency,
		Description: "StudyHub ad balance deposit",
		Metadata:    map[string]string{"transaction_id": txn.ID.String()},
	})
	if err != nil {
		// A gateway failure (including timeout) must not leave the
		// transaction pending indefinitely.
		if ferr := s.transactions.MarkFailed(ctx, txn.ID); ferr != nil {
			s.log.Error("failed to mark transaction failed",
				zap.String("transaction_id", txn.ID.String()), zap.Error(ferr))
		}
		txn.Status = models.TransactionStatusFailed
		return nil, fmt.Errorf("create billing: %w", err)
	}

	if err := s.transactions.SetCheckout(ctx, txn.ID, billing.ID, billing.CheckoutURL); err != nil {
		return nil, fmt.Errorf("store checkout: %w", err)
	}
	txn.ExternalID = &billing.ID
	txn.CheckoutURL = &billing.CheckoutURL

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &userID,
		ActorType:   "user",
		Action:      "deposit_created",
		EntityType:  "ad_transaction",
		EntityID:    &txn.ID,
		Meta:        map[string]any{"amount_cents": amountCents},
	})

	s.log.Info("deposit created",
		zap.String("transaction_id", txn.ID.String()),
		zap.Int64("amount_cents", amountCents),
	)
	return txn, nil
}
