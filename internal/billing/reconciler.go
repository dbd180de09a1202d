package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/studyhub/adserver/internal/events"
	"github.com/studyhub/adserver/internal/models"
	"go.uber.org/zap"
)

// TransactionStore is the slice of the transaction repository the billing
// flows need. GetByID returns (nil, nil) when no transaction exists.
type TransactionStore interface {
	Create(ctx context.Context, t *models.AdTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AdTransaction, error)
	SetCheckout(ctx context.Context, id uuid.UUID, externalID, checkoutURL string) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
	CompleteAndCredit(ctx context.Context, id uuid.UUID, externalID string) (bool, error)
}

type Auditor interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

// Reconciler applies payment-provider webhook events to the ledger.
// It is invoked only after signature verification. Exactly-once crediting
// rests on CompleteAndCredit: the status flip and the balance credit happen
// in one database transaction, and a replayed event finds the transaction
// already completed and does nothing.
type Reconciler struct {
	transactions TransactionStore
	audit        Auditor
	publisher    events.Publisher
	log          *zap.Logger
}

func NewReconciler(transactions TransactionStore, audit Auditor, publisher events.Publisher, log *zap.Logger) *Reconciler {
	return &Reconciler{
		transactions: transactions,
		audit:        audit,
		publisher:    publisher,
		log:          log,
	}
}

// HandleEvent processes one verified webhook event. A nil return means the
// event is acknowledged (200); ErrInvalidEvent-wrapped errors are the
// caller's 400s; anything else is infrastructure failure (500) and the
// provider's redelivery is relied upon — idempotency makes that safe.
func (r *Reconciler) HandleEvent(ctx context.Context, evt *WebhookEvent) error {
	switch evt.Type {
	case EventBillingPaid:
		return r.handlePaid(ctx, evt)
	case EventBillingExpired:
		return r.handleExpired(ctx, evt)
	default:
		r.log.Debug("ignoring webhook event", zap.String("type", evt.Type))
		return nil
	}
}

func (r *Reconciler) handlePaid(ctx context.Context, evt *WebhookEvent) error {
	rawID := evt.TransactionID()
	if rawID == "" {
		return fmt.Errorf("%w: billing.paid without transaction id", ErrInvalidEvent)
	}
	txID, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("%w: bad transaction id %q", ErrInvalidEvent, rawID)
	}

	txn, err := r.transactions.GetByID(ctx, txID)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	if txn == nil {
		// Unknown transaction — likely a redelivery for a purged record.
		r.log.Warn("webhook for unknown transaction", zap.String("transaction_id", rawID))
		return nil
	}
	if txn.Status != models.TransactionStatusPending {
		// Replay of an already-finalized transaction is a no-op.
		r.log.Info("webhook replay ignored",
			zap.String("transaction_id", rawID),
			zap.String("status", txn.Status),
		)
		return nil
	}

	credited, err := r.transactions.CompleteAndCredit(ctx, txn.ID, evt.Data.ID)
	if err != nil {
		return fmt.Errorf("complete transaction: %w", err)
	}
	if !credited {
		// Lost the race against a concurrent delivery of the same event.
		return nil
	}

	_ = r.audit.Log(ctx, models.AuditLog{
		ActorType:  "webhook",
		Action:     "transaction_completed",
		EntityType: "ad_transaction",
		EntityID:   &txn.ID,
		Meta:       map[string]any{"amount_cents": txn.AmountCents, "external_id": evt.Data.ID},
	})
	_ = r.publisher.Publish(ctx, events.StreamBilling, events.Event{
		Type: events.EventTransactionCompleted,
		Payload: map[string]any{
			"transaction_id": txn.ID.String(),
			"advertiser_id":  txn.AdvertiserID.String(),
			"amount_cents":   txn.AmountCents,
		},
	})

	r.log.Info("transaction completed",
		zap.String("transaction_id", txn.ID.String()),
		zap.Int64("amount_cents", txn.AmountCents),
	)
	return nil
}

func (r *Reconciler) handleExpired(ctx context.Context, evt *WebhookEvent) error {
	rawID := evt.TransactionID()
	if rawID == "" {
		return fmt.Errorf("%w: billing.expired without transaction id", ErrInvalidEvent)
	}
	txID, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("%w: bad transaction id %q", ErrInvalidEvent, rawID)
	}

	// MarkFailed only touches pending rows, so an expired event arriving
	// after billing.paid cannot undo a completed transaction.
	if err := r.transactions.MarkFailed(ctx, txID); err != nil {
		return fmt.Errorf("fail transaction: %w", err)
	}
	return nil
}
