package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/studyhub/adserver/internal/events"
	"github.com/studyhub/adserver/internal/models"
	"go.uber.org/zap"
)

// fakeTransactionStore keeps transactions in memory and tracks advertiser
// balance credits the way the real repository's CompleteAndCredit does.
type fakeTransactionStore struct {
	transactions map[uuid.UUID]*models.AdTransaction
	balances     map[uuid.UUID]int64

	markFailedCalls []uuid.UUID
	creditCalls     int
	creditErr       error
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{
		transactions: make(map[uuid.UUID]*models.AdTransaction),
		balances:     make(map[uuid.UUID]int64),
	}
}

func (f *fakeTransactionStore) Create(_ context.Context, t *models.AdTransaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	f.transactions[t.ID] = &cp
	return nil
}

func (f *fakeTransactionStore) GetByID(_ context.Context, id uuid.UUID) (*models.AdTransaction, error) {
	txn, ok := f.transactions[id]
	if !ok {
		return nil, nil
	}
	cp := *txn
	return &cp, nil
}

func (f *fakeTransactionStore) SetCheckout(_ context.Context, id uuid.UUID, externalID, checkoutURL string) error {
	txn, ok := f.transactions[id]
	if !ok {
		return errors.New("not found")
	}
	txn.ExternalID = &externalID
	txn.CheckoutURL = &checkoutURL
	return nil
}

func (f *fakeTransactionStore) MarkFailed(_ context.Context, id uuid.UUID) error {
	f.markFailedCalls = append(f.markFailedCalls, id)
	txn, ok := f.transactions[id]
	if ok && txn.Status == models.TransactionStatusPending {
		txn.Status = models.TransactionStatusFailed
	}
	return nil
}

func (f *fakeTransactionStore) CompleteAndCredit(_ context.Context, id uuid.UUID, externalID string) (bool, error) {
	f.creditCalls++
	if f.creditErr != nil {
		return false, f.creditErr
	}
	txn, ok := f.transactions[id]
	if !ok || txn.Status != models.TransactionStatusPending {
		return false, nil
	}
	txn.Status = models.TransactionStatusCompleted
	txn.ExternalID = &externalID
	f.balances[txn.AdvertiserID] += txn.AmountCents
	return true, nil
}

type fakeAuditor struct {
	entries []models.AuditLog
}

func (f *fakeAuditor) Log(_ context.Context, entry models.AuditLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakePublisher struct {
	published []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, _ string, event events.Event) error {
	f.published = append(f.published, event)
	return nil
}

func paidEvent(txID string) *WebhookEvent {
	return &WebhookEvent{
		Type: EventBillingPaid,
		Data: WebhookData{
			ID:       "bill_ext_1",
			Status:   "paid",
			Metadata: map[string]string{"transaction_id": txID},
		},
	}
}

func TestReconciler_PaidCreditsOnce(t *testing.T) {
	store := newFakeTransactionStore()
	advertiserID := uuid.New()
	txn := &models.AdTransaction{
		AdvertiserID: advertiserID,
		AmountCents:  5000,
		Status:       models.TransactionStatusPending,
	}
	store.Create(context.Background(), txn)

	audit := &fakeAuditor{}
	pub := &fakePublisher{}
	r := NewReconciler(store, audit, pub, zap.NewNop())

	evt := paidEvent(txn.ID.String())

	// First delivery credits the balance.
	if err := r.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if store.balances[advertiserID] != 5000 {
		t.Fatalf("balance = %d, want 5000", store.balances[advertiserID])
	}
	got, _ := store.GetByID(context.Background(), txn.ID)
	if got.Status != models.TransactionStatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if len(pub.published) != 1 || pub.published[0].Type != events.EventTransactionCompleted {
		t.Fatalf("expected one transaction_completed event, got %v", pub.published)
	}
	if len(audit.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(audit.entries))
	}

	// Replays are acknowledged but must not credit again.
	for i := 0; i < 3; i++ {
		if err := r.HandleEvent(context.Background(), evt); err != nil {
			t.Fatalf("replay %d: %v", i, err)
		}
	}
	if store.balances[advertiserID] != 5000 {
		t.Fatalf("balance after replays = %d, want 5000", store.balances[advertiserID])
	}
	if len(pub.published) != 1 {
		t.Fatalf("replays published extra events: %d", len(pub.published))
	}
}

func TestReconciler_PaidInvalidTransactionID(t *testing.T) {
	store := newFakeTransactionStore()
	r := NewReconciler(store, &fakeAuditor{}, &fakePublisher{}, zap.NewNop())

	tests := []struct {
		name string
		evt  *WebhookEvent
	}{
		{"missing id", &WebhookEvent{Type: EventBillingPaid, Data: WebhookData{ID: "bill_1"}}},
		{"non-uuid id", paidEvent("not-a-uuid")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.HandleEvent(context.Background(), tt.evt)
			if !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("HandleEvent() error = %v, want ErrInvalidEvent", err)
			}
		})
	}
	if store.creditCalls != 0 {
		t.Errorf("invalid events must not reach CompleteAndCredit, got %d calls", store.creditCalls)
	}
}

func TestReconciler_PaidUnknownTransaction(t *testing.T) {
	store := newFakeTransactionStore()
	r := NewReconciler(store, &fakeAuditor{}, &fakePublisher{}, zap.NewNop())

	// A well-formed id that matches no record is acknowledged, not retried.
	if err := r.HandleEvent(context.Background(), paidEvent(uuid.New().String())); err != nil {
		t.Fatalf("HandleEvent() = %v, want nil", err)
	}
	if store.creditCalls != 0 {
		t.Errorf("unknown transaction must not reach CompleteAndCredit")
	}
}

func TestReconciler_PaidCreditError(t *testing.T) {
	store := newFakeTransactionStore()
	txn := &models.AdTransaction{
		AdvertiserID: uuid.New(),
		AmountCents:  1000,
		Status:       models.TransactionStatusPending,
	}
	store.Create(context.Background(), txn)
	store.creditErr = errors.New("connection reset")

	pub := &fakePublisher{}
	r := NewReconciler(store, &fakeAuditor{}, pub, zap.NewNop())

	err := r.HandleEvent(context.Background(), paidEvent(txn.ID.String()))
	if err == nil {
		t.Fatal("expected infrastructure error to propagate for redelivery")
	}
	if errors.Is(err, ErrInvalidEvent) {
		t.Fatal("infrastructure failure must not look like a client error")
	}
	if len(pub.published) != 0 {
		t.Fatal("no event should be published on credit failure")
	}
}

func TestReconciler_ExpiredFailsPendingOnly(t *testing.T) {
	store := newFakeTransactionStore()
	pending := &models.AdTransaction{AdvertiserID: uuid.New(), AmountCents: 1000, Status: models.TransactionStatusPending}
	completed := &models.AdTransaction{AdvertiserID: uuid.New(), AmountCents: 2000, Status: models.TransactionStatusCompleted}
	store.Create(context.Background(), pending)
	store.Create(context.Background(), completed)

	r := NewReconciler(store, &fakeAuditor{}, &fakePublisher{}, zap.NewNop())

	expired := func(id uuid.UUID) *WebhookEvent {
		return &WebhookEvent{
			Type: EventBillingExpired,
			Data: WebhookData{Metadata: map[string]string{"transaction_id": id.String()}},
		}
	}

	if err := r.HandleEvent(context.Background(), expired(pending.ID)); err != nil {
		t.Fatalf("expired pending: %v", err)
	}
	got, _ := store.GetByID(context.Background(), pending.ID)
	if got.Status != models.TransactionStatusFailed {
		t.Errorf("pending transaction status = %q, want failed", got.Status)
	}

	// A late expiry for an already-paid transaction must not undo it.
	if err := r.HandleEvent(context.Background(), expired(completed.ID)); err != nil {
		t.Fatalf("expired completed: %v", err)
	}
	got, _ = store.GetByID(context.Background(), completed.ID)
	if got.Status != models.TransactionStatusCompleted {
		t.Errorf("completed transaction status = %q, want completed", got.Status)
	}
}

func TestReconciler_UnknownEventTypeIgnored(t *testing.T) {
	store := newFakeTransactionStore()
	r := NewReconciler(store, &fakeAuditor{}, &fakePublisher{}, zap.NewNop())

	evt := &WebhookEvent{Type: EventUnknown}
	if err := r.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent() = %v, want nil", err)
	}
	if store.creditCalls != 0 || len(store.markFailedCalls) != 0 {
		t.Error("unknown event types must not touch the store")
	}
}
