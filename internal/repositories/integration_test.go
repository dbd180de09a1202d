//go:build integration

package repositories

import (
	"context"
	"math"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studyhub/adserver/internal/db"
	"github.com/studyhub/adserver/internal/models"
	"go.uber.org/zap"
)

// These tests exercise the SQL that unit tests cannot: the guarded debit,
// the clamped remainder, and the credit transaction. Run with
//
//	TEST_POSTGRES_DSN=postgres://... go test -tags integration ./internal/repositories
//
// against a disposable database; migrations are applied on first run.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := db.NewPostgresPool(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.RunMigrations(ctx, pool, "../../migrations", zap.NewNop()); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return pool
}

func seedCampaign(t *testing.T, pool *pgxpool.Pool, budgetCents, cpcCents int64) (*models.AdCampaign, *models.AdCreative) {
	t.Helper()
	ctx := context.Background()

	profile, err := NewAdvertiserRepo(pool).UpsertByUserID(ctx, uuid.New())
	if err != nil {
		t.Fatalf("seed advertiser: %v", err)
	}

	campaign := &models.AdCampaign{
		AdvertiserID: profile.ID,
		Title:        "integration campaign",
		Subjects:     []string{"math"},
		BudgetCents:  budgetCents,
		CPCCents:     cpcCents,
		Status:       models.CampaignStatusActive,
	}
	if err := NewCampaignRepo(pool).Create(ctx, campaign); err != nil {
		t.Fatalf("seed campaign: %v", err)
	}

	creative := &models.AdCreative{
		CampaignID:     campaign.ID,
		Headline:       "integration creative",
		DestinationURL: "https://example.com/landing",
	}
	if err := NewCreativeRepo(pool).Create(ctx, creative); err != nil {
		t.Fatalf("seed creative: %v", err)
	}
	return campaign, creative
}

func TestRecordClick_ConcurrentClicksDepleteExactly(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	campaign, creative := seedCampaign(t, pool, 1000, 100)

	tracker := NewTrackerRepo(pool)

	var wg sync.WaitGroup
	billedCh := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			billed, err := tracker.RecordClick(ctx, creative.ID, campaign.ID)
			if err != nil {
				t.Errorf("RecordClick: %v", err)
				return
			}
			billedCh <- billed
		}()
	}
	wg.Wait()
	close(billedCh)

	billedCount := 0
	for b := range billedCh {
		if b {
			billedCount++
		}
	}
	if billedCount != 10 {
		t.Errorf("billed %d of 10 concurrent clicks, want all 10", billedCount)
	}

	got, err := NewCampaignRepo(pool).GetByID(ctx, campaign.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SpentCents != 1000 {
		t.Errorf("spent = %d, want exactly 1000 (no lost updates)", got.SpentCents)
	}
	if got.Status != models.CampaignStatusDepleted {
		t.Errorf("status = %q, want depleted", got.Status)
	}

	// The eleventh click is counted but not billed.
	billed, err := tracker.RecordClick(ctx, creative.ID, campaign.ID)
	if err != nil {
		t.Fatal(err)
	}
	if billed {
		t.Error("click against a depleted campaign was billed")
	}
	got, _ = NewCampaignRepo(pool).GetByID(ctx, campaign.ID)
	if got.SpentCents != 1000 {
		t.Errorf("spent after extra click = %d, want 1000", got.SpentCents)
	}
}

func TestRecordClick_ClampsFinalDebitToRemainder(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	// Budget is not a cpc multiple: the second click must pay out the
	// 50-cent remainder and deplete the campaign, not serve free clicks.
	campaign, creative := seedCampaign(t, pool, 150, 100)
	tracker := NewTrackerRepo(pool)

	billed, err := tracker.RecordClick(ctx, creative.ID, campaign.ID)
	if err != nil || !billed {
		t.Fatalf("first click billed=%v err=%v, want billed", billed, err)
	}

	billed, err = tracker.RecordClick(ctx, creative.ID, campaign.ID)
	if err != nil || !billed {
		t.Fatalf("remainder click billed=%v err=%v, want billed", billed, err)
	}

	got, err := NewCampaignRepo(pool).GetByID(ctx, campaign.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SpentCents != 150 {
		t.Errorf("spent = %d, want 150 (clamped at budget)", got.SpentCents)
	}
	if got.Status != models.CampaignStatusDepleted {
		t.Errorf("status = %q, want depleted", got.Status)
	}

	// Depleted campaigns leave the selection pool.
	ads, err := NewCreativeRepo(pool).SelectEligible(ctx, "math", 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, ad := range ads {
		if ad.CampaignID == campaign.ID {
			t.Error("depleted campaign still eligible for selection")
		}
	}

	billed, err = tracker.RecordClick(ctx, creative.ID, campaign.ID)
	if err != nil {
		t.Fatal(err)
	}
	if billed {
		t.Error("click after depletion was billed")
	}
}

func TestCompleteAndCredit_ReplayCreditsOnce(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	profile, err := NewAdvertiserRepo(pool).UpsertByUserID(ctx, uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	txns := NewTransactionRepo(pool)
	txn := &models.AdTransaction{
		AdvertiserID: profile.ID,
		AmountCents:  5000,
		Status:       models.TransactionStatusPending,
	}
	if err := txns.Create(ctx, txn); err != nil {
		t.Fatal(err)
	}

	credited, err := txns.CompleteAndCredit(ctx, txn.ID, "bill_ext_1")
	if err != nil {
		t.Fatal(err)
	}
	if !credited {
		t.Fatal("first delivery did not credit")
	}

	// Redelivery matches zero rows and credits nothing.
	credited, err = txns.CompleteAndCredit(ctx, txn.ID, "bill_ext_1")
	if err != nil {
		t.Fatal(err)
	}
	if credited {
		t.Error("replay credited a second time")
	}

	after, err := NewAdvertiserRepo(pool).GetByID(ctx, profile.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.BalanceCents != 5000 {
		t.Errorf("balance = %d, want 5000 (credited exactly once)", after.BalanceCents)
	}
	got, _ := txns.GetByID(ctx, txn.ID)
	if got.Status != models.TransactionStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
}

func TestCompleteAndCredit_RollsBackWhenCreditFails(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	profile, err := NewAdvertiserRepo(pool).UpsertByUserID(ctx, uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	// Force the balance credit to fail after the status flip succeeds:
	// adding to a maxed-out bigint overflows inside the same transaction.
	if _, err := pool.Exec(ctx,
		`UPDATE advertiser_profiles SET balance_cents = $1 WHERE id = $2`,
		int64(math.MaxInt64), profile.ID); err != nil {
		t.Fatal(err)
	}

	txns := NewTransactionRepo(pool)
	txn := &models.AdTransaction{
		AdvertiserID: profile.ID,
		AmountCents:  5000,
		Status:       models.TransactionStatusPending,
	}
	if err := txns.Create(ctx, txn); err != nil {
		t.Fatal(err)
	}

	credited, err := txns.CompleteAndCredit(ctx, txn.ID, "bill_ext_2")
	if err == nil {
		t.Fatal("expected the overflowing credit to fail")
	}
	if credited {
		t.Error("credited=true on a failed transaction")
	}

	// Both mutations rolled back: still pending, balance untouched.
	got, err := txns.GetByID(ctx, txn.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.TransactionStatusPending {
		t.Errorf("status = %q, want pending after rollback", got.Status)
	}
	after, _ := NewAdvertiserRepo(pool).GetByID(ctx, profile.ID)
	if after.BalanceCents != int64(math.MaxInt64) {
		t.Errorf("balance changed on a rolled-back credit: %d", after.BalanceCents)
	}
}
