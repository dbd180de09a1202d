package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studyhub/adserver/internal/models"
)

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

func (r *TransactionRepo) Create(ctx context.Context, t *models.AdTransaction) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO ad_transactions (advertiser_id, amount_cents, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, t.AdvertiserID, t.AmountCents, t.Status).Scan(&t.ID, &t.CreatedAt)
}

// GetByID returns (nil, nil) when no transaction exists.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AdTransaction, error) {
	var t models.AdTransaction
	err := r.pool.QueryRow(ctx, `
		SELECT id, advertiser_id, amount_cents, status, external_id, checkout_url, created_at, completed_at
		FROM ad_transactions WHERE id = $1
	`, id).Scan(&t.ID, &t.AdvertiserID, &t.AmountCents, &t.Status,
		&t.ExternalID, &t.CheckoutURL, &t.CreatedAt, &t.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepo) SetCheckout(ctx context.Context, id uuid.UUID, externalID, checkoutURL string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ad_transactions SET external_id = $1, checkout_url = $2
		WHERE id = $3 AND status = 'pending'
	`, externalID, checkoutURL, id)
	return err
}

// MarkFailed fails a transaction only while it is still pending; completed
// transactions are immutable.
func (r *TransactionRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ad_transactions SET status = 'failed'
		WHERE id = $1 AND status = 'pending'
	`, id)
	return err
}

// CompleteAndCredit flips the transaction to completed and credits the
// advertiser balance in a single database transaction. The guarded UPDATE
// makes the whole operation idempotent: a replayed webhook (or a concurrent
// delivery) matches zero rows and credits nothing. Either both mutations
// commit or neither does.
func (r *TransactionRepo) CompleteAndCredit(ctx context.Context, id uuid.UUID, externalID string) (credited bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var advertiserID uuid.UUID
	var amountCents int64
	err = tx.QueryRow(ctx, `
		UPDATE ad_transactions
		SET status = 'completed', external_id = $1, completed_at = now()
		WHERE id = $2 AND status = 'pending'
		RETURNING advertiser_id, amount_cents
	`, externalID, id).Scan(&advertiserID, &amountCents)
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
		return false, nil
	}
	if err != nil {
		return false, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE advertiser_profiles
		SET balance_cents = balance_cents + $1, updated_at = now()
		WHERE id = $2
	`, amountCents, advertiserID)
	if err != nil {
		return false, err
	}

	return true, nil
}

// ExpireStalePending fails pending transactions older than maxAge. Run by
// the worker so an unpaid checkout does not sit pending forever.
func (r *TransactionRepo) ExpireStalePending(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ad_transactions SET status = 'failed'
		WHERE status = 'pending' AND created_at < now() - $1::interval
	`, maxAge.String())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *TransactionRepo) ListByAdvertiser(ctx context.Context, advertiserID uuid.UUID, limit, offset int) ([]models.AdTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, advertiser_id, amount_cents, status, external_id, checkout_url, created_at, completed_at
		FROM ad_transactions WHERE advertiser_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, advertiserID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.AdTransaction
	for rows.Next() {
		var t models.AdTransaction
		if err := rows.Scan(&t.ID, &t.AdvertiserID, &t.AmountCents, &t.Status,
			&t.ExternalID, &t.CheckoutURL, &t.CreatedAt, &t.CompletedAt); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, nil
}
