package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/quizledger/internal/apperrors"
	"github.com/nkiryanov/quizledger/internal/models"
	"github.com/nkiryanov/quizledger/internal/repository"
)

type WithdrawalRepo struct {
	DB DBTX
}

const withdrawalColumns = `id, member_id, amount, payment_info, status, created_at, processed_at`

const createWithdrawal = `-- name: CreateWithdrawal
INSERT INTO withdrawals (id, member_id, amount, payment_info, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + withdrawalColumns

// Create withdrawal in pending status
func (r *WithdrawalRepo) CreateWithdrawal(ctx context.Context, memberID uuid.UUID, amount decimal.Decimal, paymentInfo string) (models.Withdrawal, error) {
	rows, _ := r.DB.Query(ctx, createWithdrawal, uuid.New(), memberID, amount, paymentInfo, models.WithdrawalPending, time.Now())
	w, err := pgx.CollectOneRow(rows, rowToWithdrawal)

	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return w, nil
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation:
		return w, apperrors.ErrMemberNotFound
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation:
		return w, apperrors.ErrAmountInvalid
	default:
		return w, fmt.Errorf("db error: %w", err)
	}
}

const getWithdrawal = `-- name: GetWithdrawal
SELECT ` + withdrawalColumns + ` FROM withdrawals
WHERE id = $1
`

func (r *WithdrawalRepo) GetWithdrawal(ctx context.Context, withdrawalID uuid.UUID, lock bool) (models.Withdrawal, error) {
	query := getWithdrawal
	if lock {
		query += "FOR UPDATE"
	}

	rows, _ := r.DB.Query(ctx, query, withdrawalID)
	return collectWithdrawal(rows)
}

const setWithdrawalStatus = `-- name: SetWithdrawalStatus
UPDATE withdrawals
SET status = $2, processed_at = $3
WHERE id = $1
RETURNING ` + withdrawalColumns

func (r *WithdrawalRepo) SetStatus(ctx context.Context, withdrawalID uuid.UUID, status string) (models.Withdrawal, error) {
	rows, _ := r.DB.Query(ctx, setWithdrawalStatus, withdrawalID, status, time.Now())
	return collectWithdrawal(rows)
}

const listWithdrawals = `-- name: ListWithdrawals
SELECT ` + withdrawalColumns + ` FROM withdrawals
WHERE ($1::uuid IS NULL OR member_id = $1)
	AND (COALESCE(cardinality($2::text[]), 0) = 0 OR status = ANY($2))
ORDER BY created_at DESC
LIMIT NULLIF($3, 0)
`

func (r *WithdrawalRepo) ListWithdrawals(ctx context.Context, opts repository.ListWithdrawalsOpts) ([]models.Withdrawal, error) {
	rows, _ := r.DB.Query(ctx, listWithdrawals, opts.MemberID, opts.Statuses, opts.Limit)
	withdrawals, err := pgx.CollectRows(rows, rowToWithdrawal)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return withdrawals, nil
}

func collectWithdrawal(rows pgx.Rows) (models.Withdrawal, error) {
	w, err := pgx.CollectOneRow(rows, rowToWithdrawal)

	switch {
	case err == nil:
		return w, nil
	case errors.Is(err, pgx.ErrNoRows):
		return w, apperrors.ErrWithdrawalNotFound
	default:
		return w, fmt.Errorf("db error: %w", err)
	}
}

func rowToWithdrawal(row pgx.CollectableRow) (models.Withdrawal, error) {
	var w models.Withdrawal
	err := row.Scan(&w.ID, &w.MemberID, &w.Amount, &w.PaymentInfo, &w.Status, &w.CreatedAt, &w.ProcessedAt)
	return w, err
}
