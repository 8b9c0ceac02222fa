package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/quizledger/internal/apperrors"
)

type ReferralRepo struct {
	DB DBTX
}

// Referred member id is the idempotency key: second insert for the same member does nothing
const createReferralCredit = `-- name: CreateReferralCredit
INSERT INTO referral_credits (referred_id, referrer_id, bonus)
VALUES ($1, $2, $3)
ON CONFLICT (referred_id) DO NOTHING
RETURNING referred_id
`

func (r *ReferralRepo) CreateCredit(ctx context.Context, referredID uuid.UUID, referrerID uuid.UUID, bonus int64) (bool, error) {
	rows, _ := r.DB.Query(ctx, createReferralCredit, referredID, referrerID, bonus)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])

	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation:
		return false, apperrors.ErrMemberNotFound
	default:
		return false, fmt.Errorf("db error: %w", err)
	}
}
