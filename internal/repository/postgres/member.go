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

	"github.com/nkiryanov/quizledger/internal/apperrors"
	"github.com/nkiryanov/quizledger/internal/models"
	"github.com/nkiryanov/quizledger/internal/repository"
)

const referralCodeConstraint = "members_referral_code_key"

type MemberRepo struct {
	DB DBTX
}

const memberColumns = `id, created_at, username, password_hash, role, wallet, total_points,
	usdt_balance, referral_code, referrals_count, referred_by, pending_referral_code`

const createMember = `-- name: CreateMember
INSERT INTO members (id, username, password_hash, role, referral_code, pending_referral_code)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
RETURNING ` + memberColumns

func (r *MemberRepo) CreateMember(ctx context.Context, params repository.CreateMemberParams) (models.Member, error) {
	role := params.Role
	if role == "" {
		role = models.RoleMember
	}

	rows, _ := r.DB.Query(ctx, createMember,
		uuid.New(), params.Username, params.HashedPassword, role, params.ReferralCode, params.PendingReferralCode,
	)
	member, err := pgx.CollectOneRow(rows, rowToMember)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if pgErr.ConstraintName == referralCodeConstraint {
				return member, apperrors.ErrReferralCodeTaken
			}
			return member, apperrors.ErrMemberAlreadyExists
		}

		return member, fmt.Errorf("db error: %w", err)
	}

	return member, nil
}

const getMemberByID = `-- name: GetMemberByID
SELECT ` + memberColumns + ` FROM members
WHERE id = $1
`

func (r *MemberRepo) GetMemberByID(ctx context.Context, memberID uuid.UUID, lock bool) (models.Member, error) {
	query := getMemberByID
	if lock {
		query += "FOR UPDATE"
	}

	rows, _ := r.DB.Query(ctx, query, memberID)
	return collectMember(rows)
}

const getMemberByUsername = `-- name: GetMemberByUsername
SELECT ` + memberColumns + ` FROM members
WHERE username = $1
`

func (r *MemberRepo) GetMemberByUsername(ctx context.Context, username string) (models.Member, error) {
	rows, _ := r.DB.Query(ctx, getMemberByUsername, username)
	return collectMember(rows)
}

const getMemberByReferralCode = `-- name: GetMemberByReferralCode
SELECT ` + memberColumns + ` FROM members
WHERE referral_code = $1
`

func (r *MemberRepo) GetMemberByReferralCode(ctx context.Context, code string) (models.Member, error) {
	rows, _ := r.DB.Query(ctx, getMemberByReferralCode, code)
	return collectMember(rows)
}

const updateBalance = `-- name: UpdateBalance
UPDATE members
SET wallet = wallet + $2,
	total_points = total_points + $3,
	usdt_balance = usdt_balance + $4,
	referrals_count = referrals_count + $5
WHERE id = $1
RETURNING ` + memberColumns

// Deltas are added by database itself, so concurrent updates never lose each other
func (r *MemberRepo) UpdateBalance(ctx context.Context, memberID uuid.UUID, delta models.BalanceDelta) (models.Member, error) {
	if delta.TotalPoints < 0 {
		return models.Member{}, errors.New("total points must never decrease")
	}

	rows, _ := r.DB.Query(ctx, updateBalance, memberID, delta.Wallet, delta.TotalPoints, delta.USDT, delta.Referrals)
	member, err := pgx.CollectOneRow(rows, rowToMember)

	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return member, nil
	case errors.Is(err, pgx.ErrNoRows):
		return member, apperrors.ErrMemberNotFound
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation:
		return member, fmt.Errorf("balance update rejected by %s: %w", pgErr.ConstraintName, apperrors.ErrBalanceInsufficient)
	default:
		return member, fmt.Errorf("db error: %w", err)
	}
}

const setReferrer = `-- name: SetReferrer
UPDATE members
SET referred_by = $2, pending_referral_code = NULL
WHERE id = $1
`

func (r *MemberRepo) SetReferrer(ctx context.Context, memberID uuid.UUID, referrerID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, setReferrer, memberID, referrerID)

	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation:
		return apperrors.ErrSelfReferral
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation:
		return apperrors.ErrMemberNotFound
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrMemberNotFound
	default:
		return nil
	}
}

const clearPendingReferral = `-- name: ClearPendingReferral
UPDATE members
SET pending_referral_code = NULL
WHERE id = $1
`

func (r *MemberRepo) ClearPendingReferral(ctx context.Context, memberID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, clearPendingReferral, memberID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMemberNotFound
	}
	return nil
}

const listPendingReferrals = `-- name: ListPendingReferrals
SELECT ` + memberColumns + ` FROM members
WHERE pending_referral_code IS NOT NULL AND created_at < $1
ORDER BY created_at
LIMIT $2
`

func (r *MemberRepo) ListPendingReferrals(ctx context.Context, createdBefore time.Time, limit int) ([]models.Member, error) {
	rows, _ := r.DB.Query(ctx, listPendingReferrals, createdBefore, limit)
	members, err := pgx.CollectRows(rows, rowToMember)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return members, nil
}

func collectMember(rows pgx.Rows) (models.Member, error) {
	member, err := pgx.CollectOneRow(rows, rowToMember)

	switch {
	case err == nil:
		return member, nil
	case errors.Is(err, pgx.ErrNoRows):
		return member, apperrors.ErrMemberNotFound
	default:
		return member, fmt.Errorf("db error: %w", err)
	}
}

func rowToMember(row pgx.CollectableRow) (models.Member, error) {
	var m models.Member
	err := row.Scan(
		&m.ID, &m.CreatedAt, &m.Username, &m.HashedPassword, &m.Role, &m.Wallet, &m.TotalPoints,
		&m.USDTBalance, &m.ReferralCode, &m.ReferralsCount, &m.ReferredBy, &m.PendingReferralCode,
	)
	return m, err
}
