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
)

type EntryRepo struct {
	DB DBTX
}

const createEntry = `-- name: CreateEntry
INSERT INTO ledger_entries (id, created_at, member_id, kind, points, usdt, ref)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at, member_id, kind, points, usdt, ref
`

func (r *EntryRepo) CreateEntry(ctx context.Context, e models.Entry) (models.Entry, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createEntry, e.ID, e.CreatedAt, e.MemberID, e.Kind, e.Points, e.USDT, e.Ref)
	entry, err := pgx.CollectOneRow(rows, rowToEntry)

	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return entry, nil
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation:
		return entry, apperrors.ErrMemberNotFound
	default:
		return entry, fmt.Errorf("db error: %w", err)
	}
}

const listEntries = `-- name: ListEntries
SELECT id, created_at, member_id, kind, points, usdt, ref FROM ledger_entries
WHERE member_id = $1 AND (COALESCE(cardinality($2::text[]), 0) = 0 OR kind = ANY($2))
ORDER BY created_at DESC
`

func (r *EntryRepo) ListEntries(ctx context.Context, memberID uuid.UUID, kinds []string) ([]models.Entry, error) {
	rows, _ := r.DB.Query(ctx, listEntries, memberID, kinds)
	entries, err := pgx.CollectRows(rows, rowToEntry)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entries, nil
}

func rowToEntry(row pgx.CollectableRow) (models.Entry, error) {
	var e models.Entry
	err := row.Scan(&e.ID, &e.CreatedAt, &e.MemberID, &e.Kind, &e.Points, &e.USDT, &e.Ref)
	return e, err
}
