package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/quizledger/internal/apperrors"
	"github.com/nkiryanov/quizledger/internal/logger"
	"github.com/nkiryanov/quizledger/internal/models"
	"github.com/nkiryanov/quizledger/internal/repository"
)

const (
	defaultOperationTimeout = 5 * time.Second

	// USDT is kept with 6 decimal places, conversion rounds toward zero to it
	usdtPlaces = 6

	// Amounts with larger exponent magnitude are rejected before any rescaling
	amountExpLimit = 18
)

type Config struct {
	// Points to USDT rate
	PointsRate decimal.Decimal

	// Minimal USDT amount member may withdraw
	MinWithdrawal decimal.Decimal

	// Points credited to referrer for every referred member
	ReferralBonus int64

	// Every operation is one transaction bounded by the timeout
	// If not set than default is used
	OperationTimeout time.Duration
}

// Ledger engine: the only place member balances are changed
//
// Every balance changing operation runs in one transaction and locks the member row first,
// so operations on the same member are applied one by one and never see stale balances.
type Service struct {
	cfg     Config
	storage repository.Storage
	logger  logger.Logger
}

func NewService(cfg Config, storage repository.Storage, l logger.Logger) (*Service, error) {
	switch {
	case storage == nil:
		return nil, errors.New("storage must not be nil")
	case !cfg.PointsRate.IsPositive():
		return nil, errors.New("points rate must be positive")
	case !cfg.MinWithdrawal.IsPositive():
		return nil, errors.New("min withdrawal must be positive")
	case cfg.ReferralBonus <= 0:
		return nil, errors.New("referral bonus must be positive")
	}

	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaultOperationTimeout
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Service{
		cfg:     cfg,
		storage: storage,
		logger:  l.WithGroup("ledger"),
	}, nil
}

// Run fn in transaction bounded by operation timeout
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, st repository.Storage) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	return s.storage.InTx(ctx, func(st repository.Storage) error {
		return fn(ctx, st)
	})
}

// Lock member row till the end of transaction
func lockMember(ctx context.Context, st repository.Storage, memberID uuid.UUID) (models.Member, error) {
	if memberID == uuid.Nil {
		return models.Member{}, apperrors.ErrUnauthorized
	}

	member, err := st.Member().GetMemberByID(ctx, memberID, true)
	if err != nil {
		return member, fmt.Errorf("can't lock member: %w", err)
	}
	return member, nil
}

func requireAdmin(ctx context.Context, st repository.Storage, actorID uuid.UUID) (models.Member, error) {
	if actorID == uuid.Nil {
		return models.Member{}, apperrors.ErrUnauthorized
	}

	actor, err := st.Member().GetMemberByID(ctx, actorID, false)
	switch {
	case errors.Is(err, apperrors.ErrMemberNotFound):
		return actor, apperrors.ErrUnauthorized
	case err != nil:
		return actor, err
	case !actor.IsAdmin():
		return actor, apperrors.ErrForbidden
	default:
		return actor, nil
	}
}

func (s *Service) GetBalance(ctx context.Context, memberID uuid.UUID) (models.Member, error) {
	if memberID == uuid.Nil {
		return models.Member{}, apperrors.ErrUnauthorized
	}
	return s.storage.Member().GetMemberByID(ctx, memberID, false)
}

// Member's balance history, newest first
func (s *Service) ListEntries(ctx context.Context, memberID uuid.UUID, kinds []string) ([]models.Entry, error) {
	if memberID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}
	return s.storage.Entry().ListEntries(ctx, memberID, kinds)
}
