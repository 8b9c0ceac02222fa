package postgres

import (
	"context"
	"fmt"

	"github.com/nkiryanov/quizledger/internal/repository"
)

type Storage struct {
	db DBTX
}

func NewStorage(db DBTX) repository.Storage {
	return &Storage{db: db}
}

func (s *Storage) Member() repository.MemberRepo {
	return &MemberRepo{DB: s.db}
}

func (s *Storage) Quiz() repository.QuizRepo {
	return &QuizRepo{DB: s.db}
}

func (s *Storage) Withdrawal() repository.WithdrawalRepo {
	return &WithdrawalRepo{DB: s.db}
}

func (s *Storage) Entry() repository.EntryRepo {
	return &EntryRepo{DB: s.db}
}

func (s *Storage) Referral() repository.ReferralRepo {
	return &ReferralRepo{DB: s.db}
}

func (s *Storage) Refresh() repository.RefreshTokenRepo {
	return &RefreshTokenRepo{DB: s.db}
}

// Begin transaction (or savepoint if storage is already in transaction) and run fn in it
func (s *Storage) InTx(ctx context.Context, fn func(repository.Storage) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db tx error: %w", err)
	}

	defer func() {
		switch err {
		case nil:
			err = tx.Commit(ctx)
		default:
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	err = fn(NewStorage(tx))

	return err
}
