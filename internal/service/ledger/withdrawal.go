package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/quizledger/internal/apperrors"
	"github.com/nkiryanov/quizledger/internal/models"
	"github.com/nkiryanov/quizledger/internal/repository"
)

// Request USDT withdrawal
// Amount is debited from member balance right away and restored if the withdrawal is rejected,
// so pending withdrawals of a member never exceed the balance.
func (s *Service) RequestWithdrawal(ctx context.Context, memberID uuid.UUID, amount decimal.Decimal, paymentInfo string) (models.Withdrawal, error) {
	paymentInfo = strings.TrimSpace(paymentInfo)

	switch {
	case memberID == uuid.Nil:
		return models.Withdrawal{}, apperrors.ErrUnauthorized
	case paymentInfo == "":
		return models.Withdrawal{}, apperrors.ErrPaymentInfoEmpty
	case !amount.IsPositive():
		return models.Withdrawal{}, apperrors.ErrAmountInvalid
	case amount.Exponent() > amountExpLimit || amount.Exponent() < -amountExpLimit:
		return models.Withdrawal{}, apperrors.ErrAmountOutOfRange
	case !amount.Equal(amount.Truncate(usdtPlaces)):
		return models.Withdrawal{}, apperrors.ErrAmountPrecision
	case amount.LessThan(s.cfg.MinWithdrawal):
		return models.Withdrawal{}, fmt.Errorf("minimum is %s: %w", s.cfg.MinWithdrawal, apperrors.ErrWithdrawalBelowMinimum)
	}

	var withdrawal models.Withdrawal

	err := s.inTx(ctx, func(ctx context.Context, st repository.Storage) error {
		member, err := lockMember(ctx, st, memberID)
		if err != nil {
			return err
		}

		if member.USDTBalance.LessThan(amount) {
			return fmt.Errorf("balance %s, requested %s: %w", member.USDTBalance, amount, apperrors.ErrBalanceInsufficient)
		}

		_, err = st.Member().UpdateBalance(ctx, member.ID, models.BalanceDelta{USDT: amount.Neg()})
		if err != nil {
			return err
		}

		withdrawal, err = st.Withdrawal().CreateWithdrawal(ctx, member.ID, amount, paymentInfo)
		if err != nil {
			return err
		}

		_, err = st.Entry().CreateEntry(ctx, models.Entry{
			MemberID: member.ID,
			Kind:     models.EntryWithdrawalHold,
			USDT:     amount.Neg(),
			Ref:      withdrawal.ID,
		})
		return err
	})
	if err != nil {
		return models.Withdrawal{}, err
	}

	s.logger.Info("Withdrawal requested", "member_id", memberID, "withdrawal_id", withdrawal.ID, "amount", amount.String())
	return withdrawal, nil
}

// Approve pending withdrawal. Admin only
// Amount was debited on request, so approval changes status only.
// Approving approved withdrawal is a no-op.
func (s *Service) ApproveWithdrawal(ctx context.Context, actorID uuid.UUID, withdrawalID uuid.UUID) (models.Withdrawal, error) {
	w, err := s.processWithdrawal(ctx, actorID, withdrawalID, models.WithdrawalApproved, func(context.Context, repository.Storage, models.Withdrawal) error {
		return nil
	})
	if err != nil {
		return w, err
	}

	s.logger.Info("Withdrawal approved", "withdrawal_id", w.ID, "admin_id", actorID)
	return w, nil
}

// Reject pending withdrawal and restore reserved amount to member balance. Admin only
// Rejecting rejected withdrawal is a no-op.
func (s *Service) RejectWithdrawal(ctx context.Context, actorID uuid.UUID, withdrawalID uuid.UUID) (models.Withdrawal, error) {
	w, err := s.processWithdrawal(ctx, actorID, withdrawalID, models.WithdrawalRejected, func(ctx context.Context, st repository.Storage, w models.Withdrawal) error {
		_, err := st.Member().UpdateBalance(ctx, w.MemberID, models.BalanceDelta{USDT: w.Amount})
		if err != nil {
			return err
		}

		_, err = st.Entry().CreateEntry(ctx, models.Entry{
			MemberID: w.MemberID,
			Kind:     models.EntryWithdrawalRelease,
			USDT:     w.Amount,
			Ref:      w.ID,
		})
		return err
	})
	if err != nil {
		return w, err
	}

	s.logger.Info("Withdrawal rejected", "withdrawal_id", w.ID, "admin_id", actorID)
	return w, nil
}

// Move pending withdrawal to the status and apply balance effect of the transition
// Member row is locked before the withdrawal row like in any other operation on the member
func (s *Service) processWithdrawal(
	ctx context.Context,
	actorID uuid.UUID,
	withdrawalID uuid.UUID,
	status string,
	apply func(context.Context, repository.Storage, models.Withdrawal) error,
) (models.Withdrawal, error) {
	var withdrawal models.Withdrawal

	err := s.inTx(ctx, func(ctx context.Context, st repository.Storage) error {
		if _, err := requireAdmin(ctx, st, actorID); err != nil {
			return err
		}

		w, err := st.Withdrawal().GetWithdrawal(ctx, withdrawalID, false)
		if err != nil {
			return err
		}

		if _, err := lockMember(ctx, st, w.MemberID); err != nil {
			return err
		}

		w, err = st.Withdrawal().GetWithdrawal(ctx, withdrawalID, true)
		if err != nil {
			return err
		}

		switch w.Status {
		case status:
			withdrawal = w
			return nil
		case models.WithdrawalPending:
		default:
			return fmt.Errorf("withdrawal is %s: %w", w.Status, apperrors.ErrWithdrawalProcessed)
		}

		if err := apply(ctx, st, w); err != nil {
			return err
		}

		withdrawal, err = st.Withdrawal().SetStatus(ctx, w.ID, status)
		return err
	})

	return withdrawal, err
}

// Withdrawals of the member, newest first
func (s *Service) ListWithdrawals(ctx context.Context, memberID uuid.UUID) ([]models.Withdrawal, error) {
	if memberID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}
	return s.storage.Withdrawal().ListWithdrawals(ctx, repository.ListWithdrawalsOpts{MemberID: &memberID})
}

// Withdrawals of all members filtered by statuses. Admin only
func (s *Service) ListAllWithdrawals(ctx context.Context, actorID uuid.UUID, statuses []string) ([]models.Withdrawal, error) {
	if _, err := requireAdmin(ctx, s.storage, actorID); err != nil {
		return nil, err
	}
	return s.storage.Withdrawal().ListWithdrawals(ctx, repository.ListWithdrawalsOpts{Statuses: statuses})
}
