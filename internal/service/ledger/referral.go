package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/quizledger/internal/apperrors"
	"github.com/nkiryanov/quizledger/internal/models"
	"github.com/nkiryanov/quizledger/internal/repository"
)

// Link new member to the owner of referral code and credit the owner with referral bonus
//
// Only the referral code the member supplied at signup (still pending) may be credited,
// so established members can't refer each other afterwards.
// Returns referrer id, or uuid.Nil if code is empty or unknown: such codes are ignored silently.
// Credit is keyed by the new member id, so the call may be safely retried: the bonus is credited once.
// Pending referral code of the member is settled by any outcome but a system failure.
func (s *Service) CreditReferral(ctx context.Context, newMemberID uuid.UUID, code string) (uuid.UUID, error) {
	code = strings.TrimSpace(code)
	if newMemberID == uuid.Nil {
		return uuid.Nil, apperrors.ErrUnauthorized
	}
	if code == "" {
		return uuid.Nil, nil
	}

	var (
		referrerID uuid.UUID
		credited   bool
		rejectErr  error // committed with pending code cleared, but returned to caller
	)

	err := s.inTx(ctx, func(ctx context.Context, st repository.Storage) error {
		member, err := lockMember(ctx, st, newMemberID)
		if err != nil {
			return err
		}

		pending := member.PendingReferralCode != nil && strings.TrimSpace(*member.PendingReferralCode) == code
		if !pending && member.ReferredBy == nil {
			return apperrors.ErrReferralNotPending
		}

		referrer, err := st.Member().GetMemberByReferralCode(ctx, code)
		switch {
		case errors.Is(err, apperrors.ErrMemberNotFound):
			s.logger.Info("Unknown referral code ignored", "member_id", member.ID, "code", code)
			return st.Member().ClearPendingReferral(ctx, member.ID)
		case err != nil:
			return err
		}

		switch {
		case referrer.ID == member.ID:
			rejectErr = apperrors.ErrSelfReferral
			return st.Member().ClearPendingReferral(ctx, member.ID)

		case member.ReferredBy != nil && *member.ReferredBy == referrer.ID:
			referrerID = referrer.ID
			return st.Member().ClearPendingReferral(ctx, member.ID)

		case member.ReferredBy != nil:
			rejectErr = apperrors.ErrAlreadyReferred
			return st.Member().ClearPendingReferral(ctx, member.ID)
		}

		created, err := st.Referral().CreateCredit(ctx, member.ID, referrer.ID, s.cfg.ReferralBonus)
		if err != nil {
			return err
		}

		if err := st.Member().SetReferrer(ctx, member.ID, referrer.ID); err != nil {
			return err
		}
		referrerID = referrer.ID

		if !created {
			return nil
		}

		_, err = st.Member().UpdateBalance(ctx, referrer.ID, models.BalanceDelta{
			Wallet:      s.cfg.ReferralBonus,
			TotalPoints: s.cfg.ReferralBonus,
			Referrals:   1,
		})
		if err != nil {
			return err
		}

		_, err = st.Entry().CreateEntry(ctx, models.Entry{
			MemberID: referrer.ID,
			Kind:     models.EntryReferralBonus,
			Points:   s.cfg.ReferralBonus,
			Ref:      member.ID,
		})
		if err != nil {
			return err
		}

		credited = true
		return nil
	})

	switch {
	case err != nil:
		return uuid.Nil, err
	case rejectErr != nil:
		s.logger.Info("Referral rejected", "member_id", newMemberID, "error", rejectErr)
		return uuid.Nil, rejectErr
	}

	if credited {
		s.logger.Info("Referral credited", "member_id", newMemberID, "referrer_id", referrerID, "bonus", s.cfg.ReferralBonus)
	}

	return referrerID, nil
}

// Members whose referral code supplied at signup is not settled yet
func (s *Service) ListPendingReferrals(ctx context.Context, createdBefore time.Time, limit int) ([]models.Member, error) {
	return s.storage.Member().ListPendingReferrals(ctx, createdBefore, limit)
}
