package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/quizledger/internal/apperrors"
	"github.com/nkiryanov/quizledger/internal/models"
	"github.com/nkiryanov/quizledger/internal/repository"
)

// Convert whole member wallet to USDT
// USDT received is rounded toward zero, so it never exceeds the value of points debited.
// Conversion that would yield zero USDT is rejected.
func (s *Service) ConvertPoints(ctx context.Context, memberID uuid.UUID) (models.Conversion, error) {
	var conversion models.Conversion

	err := s.inTx(ctx, func(ctx context.Context, st repository.Storage) error {
		member, err := lockMember(ctx, st, memberID)
		if err != nil {
			return err
		}

		if member.Wallet <= 0 {
			return apperrors.ErrNothingToConvert
		}

		conversion = models.Conversion{
			PointsConverted: member.Wallet,
			USDTReceived:    s.toUSDT(member.Wallet),
		}

		// Wallet is kept as is when it is worth less than smallest USDT unit
		if conversion.USDTReceived.IsZero() {
			return fmt.Errorf("%d points round to zero USDT: %w", member.Wallet, apperrors.ErrNothingToConvert)
		}

		_, err = st.Member().UpdateBalance(ctx, member.ID, models.BalanceDelta{
			Wallet: -conversion.PointsConverted,
			USDT:   conversion.USDTReceived,
		})
		if err != nil {
			return err
		}

		_, err = st.Entry().CreateEntry(ctx, models.Entry{
			MemberID: member.ID,
			Kind:     models.EntryConversion,
			Points:   -conversion.PointsConverted,
			USDT:     conversion.USDTReceived,
			Ref:      member.ID,
		})
		return err
	})
	if err != nil {
		return models.Conversion{}, err
	}

	s.logger.Info("Points converted",
		"member_id", memberID, "points", conversion.PointsConverted, "usdt", conversion.USDTReceived.String(),
	)

	return conversion, nil
}

func (s *Service) toUSDT(points int64) decimal.Decimal {
	return decimal.NewFromInt(points).Mul(s.cfg.PointsRate).Truncate(usdtPlaces)
}
