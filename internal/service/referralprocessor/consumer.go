package referralprocessor

import (
	"context"
	"sync"

	"github.com/nkiryanov/quizledger/internal/apperrors"
	"github.com/nkiryanov/quizledger/internal/logger"
	"github.com/nkiryanov/quizledger/internal/models"
)

type Consumer struct {
	countWorkers int
	referrals    referralService
	logger       logger.Logger
}

func (c *Consumer) Consume(ctx context.Context, in <-chan models.Member) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for range c.countWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.worker(ctx, in)
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		c.logger.Debug("Consumer stopped")
	}()

	return idleStopped
}

func (c *Consumer) worker(ctx context.Context, in <-chan models.Member) {
	for {
		select {
		case <-ctx.Done():
			return

		case m, ok := <-in:
			if !ok {
				c.logger.Debug("Consumer worker stopped, input channel closed")
				return
			}
			if m.PendingReferralCode == nil {
				continue
			}

			referrerID, err := c.referrals.CreditReferral(ctx, m.ID, *m.PendingReferralCode)
			switch {
			case err == nil:
				c.logger.Debug("Pending referral settled", "member_id", m.ID, "referrer_id", referrerID)
			case apperrors.KindOf(err).Retryable():
				c.logger.Error("Failed to credit referral", "member_id", m.ID, "error", err)
			default:
				c.logger.Info("Pending referral rejected", "member_id", m.ID, "error", err)
			}
		}
	}
}
