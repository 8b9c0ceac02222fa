package referralprocessor

import (
	"context"
	"time"

	"github.com/nkiryanov/quizledger/internal/logger"
	"github.com/nkiryanov/quizledger/internal/models"
)

type Producer struct {
	interval  time.Duration
	batchSize int
	referrals referralService
	logger    logger.Logger
}

func (p *Producer) Produce(ctx context.Context, out chan<- models.Member) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting producer", "interval", p.interval, "batch_size", p.batchSize)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("Producer stopped by context")
				return

			case <-ticker.C:
				// Fresh members are still credited by registration itself
				members, err := p.referrals.ListPendingReferrals(ctx, time.Now().Add(-p.interval), p.batchSize)
				if err != nil {
					p.logger.Error("Failed to list pending referrals", "error", err)
					continue
				}
				if len(members) > 0 {
					p.logger.Debug("Pending referrals fetched", "count", len(members))
				}

				for _, m := range members {
					select {
					case <-ctx.Done():
						p.logger.Debug("Producer stopped by context while sending members")
						return
					case out <- m:
					}
				}
			}
		}
	}()

	return idleStopped
}
