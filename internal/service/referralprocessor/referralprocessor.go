package referralprocessor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/quizledger/internal/logger"
	"github.com/nkiryanov/quizledger/internal/models"
)

const (
	defaultCountWorkers    = 4                // Number of workers crediting referrals
	defaultProduceInterval = 30 * time.Second // Interval for fetching pending referrals
	defaultBatchSize       = 100              // Max members fetched per tick
)

type referralService interface {
	CreditReferral(ctx context.Context, newMemberID uuid.UUID, code string) (uuid.UUID, error)
	ListPendingReferrals(ctx context.Context, createdBefore time.Time, limit int) ([]models.Member, error)
}

type Config struct {
	Interval     time.Duration
	CountWorkers int
	BatchSize    int
}

// Processor retries referral crediting of members whose referral code left pending at signup
type Processor struct {
	consumer *Consumer
	producer *Producer
	logger   logger.Logger
}

func New(cfg Config, referrals referralService, l logger.Logger) *Processor {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultProduceInterval
	}
	if cfg.CountWorkers <= 0 {
		cfg.CountWorkers = defaultCountWorkers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	l = l.WithGroup("referralprocessor")

	return &Processor{
		consumer: &Consumer{
			countWorkers: cfg.CountWorkers,
			referrals:    referrals,
			logger:       l,
		},
		producer: &Producer{
			interval:  cfg.Interval,
			batchSize: cfg.BatchSize,
			referrals: referrals,
			logger:    l,
		},
		logger: l,
	}
}

// Start producer and consumers, returned channel is closed when all of them stopped
func (p *Processor) Process(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	memberChan := make(chan models.Member)

	producerStopped := p.producer.Produce(ctx, memberChan)
	consumerStopped := p.consumer.Consume(ctx, memberChan)

	go func() {
		defer close(idleStopped)
		<-producerStopped
		close(memberChan)
		<-consumerStopped
		p.logger.Debug("ReferralProcessor stopped")
	}()

	return idleStopped
}
