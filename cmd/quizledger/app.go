package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/nkiryanov/quizledger/internal/db"
	"github.com/nkiryanov/quizledger/internal/handlers"
	"github.com/nkiryanov/quizledger/internal/logger"
	"github.com/nkiryanov/quizledger/internal/repository/postgres"
	"github.com/nkiryanov/quizledger/internal/service/auth"
	"github.com/nkiryanov/quizledger/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/quizledger/internal/service/ledger"
	"github.com/nkiryanov/quizledger/internal/service/member"
	"github.com/nkiryanov/quizledger/internal/service/referralprocessor"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	pool      *pgxpool.Pool
	processor *referralprocessor.Processor
	logger    logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config. Err: %w", err)
	}

	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	ledgerService, err := ledger.NewService(ledger.Config{
		PointsRate:       decimal.RequireFromString(c.PointsRate),
		MinWithdrawal:    decimal.RequireFromString(c.MinWithdrawal),
		ReferralBonus:    c.ReferralBonus,
		OperationTimeout: c.OperationTimeout,
	}, storage, l)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating ledger service. Err: %w", err)
	}

	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: c.SecretKey}, storage.Refresh())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	memberService := member.NewService(member.Config{
		Hasher:      auth.DefaultHasher,
		AdminLogins: c.AdminLogins,
	}, storage, ledgerService, l)

	authService, err := auth.NewService(auth.Config{}, tokenManager, memberService)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	processor := referralprocessor.New(referralprocessor.Config{Interval: c.ReferralRetryInterval}, ledgerService, l)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    handlers.NewRouter(authService, ledgerService, l),
		pool:       pool,
		processor:  processor,
		logger:     l,
	}, nil
}

// Run starts http server and referral processor, stops both gracefully on context cancellation
// Failure of any of them stops the other one
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.pool.Close()

	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Listen and serve until context is cancelled
	g.Go(func() error {
		s.logger.Info("Starting server", "address", s.ListenAddr)
		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	// Close gracefully connections
	g.Go(func() error {
		<-gCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(timeoutCtx)
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
			err = httpServer.Close()
		}
		s.logger.Info("HTTP server stopped")
		return err
	})

	g.Go(func() error {
		<-s.processor.Process(gCtx)
		return nil
	})

	return g.Wait()
}
