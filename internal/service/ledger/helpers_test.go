package ledger

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/quizledger/internal/logger"
	"github.com/nkiryanov/quizledger/internal/models"
	"github.com/nkiryanov/quizledger/internal/repository"
	"github.com/nkiryanov/quizledger/internal/repository/postgres"
	"github.com/nkiryanov/quizledger/internal/testutil"
)

var testConfig = Config{
	PointsRate:    decimal.RequireFromString("0.001"),
	MinWithdrawal: decimal.RequireFromString("0.5"),
	ReferralBonus: 100,
}

func newService(t *testing.T, cfg Config, storage repository.Storage) *Service {
	t.Helper()

	s, err := NewService(cfg, storage, logger.NewNoOpLogger())
	require.NoError(t, err, "ledger service has to be created")
	return s
}

// Run fn with service bound to transaction rolled back at the end
func inTx(t *testing.T, db postgres.DBTX, fn func(s *Service, storage repository.Storage)) {
	testutil.InTx(db, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)
		fn(newService(t, testConfig, storage), storage)
	})
}

type memberOpts struct {
	role    string
	wallet  int64
	usdt    string
	pending string
}

func createMember(t *testing.T, storage repository.Storage, username string, opts memberOpts) models.Member {
	t.Helper()

	member, err := storage.Member().CreateMember(t.Context(), repository.CreateMemberParams{
		Username:            username,
		HashedPassword:      "hashedpassword",
		Role:                opts.role,
		ReferralCode:        fmt.Sprintf("R-%s", username),
		PendingReferralCode: opts.pending,
	})
	require.NoError(t, err, "member has to be created")

	if opts.wallet == 0 && opts.usdt == "" {
		return member
	}

	usdt := decimal.Zero
	if opts.usdt != "" {
		usdt = decimal.RequireFromString(opts.usdt)
	}
	member, err = storage.Member().UpdateBalance(t.Context(), member.ID, models.BalanceDelta{
		Wallet:      opts.wallet,
		TotalPoints: opts.wallet,
		USDT:        usdt,
	})
	require.NoError(t, err, "member has to be funded")
	return member
}

func createQuiz(t *testing.T, storage repository.Storage, points int64, questions int) models.Quiz {
	t.Helper()

	quiz, err := storage.Quiz().CreateQuiz(t.Context(), repository.CreateQuizParams{
		Title:         "Wallet security",
		BlogSlug:      "wallet-security-" + uuid.NewString()[:8],
		Points:        points,
		QuestionCount: questions,
	})
	require.NoError(t, err, "quiz has to be created")
	return quiz
}

func getMember(t *testing.T, storage repository.Storage, memberID uuid.UUID) models.Member {
	t.Helper()

	member, err := storage.Member().GetMemberByID(t.Context(), memberID, false)
	require.NoError(t, err)
	return member
}

func requireDecimal(t *testing.T, expected string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(expected).Equal(got), "expected %s, got %s", expected, got)
}
