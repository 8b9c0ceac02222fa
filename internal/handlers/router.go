package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/quizledger/internal/handlers/middleware"
	"github.com/nkiryanov/quizledger/internal/logger"
	"github.com/nkiryanov/quizledger/internal/models"
	"github.com/nkiryanov/quizledger/internal/repository"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	ledgerService ledgerService,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(authService)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}
	withAdmin := func(h http.Handler) http.Handler {
		return chain(h, authMiddleware, middleware.AdminMiddleware)
	}

	apiuser := http.NewServeMux()

	apiuser.Handle("POST /login", handleLogin(authService, logger))
	apiuser.Handle("POST /register", handleRegister(authService, logger))
	apiuser.Handle("POST /refresh", handleTokenRefresh(authService, logger))

	apiuser.Handle("GET /me", withAuth(handleMemberMe()))
	apiuser.Handle("GET /balance", withAuth(handleBalance(ledgerService, logger)))
	apiuser.Handle("POST /balance/convert", withAuth(handleConvertPoints(ledgerService, logger)))
	apiuser.Handle("GET /history", withAuth(handleHistory(ledgerService, logger)))
	apiuser.Handle("POST /referral", withAuth(handleCreditReferral(ledgerService, logger)))
	apiuser.Handle("GET /quizzes", withAuth(handleListCompletions(ledgerService, logger)))
	apiuser.Handle("POST /quizzes/{id}/submit", withAuth(handleSubmitQuiz(ledgerService, logger)))
	apiuser.Handle("POST /withdrawals", withAuth(handleRequestWithdrawal(ledgerService, logger)))
	apiuser.Handle("GET /withdrawals", withAuth(handleListWithdrawals(ledgerService, logger)))

	apiadmin := http.NewServeMux()

	apiadmin.Handle("POST /quizzes", withAdmin(handleCreateQuiz(ledgerService, logger)))
	apiadmin.Handle("GET /withdrawals", withAdmin(handleListAllWithdrawals(ledgerService, logger)))
	apiadmin.Handle("POST /withdrawals/{id}/approve", withAdmin(handleApproveWithdrawal(ledgerService, logger)))
	apiadmin.Handle("POST /withdrawals/{id}/reject", withAdmin(handleRejectWithdrawal(ledgerService, logger)))

	root := http.NewServeMux()
	root.Handle("/api/user/", http.StripPrefix("/api/user", apiuser))
	root.Handle("/api/admin/", http.StripPrefix("/api/admin", apiadmin))
	root.Handle("GET /api/quizzes/{id}", handleGetQuiz(ledgerService, logger))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register member with username and password, referral code is optional
	// Has to return apperrors.ErrMemberAlreadyExists if member already exists
	Register(ctx context.Context, username string, password string, referralCode string) (models.TokenPair, error)

	// Login member with username and password
	// Has to return apperrors.ErrUnauthorized if credentials are wrong
	Login(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Refresh tokens using refresh token
	// If token expired: has to return apperrors.ErrRefreshTokenExpired
	// If token not found: has to return apperrors.ErrRefreshTokenNotFound
	RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error)

	// Get request and return member if it authenticated or error
	Authenticate(ctx context.Context, r *http.Request) (models.Member, error)
}

type ledgerService interface {
	GetBalance(ctx context.Context, memberID uuid.UUID) (models.Member, error)
	ListEntries(ctx context.Context, memberID uuid.UUID, kinds []string) ([]models.Entry, error)

	GetQuiz(ctx context.Context, quizID uuid.UUID) (models.Quiz, error)
	CreateQuiz(ctx context.Context, actorID uuid.UUID, params repository.CreateQuizParams) (models.Quiz, error)
	CreditQuiz(ctx context.Context, memberID uuid.UUID, quizID uuid.UUID, answers []int) (models.QuizResult, error)
	ListCompletions(ctx context.Context, memberID uuid.UUID) ([]models.QuizCompletion, error)

	CreditReferral(ctx context.Context, newMemberID uuid.UUID, code string) (uuid.UUID, error)
	ConvertPoints(ctx context.Context, memberID uuid.UUID) (models.Conversion, error)

	RequestWithdrawal(ctx context.Context, memberID uuid.UUID, amount decimal.Decimal, paymentInfo string) (models.Withdrawal, error)
	ApproveWithdrawal(ctx context.Context, actorID uuid.UUID, withdrawalID uuid.UUID) (models.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, actorID uuid.UUID, withdrawalID uuid.UUID) (models.Withdrawal, error)
	ListWithdrawals(ctx context.Context, memberID uuid.UUID) ([]models.Withdrawal, error)
	ListAllWithdrawals(ctx context.Context, actorID uuid.UUID, statuses []string) ([]models.Withdrawal, error)
}
