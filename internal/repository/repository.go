package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/quizledger/internal/models"
)

type CreateMemberParams struct {
	Username            string
	HashedPassword      string
	Role                string
	ReferralCode        string
	PendingReferralCode string // empty if member signed up without referral code
}

type MemberRepo interface {
	// Create member with zero balances
	// If username is taken has to return apperrors.ErrMemberAlreadyExists
	// If referral code is taken has to return apperrors.ErrReferralCodeTaken
	CreateMember(ctx context.Context, params CreateMemberParams) (models.Member, error)

	// Get member by id, lock the row till the end of transaction if lock is true
	// If member not found must return apperrors.ErrMemberNotFound
	GetMemberByID(ctx context.Context, memberID uuid.UUID, lock bool) (models.Member, error)
	GetMemberByUsername(ctx context.Context, username string) (models.Member, error)
	GetMemberByReferralCode(ctx context.Context, code string) (models.Member, error)

	// Apply delta to member balances in one statement
	// If any balance becomes negative must return apperrors.ErrBalanceInsufficient
	UpdateBalance(ctx context.Context, memberID uuid.UUID, delta models.BalanceDelta) (models.Member, error)

	// Link member to referrer and clear pending referral code
	SetReferrer(ctx context.Context, memberID uuid.UUID, referrerID uuid.UUID) error

	// Clear pending referral code without linking
	ClearPendingReferral(ctx context.Context, memberID uuid.UUID) error

	// Members with pending referral code created before the moment
	ListPendingReferrals(ctx context.Context, createdBefore time.Time, limit int) ([]models.Member, error)
}

type CreateQuizParams struct {
	Title         string
	BlogSlug      string
	Points        int64
	QuestionCount int
}

type QuizRepo interface {
	CreateQuiz(ctx context.Context, params CreateQuizParams) (models.Quiz, error)

	// If quiz not found must return apperrors.ErrQuizNotFound
	GetQuiz(ctx context.Context, quizID uuid.UUID) (models.Quiz, error)

	// If member never completed the quiz must return apperrors.ErrQuizNotComplete
	GetCompletion(ctx context.Context, memberID uuid.UUID, quizID uuid.UUID) (models.QuizCompletion, error)

	// Insert completion or overwrite score and time of existing one
	UpsertCompletion(ctx context.Context, completion models.QuizCompletion) (models.QuizCompletion, error)
	ListCompletions(ctx context.Context, memberID uuid.UUID) ([]models.QuizCompletion, error)

	CreateSubmission(ctx context.Context, submission models.QuizSubmission) (models.QuizSubmission, error)
	ListSubmissions(ctx context.Context, memberID uuid.UUID) ([]models.QuizSubmission, error)
}

type ListWithdrawalsOpts struct {
	MemberID *uuid.UUID // nil means all members
	Statuses []string   // empty means any status
	Limit    int        // zero means no limit
}

type WithdrawalRepo interface {
	CreateWithdrawal(ctx context.Context, memberID uuid.UUID, amount decimal.Decimal, paymentInfo string) (models.Withdrawal, error)

	// If withdrawal not found must return apperrors.ErrWithdrawalNotFound
	GetWithdrawal(ctx context.Context, withdrawalID uuid.UUID, lock bool) (models.Withdrawal, error)

	// Move withdrawal to new status and set processed time
	SetStatus(ctx context.Context, withdrawalID uuid.UUID, status string) (models.Withdrawal, error)

	// Ordered by creation time, newest first
	ListWithdrawals(ctx context.Context, opts ListWithdrawalsOpts) ([]models.Withdrawal, error)
}

type EntryRepo interface {
	CreateEntry(ctx context.Context, entry models.Entry) (models.Entry, error)

	// Ordered by creation time, newest first. Empty kinds means any kind
	ListEntries(ctx context.Context, memberID uuid.UUID, kinds []string) ([]models.Entry, error)
}

type ReferralRepo interface {
	// Record referral credit for the referred member
	// Returns false if credit for the member recorded already
	CreateCredit(ctx context.Context, referredID uuid.UUID, referrerID uuid.UUID, bonus int64) (bool, error)
}

type RefreshTokenRepo interface {
	Save(ctx context.Context, token models.RefreshToken) error

	// Return the token and mark it used
	// If the token is used already must return apperrors.ErrRefreshTokenIsUsed
	GetAndMarkUsed(ctx context.Context, tokenString string) (models.RefreshToken, error)
}

type Storage interface {
	Member() MemberRepo
	Quiz() QuizRepo
	Withdrawal() WithdrawalRepo
	Entry() EntryRepo
	Referral() ReferralRepo
	Refresh() RefreshTokenRepo

	// Run fn in transaction: commit if fn returns nil, rollback otherwise
	// Nested calls use savepoints
	InTx(ctx context.Context, fn func(Storage) error) error
}
