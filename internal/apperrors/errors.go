package apperrors

import (
	"context"
	"errors"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("operation allowed for admins only")

	ErrMemberAlreadyExists = errors.New("member already exists")
	ErrMemberNotFound      = errors.New("member not found")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenIsUsed   = errors.New("refresh token is used")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")

	ErrQuizNotFound    = errors.New("quiz not found")
	ErrQuizNotComplete = errors.New("quiz not completed by member")
	ErrAnswersMismatch = errors.New("answers count does not match quiz questions count")
	ErrQuizInvalid     = errors.New("quiz must have title, questions and non negative points")

	ErrReferralCodeTaken  = errors.New("referral code already taken")
	ErrSelfReferral       = errors.New("member can't use own referral code")
	ErrAlreadyReferred    = errors.New("member already referred by another member")
	ErrReferralNotPending = errors.New("referral code can be applied at registration only")

	ErrNothingToConvert    = errors.New("no points to convert")
	ErrBalanceInsufficient = errors.New("insufficient balance")

	ErrAmountInvalid          = errors.New("amount must be positive")
	ErrAmountPrecision        = errors.New("amount has more than 6 decimal places")
	ErrAmountOutOfRange       = errors.New("amount is out of range")
	ErrWithdrawalBelowMinimum = errors.New("amount is below minimum withdrawal")
	ErrPaymentInfoEmpty       = errors.New("payment info is empty")
	ErrWithdrawalNotFound     = errors.New("withdrawal not found")
	ErrWithdrawalProcessed    = errors.New("withdrawal already processed")
)

// Kind groups errors by what the caller may do about them
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindValidation
	KindNotFound
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Retryable reports whether the same request may succeed later unchanged
func (k Kind) Retryable() bool {
	return k == KindInternal || k == KindUnavailable
}

// Checked in order, so an error joining several known errors gets the first listed kind
var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrUnauthorized, KindUnauthorized},
	{ErrRefreshTokenNotFound, KindUnauthorized},
	{ErrRefreshTokenIsUsed, KindUnauthorized},
	{ErrRefreshTokenExpired, KindUnauthorized},

	{ErrForbidden, KindForbidden},

	{ErrAnswersMismatch, KindValidation},
	{ErrQuizInvalid, KindValidation},
	{ErrSelfReferral, KindValidation},
	{ErrNothingToConvert, KindValidation},
	{ErrBalanceInsufficient, KindValidation},
	{ErrAmountInvalid, KindValidation},
	{ErrAmountPrecision, KindValidation},
	{ErrAmountOutOfRange, KindValidation},
	{ErrWithdrawalBelowMinimum, KindValidation},
	{ErrPaymentInfoEmpty, KindValidation},

	{ErrMemberNotFound, KindNotFound},
	{ErrQuizNotFound, KindNotFound},
	{ErrQuizNotComplete, KindNotFound},
	{ErrWithdrawalNotFound, KindNotFound},

	{ErrMemberAlreadyExists, KindConflict},
	{ErrReferralCodeTaken, KindConflict},
	{ErrAlreadyReferred, KindConflict},
	{ErrReferralNotPending, KindConflict},
	{ErrWithdrawalProcessed, KindConflict},
}

// KindOf classifies wrapped error by the first listed well known error in its chain
// Unknown errors are internal
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindUnavailable
	}

	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}

	return KindInternal
}
