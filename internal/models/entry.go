package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EntryQuizReward        = "quiz_reward"
	EntryReferralBonus     = "referral_bonus"
	EntryConversion        = "conversion"
	EntryWithdrawalHold    = "withdrawal_hold"
	EntryWithdrawalRelease = "withdrawal_release"
)

// Ledger entry: one per balance change
type Entry struct {
	ID        uuid.UUID
	CreatedAt time.Time
	MemberID  uuid.UUID
	Kind      string
	Points    int64
	USDT      decimal.Decimal

	// Id of the object caused the change: quiz, referred member or withdrawal
	Ref uuid.UUID
}

// Result of points to USDT conversion
type Conversion struct {
	PointsConverted int64
	USDTReceived    decimal.Decimal
}
