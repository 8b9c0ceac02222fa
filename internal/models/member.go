package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

type Member struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Username       string
	HashedPassword string
	Role           string

	// Spendable points, never negative
	Wallet int64

	// Lifetime points counter, never decreases
	TotalPoints int64

	USDTBalance decimal.Decimal

	ReferralCode   string
	ReferralsCount int64
	ReferredBy     *uuid.UUID // nil if member signed up without referral

	// Referral code supplied at signup and not yet settled (credited or rejected)
	PendingReferralCode *string
}

func (m *Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}

// Balance change applied to a member atomically
// Zero fields leave the corresponding column untouched
type BalanceDelta struct {
	Wallet      int64
	TotalPoints int64
	USDT        decimal.Decimal
	Referrals   int64
}
