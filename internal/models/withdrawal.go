package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
	WithdrawalRejected = "rejected"
)

type Withdrawal struct {
	ID          uuid.UUID
	MemberID    uuid.UUID
	Amount      decimal.Decimal // USDT, reserved from member balance at request time
	PaymentInfo string
	Status      string
	CreatedAt   time.Time
	ProcessedAt *time.Time // nil while pending
}
