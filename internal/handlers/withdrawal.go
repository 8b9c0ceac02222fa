package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/quizledger/internal/handlers/render"
	"github.com/nkiryanov/quizledger/internal/logger"
	"github.com/nkiryanov/quizledger/internal/models"
)

type withdrawalResponse struct {
	ID          uuid.UUID       `json:"id"`
	MemberID    uuid.UUID       `json:"member_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentInfo string          `json:"payment_info"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}

func newWithdrawalResponse(wd models.Withdrawal) withdrawalResponse {
	return withdrawalResponse{
		ID:          wd.ID,
		MemberID:    wd.MemberID,
		Amount:      wd.Amount,
		PaymentInfo: wd.PaymentInfo,
		Status:      wd.Status,
		CreatedAt:   wd.CreatedAt,
		ProcessedAt: wd.ProcessedAt,
	}
}

func newWithdrawalsResponse(withdrawals []models.Withdrawal) []withdrawalResponse {
	res := make([]withdrawalResponse, 0, len(withdrawals))
	for _, wd := range withdrawals {
		res = append(res, newWithdrawalResponse(wd))
	}
	return res
}

func handleRequestWithdrawal(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		Amount      decimal.Decimal `json:"amount" validate:"required,decimal,positive"`
		PaymentInfo string          `json:"payment_info" validate:"required,max=500"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		member, ok := memberFromRequest(w, r)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		withdrawal, err := ledgerService.RequestWithdrawal(r.Context(), member.ID, data.Amount, data.PaymentInfo)
		if err != nil {
			serviceError(w, l, "Failed to request withdrawal", err)
			return
		}

		render.Created(w, newWithdrawalResponse(withdrawal))
	})
}

func handleListWithdrawals(ledgerService ledgerService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		member, ok := memberFromRequest(w, r)
		if !ok {
			return
		}

		withdrawals, err := ledgerService.ListWithdrawals(r.Context(), member.ID)
		if err != nil {
			serviceError(w, l, "Failed to list withdrawals", err)
			return
		}

		render.JSON(w, newWithdrawalsResponse(withdrawals))
	})
}

func handleListAllWithdrawals(ledgerService ledgerService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		member, ok := memberFromRequest(w, r)
		if !ok {
			return
		}

		withdrawals, err := ledgerService.ListAllWithdrawals(r.Context(), member.ID, queryList(r, "status"))
		if err != nil {
			serviceError(w, l, "Failed to list withdrawals", err)
			return
		}

		render.JSON(w, newWithdrawalsResponse(withdrawals))
	})
}

type processWithdrawalFunc func(ctx context.Context, actorID uuid.UUID, withdrawalID uuid.UUID) (models.Withdrawal, error)

func handleProcessWithdrawal(process processWithdrawalFunc, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		member, ok := memberFromRequest(w, r)
		if !ok {
			return
		}

		withdrawalID, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		withdrawal, err := process(r.Context(), member.ID, withdrawalID)
		if err != nil {
			serviceError(w, l, "Failed to process withdrawal", err)
			return
		}

		render.JSON(w, newWithdrawalResponse(withdrawal))
	})
}

func handleApproveWithdrawal(ledgerService ledgerService, l logger.Logger) http.Handler {
	return handleProcessWithdrawal(ledgerService.ApproveWithdrawal, l)
}

func handleRejectWithdrawal(ledgerService ledgerService, l logger.Logger) http.Handler {
	return handleProcessWithdrawal(ledgerService.RejectWithdrawal, l)
}
