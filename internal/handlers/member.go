package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/quizledger/internal/handlers/render"
	"github.com/nkiryanov/quizledger/internal/handlers/userctx"
	"github.com/nkiryanov/quizledger/internal/logger"
	"github.com/nkiryanov/quizledger/internal/models"
)

type balanceResponse struct {
	Wallet      int64           `json:"wallet"`
	TotalPoints int64           `json:"total_points"`
	USDTBalance decimal.Decimal `json:"usdt_balance"`
}

func newBalanceResponse(m models.Member) balanceResponse {
	return balanceResponse{
		Wallet:      m.Wallet,
		TotalPoints: m.TotalPoints,
		USDTBalance: m.USDTBalance,
	}
}

// Authenticated member from context
// Missing member means router misconfiguration
func memberFromRequest(w http.ResponseWriter, r *http.Request) (models.Member, bool) {
	member, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
	}
	return member, ok
}

func handleMemberMe() http.Handler {
	type response struct {
		ID             uuid.UUID  `json:"id"`
		Username       string     `json:"username"`
		Role           string     `json:"role"`
		ReferralCode   string     `json:"referral_code"`
		ReferralsCount int64      `json:"referrals_count"`
		ReferredBy     *uuid.UUID `json:"referred_by"`
		CreatedAt      time.Time  `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		member, ok := memberFromRequest(w, r)
		if !ok {
			return
		}

		render.JSON(w, response{
			ID:             member.ID,
			Username:       member.Username,
			Role:           member.Role,
			ReferralCode:   member.ReferralCode,
			ReferralsCount: member.ReferralsCount,
			ReferredBy:     member.ReferredBy,
			CreatedAt:      member.CreatedAt,
		})
	})
}

func handleBalance(ledgerService ledgerService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		member, ok := memberFromRequest(w, r)
		if !ok {
			return
		}

		// Fresh balance, the one in context was read before
		balance, err := ledgerService.GetBalance(r.Context(), member.ID)
		if err != nil {
			serviceError(w, l, "Failed to get balance", err)
			return
		}

		render.JSON(w, newBalanceResponse(balance))
	})
}

func handleConvertPoints(ledgerService ledgerService, l logger.Logger) http.Handler {
	type response struct {
		PointsConverted int64           `json:"points_converted"`
		USDTReceived    decimal.Decimal `json:"usdt_received"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		member, ok := memberFromRequest(w, r)
		if !ok {
			return
		}

		conversion, err := ledgerService.ConvertPoints(r.Context(), member.ID)
		if err != nil {
			serviceError(w, l, "Failed to convert points", err)
			return
		}

		render.JSON(w, response{
			PointsConverted: conversion.PointsConverted,
			USDTReceived:    conversion.USDTReceived,
		})
	})
}

func handleHistory(ledgerService ledgerService, l logger.Logger) http.Handler {
	type entry struct {
		ID        uuid.UUID       `json:"id"`
		Kind      string          `json:"kind"`
		Points    int64           `json:"points"`
		USDT      decimal.Decimal `json:"usdt"`
		Ref       uuid.UUID       `json:"ref"`
		CreatedAt time.Time       `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		member, ok := memberFromRequest(w, r)
		if !ok {
			return
		}

		entries, err := ledgerService.ListEntries(r.Context(), member.ID, queryList(r, "kind"))
		if err != nil {
			serviceError(w, l, "Failed to list ledger entries", err)
			return
		}

		res := make([]entry, 0, len(entries))
		for _, e := range entries {
			res = append(res, entry{
				ID:        e.ID,
				Kind:      e.Kind,
				Points:    e.Points,
				USDT:      e.USDT,
				Ref:       e.Ref,
				CreatedAt: e.CreatedAt,
			})
		}
		render.JSON(w, res)
	})
}

func handleCreditReferral(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		Code string `json:"code" validate:"required,max=32"`
	}
	type response struct {
		Credited   bool       `json:"credited"`
		ReferrerID *uuid.UUID `json:"referrer_id"`
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

		referrerID, err := ledgerService.CreditReferral(r.Context(), member.ID, data.Code)
		if err != nil {
			serviceError(w, l, "Failed to credit referral", err)
			return
		}

		res := response{}
		if referrerID != uuid.Nil {
			res.Credited = true
			res.ReferrerID = &referrerID
		}
		render.JSON(w, res)
	})
}

// Query values of the key, comma separated values are split
func queryList(r *http.Request, key string) []string {
	var list []string
	for _, value := range r.URL.Query()[key] {
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				list = append(list, v)
			}
		}
	}
	return list
}
