package handlers

import (
	"net/http"

	"github.com/nkiryanov/quizledger/internal/handlers/render"
	"github.com/nkiryanov/quizledger/internal/logger"
	"github.com/nkiryanov/quizledger/internal/models"
)

const accessAuthScheme = "Bearer"

// Return token pair in body and access token in Authorization header
func renderTokenPair(w http.ResponseWriter, pair models.TokenPair) {
	w.Header().Set("Authorization", accessAuthScheme+" "+pair.Access.Value)
	render.JSON(w, pair)
}

func handleRegister(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Login        string `json:"login" validate:"required,min=2,max=50"`
		Password     string `json:"password" validate:"required,min=8"`
		ReferralCode string `json:"referral_code" validate:"omitempty,max=32"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Register(r.Context(), data.Login, data.Password, data.ReferralCode)
		if err != nil {
			serviceError(w, l, "Failed to register member", err)
			return
		}

		renderTokenPair(w, pair)
	})
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Login    string `json:"login" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Login(r.Context(), data.Login, data.Password)
		if err != nil {
			serviceError(w, l, "Failed to login member", err)
			return
		}

		renderTokenPair(w, pair)
	})
}

func handleTokenRefresh(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Refresh string `json:"refresh" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := authService.RefreshPair(r.Context(), data.Refresh)
		if err != nil {
			serviceError(w, l, "Failed to refresh tokens", err)
			return
		}

		renderTokenPair(w, pair)
	})
}
