package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/quizledger/internal/apperrors"
)

// Serve handler once and return status with body
func serve(t *testing.T, h http.HandlerFunc, requestBody string) (int, string) {
	t.Helper()

	ts := httptest.NewServer(h)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/test", "application/json", strings.NewReader(requestBody))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	return resp.StatusCode, string(body)
}

func TestRender_JSON(t *testing.T) {
	code, body := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		data := map[string]any{"key1": 1, "key2": "222"}
		JSON(w, data)
	}, "")

	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"key1":1,"key2":"222"}`+"\n", body)
}

func TestRender_Created(t *testing.T) {
	code, body := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		Created(w, map[string]string{"id": "1"})
	}, "")

	require.Equal(t, http.StatusCreated, code)
	assert.JSONEq(t, `{"id":"1"}`, body)
}

func TestRender_ServiceError(t *testing.T) {
	code, body := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		message := "something terrible happened"
		ServiceError(w, message, http.StatusForbidden)
	}, "")

	require.Equal(t, http.StatusForbidden, code)
	assert.JSONEq(t, `{
			"error": "service_error",
			"message": "something terrible happened",
			"retryable": false
		}`,
		body,
	)
}

func TestRender_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     int
		expected string
	}{
		{
			name: "insufficient balance",
			err:  fmt.Errorf("balance update rejected: %w", apperrors.ErrBalanceInsufficient),
			code: http.StatusPaymentRequired,
			expected: `{
				"error": "validation",
				"message": "balance update rejected: insufficient balance",
				"retryable": false
			}`,
		},
		{
			name: "validation",
			err:  apperrors.ErrWithdrawalBelowMinimum,
			code: http.StatusUnprocessableEntity,
			expected: `{
				"error": "validation",
				"message": "amount is below minimum withdrawal",
				"retryable": false
			}`,
		},
		{
			name: "forbidden",
			err:  apperrors.ErrForbidden,
			code: http.StatusForbidden,
			expected: `{
				"error": "forbidden",
				"message": "operation allowed for admins only",
				"retryable": false
			}`,
		},
		{
			name: "not found",
			err:  apperrors.ErrWithdrawalNotFound,
			code: http.StatusNotFound,
			expected: `{
				"error": "not_found",
				"message": "withdrawal not found",
				"retryable": false
			}`,
		},
		{
			name: "conflict",
			err:  apperrors.ErrWithdrawalProcessed,
			code: http.StatusConflict,
			expected: `{
				"error": "conflict",
				"message": "withdrawal already processed",
				"retryable": false
			}`,
		},
		{
			name: "timeout",
			err:  fmt.Errorf("db error: %w", context.DeadlineExceeded),
			code: http.StatusServiceUnavailable,
			expected: `{
				"error": "unavailable",
				"message": "Service temporary unavailable, try again later",
				"retryable": true
			}`,
		},
		{
			name: "internal message hidden",
			err:  errors.New("db error: password authentication failed"),
			code: http.StatusInternalServerError,
			expected: `{
				"error": "internal",
				"message": "Internal server error",
				"retryable": true
			}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, body := serve(t, func(w http.ResponseWriter, _ *http.Request) {
				Error(w, tc.err)
			}, "")

			require.Equal(t, tc.code, code)
			assert.JSONEq(t, tc.expected, body)
		})
	}
}

func TestRender_DecodeError(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		value := struct {
			Key   string `json:"key"`
			Count int    `json:"count"`
		}{}

		err := json.NewDecoder(r.Body).Decode(&value)
		require.Error(t, err, "Please check what JSON was sent. Test expected that it is invalid")
		DecodeError(w, err)
	}

	tests := []struct {
		name        string
		requestBody string
		expected    string
	}{
		{
			name:        "json parsing error",
			requestBody: `invalid-json`,
			expected: `{
				"error":"decoding_failed",
				"message": "Failed to parse JSON: invalid character 'i' looking for beginning of value",
				"retryable": false
			}`,
		},
		{
			name:        "invalid type ok",
			requestBody: `{"key": "valid_json", "count": "but incorrect type"}`,
			expected: `{
				"error": "decoding_failed",
				"message": "Invalid data type for field 'count'",
				"retryable": false
			}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, body := serve(t, handler, tc.requestBody)

			require.Equal(t, http.StatusBadRequest, code)
			assert.JSONEq(t, tc.expected, body)
		})
	}
}

func TestRender_ValidationErrors(t *testing.T) {
	validate := validator.New()

	type T struct {
		Username string `validate:"required"`
		Password string `validate:"min=6"`
		Email    string `validate:"email"`
	}

	code, body := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		invalidData := T{
			Password: "123",
			Email:    "not-valid-email",
		}

		err := validate.Struct(invalidData)
		require.Error(t, err, "test expects that data not pass validation")
		errs, ok := err.(validator.ValidationErrors)
		require.True(t, ok, "be sure you pass structure to validator")
		ValidationErrors(w, errs)
	}, "")

	require.Equal(t, http.StatusBadRequest, code)
	assert.JSONEq(t, `{
		"error": "validation_failed",
		"message": "Request validation failed",
		"retryable": false,
		"fields": {
			"Username": "This field is required",
			"Password": "Value is too short (minimum 6)",
			"Email": "Invalid value"
		}
	}`, body)
}

func TestRender_BindAndValidate(t *testing.T) {
	type Withdraw struct {
		Amount      decimal.Decimal `json:"amount" validate:"required,decimal,positive"`
		PaymentInfo string          `json:"payment_info" validate:"required"`
	}

	tests := []struct {
		name           string
		requestBody    string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "valid request",
			requestBody:    `{"amount": "1.5", "payment_info": "TRC20 wallet"}`,
			expectedStatus: http.StatusOK,
			expectedBody:   `{"amount": "1.5"}`,
		},
		{
			name:           "invalid json",
			requestBody:    `invalid-json`,
			expectedStatus: http.StatusBadRequest,
			expectedBody: `{
				"error": "decoding_failed",
				"message": "Failed to parse JSON: invalid character 'i' looking for beginning of value",
				"retryable": false
			}`,
		},
		{
			name:           "validation failed",
			requestBody:    `{"amount": -1}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody: `{
				"error": "validation_failed",
				"message": "Request validation failed",
				"retryable": false,
				"fields": {
					"amount": "Value must be positive",
					"payment_info": "This field is required"
				}
			}`,
		},
		{
			name:           "huge exponent",
			requestBody:    `{"amount": 1e3000000, "payment_info": "TRC20 wallet"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody: `{
				"error": "validation_failed",
				"message": "Request validation failed",
				"retryable": false,
				"fields": {"amount": "Value is out of range"}
			}`,
		},
		{
			name:           "tiny exponent",
			requestBody:    `{"amount": "1e-3000000", "payment_info": "TRC20 wallet"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody: `{
				"error": "validation_failed",
				"message": "Request validation failed",
				"retryable": false,
				"fields": {"amount": "Value is out of range"}
			}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, body := serve(t, func(w http.ResponseWriter, r *http.Request) {
				data, err := BindAndValidate[Withdraw](w, r)
				if err != nil {
					return // Error response already written
				}
				JSON(w, map[string]string{"amount": data.Amount.String()})
			}, tc.requestBody)

			require.Equal(t, tc.expectedStatus, code)
			assert.JSONEq(t, tc.expectedBody, body)
		})
	}
}

func TestRender_BindAndValidate_HugeDecimal(t *testing.T) {
	type Amount struct {
		Amount decimal.Decimal `json:"amount" validate:"required,positive"`
	}

	started := time.Now()
	code, body := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = BindAndValidate[Amount](w, r)
	}, `{"amount": 1e3000000}`)

	require.Equal(t, http.StatusBadRequest, code)
	assert.JSONEq(t, `{
		"error": "validation_failed",
		"message": "Request validation failed",
		"retryable": false,
		"fields": {"amount": "Value must be positive"}
	}`, body)
	assert.Less(t, time.Since(started), time.Second, "huge exponent must be rejected without expanding digits")
}
