package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/quizledger/internal/apperrors"
	"github.com/nkiryanov/quizledger/internal/handlers/userctx"
	"github.com/nkiryanov/quizledger/internal/models"
)

// Allow to use a function as auth service
type authFunc func(ctx context.Context, r *http.Request) (models.Member, error)

func (f authFunc) Authenticate(ctx context.Context, r *http.Request) (models.Member, error) {
	return f(ctx, r)
}

func get(t *testing.T, h http.Handler) (int, string) {
	t.Helper()

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/test")
	require.NoError(t, err, "should make request to test server")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "should read response body")
	defer resp.Body.Close() // nolint:errcheck

	return resp.StatusCode, string(body)
}

func TestAuthMiddleware(t *testing.T) {
	// Simple handler that try to get member from context
	// If ok write its username to response
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Must always be true cause middleware has to set member to context or write error to response
		member, ok := userctx.FromContext(r.Context())
		require.True(t, ok)

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(member.Username))
		require.NoError(t, err, "should write username to response")
	})

	t.Run("auth ok", func(t *testing.T) {
		middleware := AuthMiddleware(authFunc(func(ctx context.Context, r *http.Request) (models.Member, error) {
			return models.Member{Username: "test-member"}, nil
		}))

		code, body := get(t, middleware(handler))

		require.Equalf(t, http.StatusOK, code, "should return status OK. Resp: %s", body)
		require.Equal(t, "test-member", body, "should return username in response")
	})

	t.Run("auth fail", func(t *testing.T) {
		middleware := AuthMiddleware(authFunc(func(ctx context.Context, r *http.Request) (models.Member, error) {
			return models.Member{}, apperrors.ErrUnauthorized
		}))

		code, body := get(t, middleware(handler))

		require.Equalf(t, http.StatusUnauthorized, code, "should return status Unauthorized. Resp: %s", body)
		require.JSONEq(t,
			`{
				"error": "service_error",
				"message": "Unauthorized",
				"retryable": false
			}`,
			body,
		)
	})

	t.Run("storage fail", func(t *testing.T) {
		middleware := AuthMiddleware(authFunc(func(ctx context.Context, r *http.Request) (models.Member, error) {
			return models.Member{}, errors.New("db error: connection refused")
		}))

		code, body := get(t, middleware(handler))

		require.Equalf(t, http.StatusInternalServerError, code, "storage failure is not an auth failure. Resp: %s", body)
	})
}

func TestAdminMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	withMember := func(m models.Member) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			AdminMiddleware(handler).ServeHTTP(w, r.WithContext(userctx.New(r.Context(), m)))
		})
	}

	t.Run("admin ok", func(t *testing.T) {
		code, _ := get(t, withMember(models.Member{Username: "root", Role: models.RoleAdmin}))

		require.Equal(t, http.StatusOK, code)
	})

	t.Run("member forbidden", func(t *testing.T) {
		code, body := get(t, withMember(models.Member{Username: "nk", Role: models.RoleMember}))

		require.Equal(t, http.StatusForbidden, code)
		require.JSONEq(t, `{"error": "service_error", "message": "Forbidden", "retryable": false}`, body)
	})

	t.Run("anonymous unauthorized", func(t *testing.T) {
		code, _ := get(t, AdminMiddleware(handler))

		require.Equal(t, http.StatusUnauthorized, code)
	})
}
