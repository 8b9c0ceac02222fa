package middleware

import (
	"context"
	"net/http"

	"github.com/nkiryanov/quizledger/internal/apperrors"
	"github.com/nkiryanov/quizledger/internal/handlers/render"
	"github.com/nkiryanov/quizledger/internal/handlers/userctx"
	"github.com/nkiryanov/quizledger/internal/models"
)

type authService interface {
	Authenticate(ctx context.Context, r *http.Request) (models.Member, error)
}

// Put authenticated member to request context or respond with error
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			member, err := as.Authenticate(r.Context(), r)
			switch {
			case err == nil:
			case apperrors.KindOf(err) == apperrors.KindUnauthorized:
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			default:
				render.Error(w, err)
				return
			}

			ctx := userctx.New(r.Context(), member)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Allow request only for admins, has to be applied after AuthMiddleware
// Ledger checks the role of acting member as well
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		member, ok := userctx.FromContext(r.Context())
		switch {
		case !ok:
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		case !member.IsAdmin():
			render.ServiceError(w, "Forbidden", http.StatusForbidden)
		default:
			next.ServeHTTP(w, r)
		}
	})
}
