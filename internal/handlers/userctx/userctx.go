package userctx

import (
	"context"

	"github.com/nkiryanov/quizledger/internal/models"
)

type ctxKey string

const memberKey ctxKey = "member"

// Create a new context with the authenticated member
func New(ctx context.Context, m models.Member) context.Context {
	return context.WithValue(ctx, memberKey, m)
}

// Extract the member from the context
func FromContext(ctx context.Context) (models.Member, bool) {
	m, ok := ctx.Value(memberKey).(models.Member)
	return m, ok
}
