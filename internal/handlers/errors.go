package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/quizledger/internal/apperrors"
	"github.com/nkiryanov/quizledger/internal/handlers/render"
	"github.com/nkiryanov/quizledger/internal/logger"
)

// Render service error, unexpected ones are logged
func serviceError(w http.ResponseWriter, l logger.Logger, msg string, err error) {
	if apperrors.KindOf(err).Retryable() {
		l.Error(msg, "error", err)
	}
	render.Error(w, err)
}

// Parse uuid from path value, respond with 404 if it is malformed
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		render.ServiceError(w, "Not found", http.StatusNotFound)
		return uuid.Nil, false
	}
	return id, true
}
