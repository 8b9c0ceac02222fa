package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/quizledger/internal/models"
	"github.com/nkiryanov/quizledger/internal/repository"
	"github.com/nkiryanov/quizledger/internal/testutil"
)

// Run fn with storage bound to transaction rolled back at the end
func inTx(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
	testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
		fn(innerTx, NewStorage(innerTx))
	})
}

func createMember(t *testing.T, storage repository.Storage, username string, code string) models.Member {
	t.Helper()

	member, err := storage.Member().CreateMember(t.Context(), repository.CreateMemberParams{
		Username:       username,
		HashedPassword: "hashedpassword",
		ReferralCode:   code,
	})
	require.NoError(t, err, "member has to be created")
	return member
}
