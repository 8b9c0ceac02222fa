package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/quizledger/internal/apperrors"
	"github.com/nkiryanov/quizledger/internal/models"
	"github.com/nkiryanov/quizledger/internal/repository"
	"github.com/nkiryanov/quizledger/internal/testutil"
)

func TestStorage_InTx(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
		member := createMember(t, storage, "alice", "AAAA0001")

		wallet := func(t *testing.T) int64 {
			got, err := storage.Member().GetMemberByID(t.Context(), member.ID, false)
			require.NoError(t, err)
			return got.Wallet
		}

		t.Run("commit on success", func(t *testing.T) {
			inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
				err := storage.InTx(t.Context(), func(s repository.Storage) error {
					_, err := s.Member().UpdateBalance(t.Context(), member.ID, models.BalanceDelta{Wallet: 10, TotalPoints: 10})
					return err
				})
				require.NoError(t, err)

				got, err := storage.Member().GetMemberByID(t.Context(), member.ID, false)
				require.NoError(t, err)
				require.EqualValues(t, 10, got.Wallet)
			})
		})

		t.Run("rollback on error", func(t *testing.T) {
			boom := errors.New("boom")

			err := storage.InTx(t.Context(), func(s repository.Storage) error {
				_, err := s.Member().UpdateBalance(t.Context(), member.ID, models.BalanceDelta{Wallet: 10, TotalPoints: 10})
				require.NoError(t, err)
				return boom
			})

			require.ErrorIs(t, err, boom)
			require.Zero(t, wallet(t), "changes must be rolled back")
		})

		t.Run("failed statement leaves outer tx usable", func(t *testing.T) {
			err := storage.InTx(t.Context(), func(s repository.Storage) error {
				_, err := s.Member().UpdateBalance(t.Context(), member.ID, models.BalanceDelta{Wallet: -1})
				return err
			})

			require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient)
			require.Zero(t, wallet(t))
		})
	})
}
