package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/quizledger/internal/apperrors"
	"github.com/nkiryanov/quizledger/internal/models"
	"github.com/nkiryanov/quizledger/internal/repository"
	"github.com/nkiryanov/quizledger/internal/testutil"
)

func TestMember(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("CreateMember", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			createMember(t, storage, "alice", "AAAA0001")

			t.Run("create ok", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					member, err := storage.Member().CreateMember(t.Context(), repository.CreateMemberParams{
						Username:            "bob",
						HashedPassword:      "hash",
						ReferralCode:        "BBBB0001",
						PendingReferralCode: "AAAA0001",
					})

					require.NoError(t, err)
					require.NotEqual(t, uuid.Nil, member.ID)
					require.Equal(t, models.RoleMember, member.Role, "role has to default to member")
					require.Zero(t, member.Wallet)
					require.Zero(t, member.TotalPoints)
					require.True(t, member.USDTBalance.IsZero())
					require.Nil(t, member.ReferredBy)
					require.NotNil(t, member.PendingReferralCode)
					require.Equal(t, "AAAA0001", *member.PendingReferralCode)
				})
			})

			t.Run("no pending code stored as null", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					member := createMember(t, storage, "bob", "BBBB0001")

					require.Nil(t, member.PendingReferralCode)
				})
			})

			t.Run("username taken", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Member().CreateMember(t.Context(), repository.CreateMemberParams{
						Username:       "alice",
						HashedPassword: "hash",
						ReferralCode:   "CCCC0001",
					})

					require.ErrorIs(t, err, apperrors.ErrMemberAlreadyExists)
				})
			})

			t.Run("referral code taken", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Member().CreateMember(t.Context(), repository.CreateMemberParams{
						Username:       "carol",
						HashedPassword: "hash",
						ReferralCode:   "AAAA0001",
					})

					require.ErrorIs(t, err, apperrors.ErrReferralCodeTaken)
				})
			})
		})
	})

	t.Run("GetMember", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			alice := createMember(t, storage, "alice", "AAAA0001")

			t.Run("by id", func(t *testing.T) {
				got, err := storage.Member().GetMemberByID(t.Context(), alice.ID, false)

				require.NoError(t, err)
				require.Equal(t, alice, got)
			})

			t.Run("by id with lock", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					got, err := storage.Member().GetMemberByID(t.Context(), alice.ID, true)

					require.NoError(t, err)
					require.Equal(t, alice.ID, got.ID)
				})
			})

			t.Run("by username", func(t *testing.T) {
				got, err := storage.Member().GetMemberByUsername(t.Context(), "alice")

				require.NoError(t, err)
				require.Equal(t, alice.ID, got.ID)
			})

			t.Run("by referral code", func(t *testing.T) {
				got, err := storage.Member().GetMemberByReferralCode(t.Context(), "AAAA0001")

				require.NoError(t, err)
				require.Equal(t, alice.ID, got.ID)
			})

			t.Run("not found", func(t *testing.T) {
				_, err := storage.Member().GetMemberByID(t.Context(), uuid.New(), false)
				require.ErrorIs(t, err, apperrors.ErrMemberNotFound)

				_, err = storage.Member().GetMemberByUsername(t.Context(), "nobody")
				require.ErrorIs(t, err, apperrors.ErrMemberNotFound)

				_, err = storage.Member().GetMemberByReferralCode(t.Context(), "ZZZZ0000")
				require.ErrorIs(t, err, apperrors.ErrMemberNotFound)
			})
		})
	})

	t.Run("UpdateBalance", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			alice := createMember(t, storage, "alice", "AAAA0001")

			t.Run("credit", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					got, err := storage.Member().UpdateBalance(t.Context(), alice.ID, models.BalanceDelta{
						Wallet:      100,
						TotalPoints: 100,
						USDT:        decimal.RequireFromString("0.25"),
						Referrals:   1,
					})

					require.NoError(t, err)
					require.EqualValues(t, 100, got.Wallet)
					require.EqualValues(t, 100, got.TotalPoints)
					require.True(t, decimal.RequireFromString("0.25").Equal(got.USDTBalance), "got %s", got.USDTBalance)
					require.EqualValues(t, 1, got.ReferralsCount)
				})
			})

			t.Run("deltas accumulate", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Member().UpdateBalance(t.Context(), alice.ID, models.BalanceDelta{Wallet: 100, TotalPoints: 100})
					require.NoError(t, err)

					got, err := storage.Member().UpdateBalance(t.Context(), alice.ID, models.BalanceDelta{
						Wallet: -40,
						USDT:   decimal.RequireFromString("0.04"),
					})

					require.NoError(t, err)
					require.EqualValues(t, 60, got.Wallet)
					require.EqualValues(t, 100, got.TotalPoints, "total points must stay the same on debit")
					require.True(t, decimal.RequireFromString("0.04").Equal(got.USDTBalance))
				})
			})

			t.Run("wallet overdraft", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Member().UpdateBalance(t.Context(), alice.ID, models.BalanceDelta{Wallet: -1})

					require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient)
				})
			})

			t.Run("usdt overdraft", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Member().UpdateBalance(t.Context(), alice.ID, models.BalanceDelta{
						USDT: decimal.RequireFromString("-0.000001"),
					})

					require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient)
				})
			})

			t.Run("total points never decrease", func(t *testing.T) {
				_, err := storage.Member().UpdateBalance(t.Context(), alice.ID, models.BalanceDelta{TotalPoints: -1})

				require.Error(t, err)
			})

			t.Run("member not found", func(t *testing.T) {
				_, err := storage.Member().UpdateBalance(t.Context(), uuid.New(), models.BalanceDelta{Wallet: 1})

				require.ErrorIs(t, err, apperrors.ErrMemberNotFound)
			})
		})
	})

	t.Run("Referrals", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			alice := createMember(t, storage, "alice", "AAAA0001")
			bob, err := storage.Member().CreateMember(t.Context(), repository.CreateMemberParams{
				Username:            "bob",
				HashedPassword:      "hash",
				ReferralCode:        "BBBB0001",
				PendingReferralCode: "AAAA0001",
			})
			require.NoError(t, err)

			t.Run("set referrer clears pending code", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					err := storage.Member().SetReferrer(t.Context(), bob.ID, alice.ID)
					require.NoError(t, err)

					got, err := storage.Member().GetMemberByID(t.Context(), bob.ID, false)
					require.NoError(t, err)
					require.NotNil(t, got.ReferredBy)
					require.Equal(t, alice.ID, *got.ReferredBy)
					require.Nil(t, got.PendingReferralCode)
				})
			})

			t.Run("self referral rejected", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					err := storage.Member().SetReferrer(t.Context(), alice.ID, alice.ID)

					require.ErrorIs(t, err, apperrors.ErrSelfReferral)
				})
			})

			t.Run("unknown referrer", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					err := storage.Member().SetReferrer(t.Context(), bob.ID, uuid.New())

					require.ErrorIs(t, err, apperrors.ErrMemberNotFound)
				})
			})

			t.Run("list and clear pending", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					pending, err := storage.Member().ListPendingReferrals(t.Context(), time.Now().Add(time.Hour), 10)
					require.NoError(t, err)
					require.Len(t, pending, 1)
					require.Equal(t, bob.ID, pending[0].ID)

					err = storage.Member().ClearPendingReferral(t.Context(), bob.ID)
					require.NoError(t, err)

					pending, err = storage.Member().ListPendingReferrals(t.Context(), time.Now().Add(time.Hour), 10)
					require.NoError(t, err)
					require.Empty(t, pending)
				})
			})

			t.Run("fresh pending skipped", func(t *testing.T) {
				pending, err := storage.Member().ListPendingReferrals(t.Context(), bob.CreatedAt.Add(-time.Second), 10)

				require.NoError(t, err)
				require.Empty(t, pending, "members created after the moment must be skipped")
			})
		})
	})
}
