package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/quizledger/internal/apperrors"
	"github.com/nkiryanov/quizledger/internal/models"
	"github.com/nkiryanov/quizledger/internal/repository"
	"github.com/nkiryanov/quizledger/internal/testutil"
)

func TestQuiz(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
		member := createMember(t, storage, "alice", "AAAA0001")
		quiz, err := storage.Quiz().CreateQuiz(t.Context(), repository.CreateQuizParams{
			Title:         "Staking basics",
			BlogSlug:      "staking-basics",
			Points:        50,
			QuestionCount: 3,
		})
		require.NoError(t, err)

		t.Run("get quiz", func(t *testing.T) {
			got, err := storage.Quiz().GetQuiz(t.Context(), quiz.ID)

			require.NoError(t, err)
			require.Equal(t, quiz, got)
			require.EqualValues(t, 50, got.Points)
			require.Equal(t, 3, got.QuestionCount)
		})

		t.Run("quiz not found", func(t *testing.T) {
			_, err := storage.Quiz().GetQuiz(t.Context(), uuid.New())

			require.ErrorIs(t, err, apperrors.ErrQuizNotFound)
		})

		t.Run("completion not found", func(t *testing.T) {
			_, err := storage.Quiz().GetCompletion(t.Context(), member.ID, quiz.ID)

			require.ErrorIs(t, err, apperrors.ErrQuizNotComplete)
		})

		t.Run("upsert completion overwrites", func(t *testing.T) {
			inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
				first := testutil.MustParseTime(t, "2025-01-01T10:00:00Z")
				second := testutil.MustParseTime(t, "2025-01-02T10:00:00Z")

				_, err := storage.Quiz().UpsertCompletion(t.Context(), models.QuizCompletion{
					MemberID: member.ID, QuizID: quiz.ID, Score: 2, CompletedAt: first,
				})
				require.NoError(t, err)

				_, err = storage.Quiz().UpsertCompletion(t.Context(), models.QuizCompletion{
					MemberID: member.ID, QuizID: quiz.ID, Score: 3, CompletedAt: second,
				})
				require.NoError(t, err)

				got, err := storage.Quiz().GetCompletion(t.Context(), member.ID, quiz.ID)
				require.NoError(t, err)
				require.Equal(t, 3, got.Score)
				require.True(t, second.Equal(got.CompletedAt))

				completions, err := storage.Quiz().ListCompletions(t.Context(), member.ID)
				require.NoError(t, err)
				require.Len(t, completions, 1, "completion must be unique per member and quiz")
			})
		})

		t.Run("submissions kept as history", func(t *testing.T) {
			inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
				for i := range 2 {
					_, err := storage.Quiz().CreateSubmission(t.Context(), models.QuizSubmission{
						MemberID:    member.ID,
						QuizID:      quiz.ID,
						BlogSlug:    quiz.BlogSlug,
						Score:       3,
						CompletedAt: time.Now().Add(time.Duration(i) * time.Minute),
					})
					require.NoError(t, err)
				}

				submissions, err := storage.Quiz().ListSubmissions(t.Context(), member.ID)
				require.NoError(t, err)
				require.Len(t, submissions, 2)
				require.True(t, submissions[0].CompletedAt.After(submissions[1].CompletedAt), "newest first")
				require.Equal(t, "staking-basics", submissions[0].BlogSlug)
			})
		})

		t.Run("completion for unknown quiz", func(t *testing.T) {
			inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
				_, err := storage.Quiz().UpsertCompletion(t.Context(), models.QuizCompletion{
					MemberID: member.ID, QuizID: uuid.New(), Score: 1,
				})

				require.ErrorIs(t, err, apperrors.ErrQuizNotFound)
			})
		})

		t.Run("submission for unknown member", func(t *testing.T) {
			inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
				_, err := storage.Quiz().CreateSubmission(t.Context(), models.QuizSubmission{
					MemberID: uuid.New(), QuizID: quiz.ID, BlogSlug: quiz.BlogSlug, Score: 1,
				})

				require.ErrorIs(t, err, apperrors.ErrMemberNotFound)
			})
		})
	})
}
