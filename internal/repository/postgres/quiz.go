package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/quizledger/internal/apperrors"
	"github.com/nkiryanov/quizledger/internal/models"
	"github.com/nkiryanov/quizledger/internal/repository"
)

type QuizRepo struct {
	DB DBTX
}

const createQuiz = `-- name: CreateQuiz
INSERT INTO quizzes (id, title, blog_slug, points, question_count)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, title, blog_slug, points, question_count
`

func (r *QuizRepo) CreateQuiz(ctx context.Context, params repository.CreateQuizParams) (models.Quiz, error) {
	rows, _ := r.DB.Query(ctx, createQuiz, uuid.New(), params.Title, params.BlogSlug, params.Points, params.QuestionCount)
	quiz, err := pgx.CollectOneRow(rows, rowToQuiz)
	if err != nil {
		return quiz, fmt.Errorf("db error: %w", err)
	}

	return quiz, nil
}

const getQuiz = `-- name: GetQuiz
SELECT id, created_at, title, blog_slug, points, question_count FROM quizzes
WHERE id = $1
`

func (r *QuizRepo) GetQuiz(ctx context.Context, quizID uuid.UUID) (models.Quiz, error) {
	rows, _ := r.DB.Query(ctx, getQuiz, quizID)
	quiz, err := pgx.CollectOneRow(rows, rowToQuiz)

	switch {
	case err == nil:
		return quiz, nil
	case errors.Is(err, pgx.ErrNoRows):
		return quiz, apperrors.ErrQuizNotFound
	default:
		return quiz, fmt.Errorf("db error: %w", err)
	}
}

const getCompletion = `-- name: GetCompletion
SELECT member_id, quiz_id, score, completed_at FROM completed_quizzes
WHERE member_id = $1 AND quiz_id = $2
`

func (r *QuizRepo) GetCompletion(ctx context.Context, memberID uuid.UUID, quizID uuid.UUID) (models.QuizCompletion, error) {
	rows, _ := r.DB.Query(ctx, getCompletion, memberID, quizID)
	completion, err := pgx.CollectOneRow(rows, rowToCompletion)

	switch {
	case err == nil:
		return completion, nil
	case errors.Is(err, pgx.ErrNoRows):
		return completion, apperrors.ErrQuizNotComplete
	default:
		return completion, fmt.Errorf("db error: %w", err)
	}
}

// Resubmission overwrites the previous record of the quiz, never duplicates it
const upsertCompletion = `-- name: UpsertCompletion
INSERT INTO completed_quizzes (member_id, quiz_id, score, completed_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (member_id, quiz_id) DO UPDATE
SET score = EXCLUDED.score, completed_at = EXCLUDED.completed_at
RETURNING member_id, quiz_id, score, completed_at
`

func (r *QuizRepo) UpsertCompletion(ctx context.Context, c models.QuizCompletion) (models.QuizCompletion, error) {
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, upsertCompletion, c.MemberID, c.QuizID, c.Score, c.CompletedAt)
	completion, err := pgx.CollectOneRow(rows, rowToCompletion)
	if err != nil {
		return completion, mapReferenceError(err)
	}

	return completion, nil
}

const listCompletions = `-- name: ListCompletions
SELECT member_id, quiz_id, score, completed_at FROM completed_quizzes
WHERE member_id = $1
ORDER BY completed_at DESC
`

func (r *QuizRepo) ListCompletions(ctx context.Context, memberID uuid.UUID) ([]models.QuizCompletion, error) {
	rows, _ := r.DB.Query(ctx, listCompletions, memberID)
	completions, err := pgx.CollectRows(rows, rowToCompletion)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return completions, nil
}

const createSubmission = `-- name: CreateSubmission
INSERT INTO quiz_submissions (id, member_id, quiz_id, blog_slug, score, completed_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, member_id, quiz_id, blog_slug, score, completed_at
`

func (r *QuizRepo) CreateSubmission(ctx context.Context, s models.QuizSubmission) (models.QuizSubmission, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CompletedAt.IsZero() {
		s.CompletedAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createSubmission, s.ID, s.MemberID, s.QuizID, s.BlogSlug, s.Score, s.CompletedAt)
	submission, err := pgx.CollectOneRow(rows, rowToSubmission)
	if err != nil {
		return submission, mapReferenceError(err)
	}

	return submission, nil
}

const listSubmissions = `-- name: ListSubmissions
SELECT id, member_id, quiz_id, blog_slug, score, completed_at FROM quiz_submissions
WHERE member_id = $1
ORDER BY completed_at DESC
`

func (r *QuizRepo) ListSubmissions(ctx context.Context, memberID uuid.UUID) ([]models.QuizSubmission, error) {
	rows, _ := r.DB.Query(ctx, listSubmissions, memberID)
	submissions, err := pgx.CollectRows(rows, rowToSubmission)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return submissions, nil
}

// Foreign key violation means either member or quiz is gone
func mapReferenceError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		switch pgErr.ConstraintName {
		case "completed_quizzes_quiz_id_fkey", "quiz_submissions_quiz_id_fkey":
			return apperrors.ErrQuizNotFound
		default:
			return apperrors.ErrMemberNotFound
		}
	}

	return fmt.Errorf("db error: %w", err)
}

func rowToQuiz(row pgx.CollectableRow) (models.Quiz, error) {
	var q models.Quiz
	err := row.Scan(&q.ID, &q.CreatedAt, &q.Title, &q.BlogSlug, &q.Points, &q.QuestionCount)
	return q, err
}

func rowToCompletion(row pgx.CollectableRow) (models.QuizCompletion, error) {
	var c models.QuizCompletion
	err := row.Scan(&c.MemberID, &c.QuizID, &c.Score, &c.CompletedAt)
	return c, err
}

func rowToSubmission(row pgx.CollectableRow) (models.QuizSubmission, error) {
	var s models.QuizSubmission
	err := row.Scan(&s.ID, &s.MemberID, &s.QuizID, &s.BlogSlug, &s.Score, &s.CompletedAt)
	return s, err
}
