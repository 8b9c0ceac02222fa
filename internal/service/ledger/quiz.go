package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nkiryanov/quizledger/internal/apperrors"
	"github.com/nkiryanov/quizledger/internal/models"
	"github.com/nkiryanov/quizledger/internal/repository"
)

// Credit member with quiz points
//
// Every submission is recorded, but points are credited only for the first completion of the quiz.
// Score is the number of answers: quizzes reward participation, correctness is not checked.
func (s *Service) CreditQuiz(ctx context.Context, memberID uuid.UUID, quizID uuid.UUID, answers []int) (models.QuizResult, error) {
	var result models.QuizResult

	err := s.inTx(ctx, func(ctx context.Context, st repository.Storage) error {
		member, err := lockMember(ctx, st, memberID)
		if err != nil {
			return err
		}

		quiz, err := st.Quiz().GetQuiz(ctx, quizID)
		if err != nil {
			return err
		}

		if len(answers) != quiz.QuestionCount {
			return fmt.Errorf("got %d answers for %d questions: %w", len(answers), quiz.QuestionCount, apperrors.ErrAnswersMismatch)
		}

		_, err = st.Quiz().GetCompletion(ctx, member.ID, quiz.ID)
		switch {
		case err == nil:
			result.AlreadyCompleted = true
		case errors.Is(err, apperrors.ErrQuizNotComplete):
		default:
			return err
		}

		result.Score = len(answers)
		result.Total = quiz.QuestionCount

		submission, err := st.Quiz().CreateSubmission(ctx, models.QuizSubmission{
			MemberID: member.ID,
			QuizID:   quiz.ID,
			BlogSlug: quiz.BlogSlug,
			Score:    result.Score,
		})
		if err != nil {
			return err
		}

		_, err = st.Quiz().UpsertCompletion(ctx, models.QuizCompletion{
			MemberID:    member.ID,
			QuizID:      quiz.ID,
			Score:       result.Score,
			CompletedAt: submission.CompletedAt,
		})
		if err != nil {
			return err
		}

		if result.AlreadyCompleted || quiz.Points == 0 {
			return nil
		}

		_, err = st.Member().UpdateBalance(ctx, member.ID, models.BalanceDelta{
			Wallet:      quiz.Points,
			TotalPoints: quiz.Points,
		})
		if err != nil {
			return err
		}

		_, err = st.Entry().CreateEntry(ctx, models.Entry{
			MemberID: member.ID,
			Kind:     models.EntryQuizReward,
			Points:   quiz.Points,
			Ref:      quiz.ID,
		})
		if err != nil {
			return err
		}

		result.PointsEarned = quiz.Points
		return nil
	})
	if err != nil {
		return models.QuizResult{}, err
	}

	s.logger.Info("Quiz submitted",
		"member_id", memberID, "quiz_id", quizID, "points_earned", result.PointsEarned, "already_completed", result.AlreadyCompleted,
	)

	return result, nil
}

func (s *Service) ListCompletions(ctx context.Context, memberID uuid.UUID) ([]models.QuizCompletion, error) {
	if memberID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}
	return s.storage.Quiz().ListCompletions(ctx, memberID)
}

func (s *Service) GetQuiz(ctx context.Context, quizID uuid.UUID) (models.Quiz, error) {
	return s.storage.Quiz().GetQuiz(ctx, quizID)
}

// Admin only: quizzes are the source of points, so members can't create them
func (s *Service) CreateQuiz(ctx context.Context, actorID uuid.UUID, params repository.CreateQuizParams) (models.Quiz, error) {
	params.Title = strings.TrimSpace(params.Title)
	params.BlogSlug = strings.TrimSpace(params.BlogSlug)
	if params.Title == "" || params.QuestionCount <= 0 || params.Points < 0 {
		return models.Quiz{}, apperrors.ErrQuizInvalid
	}

	var quiz models.Quiz
	err := s.inTx(ctx, func(ctx context.Context, st repository.Storage) error {
		if _, err := requireAdmin(ctx, st, actorID); err != nil {
			return err
		}

		var err error
		quiz, err = st.Quiz().CreateQuiz(ctx, params)
		return err
	})
	if err != nil {
		return quiz, err
	}

	s.logger.Info("Quiz created", "quiz_id", quiz.ID, "blog_slug", quiz.BlogSlug, "points", quiz.Points)
	return quiz, nil
}
