package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/quizledger/internal/handlers/render"
	"github.com/nkiryanov/quizledger/internal/logger"
	"github.com/nkiryanov/quizledger/internal/models"
	"github.com/nkiryanov/quizledger/internal/repository"
)

type quizResponse struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	BlogSlug      string    `json:"blog_slug"`
	Points        int64     `json:"points"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}

func newQuizResponse(q models.Quiz) quizResponse {
	return quizResponse{
		ID:            q.ID,
		Title:         q.Title,
		BlogSlug:      q.BlogSlug,
		Points:        q.Points,
		QuestionCount: q.QuestionCount,
		CreatedAt:     q.CreatedAt,
	}
}

func handleGetQuiz(ledgerService ledgerService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		quizID, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		quiz, err := ledgerService.GetQuiz(r.Context(), quizID)
		if err != nil {
			serviceError(w, l, "Failed to get quiz", err)
			return
		}

		render.JSON(w, newQuizResponse(quiz))
	})
}

func handleSubmitQuiz(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		Answers []int `json:"answers" validate:"required,min=1"`
	}
	type response struct {
		Score            int   `json:"score"`
		Total            int   `json:"total"`
		PointsEarned     int64 `json:"points_earned"`
		AlreadyCompleted bool  `json:"already_completed"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		member, ok := memberFromRequest(w, r)
		if !ok {
			return
		}

		quizID, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := ledgerService.CreditQuiz(r.Context(), member.ID, quizID, data.Answers)
		if err != nil {
			serviceError(w, l, "Failed to credit quiz", err)
			return
		}

		render.JSON(w, response{
			Score:            result.Score,
			Total:            result.Total,
			PointsEarned:     result.PointsEarned,
			AlreadyCompleted: result.AlreadyCompleted,
		})
	})
}

func handleListCompletions(ledgerService ledgerService, l logger.Logger) http.Handler {
	type completion struct {
		QuizID      uuid.UUID `json:"quiz_id"`
		Score       int       `json:"score"`
		CompletedAt time.Time `json:"completed_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		member, ok := memberFromRequest(w, r)
		if !ok {
			return
		}

		completions, err := ledgerService.ListCompletions(r.Context(), member.ID)
		if err != nil {
			serviceError(w, l, "Failed to list completed quizzes", err)
			return
		}

		res := make([]completion, 0, len(completions))
		for _, c := range completions {
			res = append(res, completion{QuizID: c.QuizID, Score: c.Score, CompletedAt: c.CompletedAt})
		}
		render.JSON(w, res)
	})
}

func handleCreateQuiz(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		Title         string `json:"title" validate:"required,max=200"`
		BlogSlug      string `json:"blog_slug" validate:"max=200"`
		Points        int64  `json:"points" validate:"gte=0"`
		QuestionCount int    `json:"question_count" validate:"required,positive"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		member, ok := memberFromRequest(w, r)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		quiz, err := ledgerService.CreateQuiz(r.Context(), member.ID, repository.CreateQuizParams{
			Title:         data.Title,
			BlogSlug:      data.BlogSlug,
			Points:        data.Points,
			QuestionCount: data.QuestionCount,
		})
		if err != nil {
			serviceError(w, l, "Failed to create quiz", err)
			return
		}

		render.Created(w, newQuizResponse(quiz))
	})
}
