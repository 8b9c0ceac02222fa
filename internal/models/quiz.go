package models

import (
	"time"

	"github.com/google/uuid"
)

type Quiz struct {
	ID            uuid.UUID
	CreatedAt     time.Time
	Title         string
	BlogSlug      string
	Points        int64
	QuestionCount int
}

// Latest attempt of a quiz by a member; one per (member, quiz)
type QuizCompletion struct {
	MemberID    uuid.UUID
	QuizID      uuid.UUID
	Score       int
	CompletedAt time.Time
}

// Every quiz submission, kept as history
type QuizSubmission struct {
	ID          uuid.UUID
	MemberID    uuid.UUID
	QuizID      uuid.UUID
	BlogSlug    string
	Score       int
	CompletedAt time.Time
}

// Outcome of a quiz submission returned to the member
type QuizResult struct {
	Score        int
	Total        int
	PointsEarned int64

	// True if the quiz was credited before; such submission earns nothing
	AlreadyCompleted bool
}
