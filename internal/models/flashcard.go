package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTopic is assigned when the generation gateway produces no topic label.
const DefaultTopic = "General"

type Flashcard struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	Topic        string    `json:"topic"`
	MasteryLevel int       `json:"mastery_level"`
	NextReviewAt time.Time `json:"next_review_at"`
	CreatedAt    time.Time `json:"created_at"`
}

type GenerateFlashcardsRequest struct {
	Text      string `json:"text"`
	SourceRef string `json:"source_ref"` // id returned by the source upload endpoint
}

type GradeCardRequest struct {
	Grade string `json:"grade"` // "easy" | "medium" | "hard"
}

// QAPair is the unit the generation gateway returns, exactly five per request.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type DashboardStats struct {
	TotalCards     int     `json:"total_cards"`
	AverageMastery float64 `json:"average_mastery"`
	DueNow         int     `json:"due_now"`
}
