package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashmind-backend/internal/models"
)

type FlashcardRepo struct {
	pool *pgxpool.Pool
}

func NewFlashcardRepo(pool *pgxpool.Pool) *FlashcardRepo {
	return &FlashcardRepo{pool: pool}
}

// CreateMany persists a generated card set in one round trip. IDs are
// assigned here; topic falls back to the default label; mastery starts at 0
// with the card due immediately.
func (r *FlashcardRepo) CreateMany(ctx context.Context, userID uuid.UUID, cards []models.Flashcard) error {
	now := time.Now()

	batch := &pgx.Batch{}
	for i := range cards {
		cards[i].ID = uuid.New()
		cards[i].UserID = userID
		if cards[i].Topic == "" {
			cards[i].Topic = models.DefaultTopic
		}
		cards[i].MasteryLevel = 0
		cards[i].NextReviewAt = now
		cards[i].CreatedAt = now

		batch.Queue(
			`INSERT INTO flashcards (id, user_id, question, answer, topic, mastery_level, next_review_at, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			cards[i].ID, userID, cards[i].Question, cards[i].Answer, cards[i].Topic, 0, now, now,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range cards {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListByUser returns the user's cards in display order.
func (r *FlashcardRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Flashcard, error) {
	query := `SELECT id, user_id, question, answer, topic, mastery_level, next_review_at, created_at
		FROM flashcards WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.Flashcard
	for rows.Next() {
		c := models.Flashcard{}
		err := rows.Scan(&c.ID, &c.UserID, &c.Question, &c.Answer, &c.Topic, &c.MasteryLevel, &c.NextReviewAt, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// ApplyReview increments the card's mastery and overwrites its next review
// time, conditioned on both id and owner. A (id, owner) mismatch affects
// zero rows and is reported, not raised: ownership is enforced by the filter.
// The increment happens in SQL so racing grades accumulate instead of
// overwriting each other.
func (r *FlashcardRepo) ApplyReview(ctx context.Context, cardID, userID uuid.UUID, masteryDelta int, nextReviewAt time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE flashcards SET mastery_level = mastery_level + $1, next_review_at = $2
		 WHERE id = $3 AND user_id = $4`,
		masteryDelta, nextReviewAt, cardID, userID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Stats powers the dashboard's overall-mastery bar.
func (r *FlashcardRepo) Stats(ctx context.Context, userID uuid.UUID) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(LEAST(mastery_level, 100)), 0)
		 FROM flashcards WHERE user_id = $1`,
		userID,
	).Scan(&stats.TotalCards, &stats.AverageMastery)
	if err != nil {
		return nil, err
	}

	err = r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM flashcards WHERE user_id = $1 AND next_review_at <= NOW()",
		userID,
	).Scan(&stats.DueNow)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
