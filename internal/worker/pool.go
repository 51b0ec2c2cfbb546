package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"flashmind-backend/internal/models"
	"flashmind-backend/internal/repository"
	"flashmind-backend/internal/services"
)

const flashcardQueue = "queue:flashcard-generation"

type Pool struct {
	redis       *redis.Client
	gemini      *services.GeminiService
	fileExtract *services.FileExtractService
	jobRepo     *repository.JobRepo
	flashRepo   *repository.FlashcardRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	gemini *services.GeminiService,
	fileExtract *services.FileExtractService,
	jobRepo *repository.JobRepo,
	flashRepo *repository.FlashcardRepo,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		gemini:      gemini,
		fileExtract: fileExtract,
		jobRepo:     jobRepo,
		flashRepo:   flashRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, flashcardQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		// Parse job
		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s", id, job.ID)

		// Update status
		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")

		// Publish status update
		p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
			Type: "status_update",
			Payload: models.StatusUpdate{
				JobID:    job.ID,
				Step:     1,
				StepName: "Reading study material",
			},
		})

		cardCount, processErr := p.processFlashcard(ctx, &job)
		if processErr != nil {
			p.handleFailure(ctx, &job, processErr)
		} else {
			p.handleSuccess(ctx, &job, cardCount)
		}

		// Release lock
		p.redis.Del(ctx, lockKey)
	}
}

// processFlashcard resolves the job's source material and creates the
// generated cards. A source file is either an image of notes, handed to the
// model as-is, or a .txt/.pdf whose extracted text joins any request text.
func (p *Pool) processFlashcard(ctx context.Context, job *models.Job) (int, error) {
	var config models.GenerationConfig
	if err := json.Unmarshal(job.ConfigJSON, &config); err != nil {
		return 0, fmt.Errorf("failed to parse job config: %w", err)
	}

	text := config.Text
	var image []byte

	if config.SourcePath != "" {
		if strings.HasPrefix(config.SourceMIME, "image/") {
			fileBytes, err := os.ReadFile(config.SourcePath)
			if err != nil {
				return 0, fmt.Errorf("failed to read source image: %w", err)
			}
			image = fileBytes
		} else {
			extracted, err := p.fileExtract.ExtractTextFromPath(config.SourcePath)
			if err != nil {
				return 0, fmt.Errorf("failed to extract source text: %w", err)
			}
			if text == "" {
				text = extracted
			} else {
				text = text + "\n\n" + extracted
			}
		}
	}

	p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID:    job.ID,
			Step:     2,
			StepName: "Generating flashcards",
		},
	})

	pairs, err := p.gemini.GenerateFlashcards(ctx, text, image, config.SourceMIME)
	if err != nil {
		return 0, err
	}

	cards := make([]models.Flashcard, len(pairs))
	for i, pair := range pairs {
		cards[i] = models.Flashcard{
			Question: pair.Question,
			Answer:   pair.Answer,
		}
	}

	if err := p.flashRepo.CreateMany(ctx, job.UserID, cards); err != nil {
		return 0, fmt.Errorf("failed to save flashcards: %w", err)
	}

	return len(cards), nil
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job, cardCount int) {
	p.jobRepo.UpdateStatus(ctx, job.ID, "completed")

	p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:     job.ID,
			CardCount: cardCount,
		},
	})

	log.Printf("Job %s completed successfully", job.ID)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()

	if job.RetryCount < job.MaxRetries {
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "pending")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		// Re-queue after backoff
		jobBytes, _ := json.Marshal(job)
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), flashcardQueue, string(jobBytes))
		})
	} else {
		log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "failed")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
			Type: "error",
			Payload: models.ErrorEvent{
				JobID:        job.ID,
				ErrorCode:    "JOB_FAILED",
				ErrorMessage: errMsg,
			},
		})
	}
}
