package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"flashmind-backend/internal/models"
)

const (
	// The generation gateway contract: a flashcard request yields exactly
	// this many question/answer pairs, a distractor request exactly this
	// many incorrect options.
	FlashcardsPerGeneration = 5
	DistractorsPerQuestion  = 3
)

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	redis    *redis.Client
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey string, concurrentReqs int, redisClient *redis.Client) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		redis:    redisClient,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// PublishUpdate sends a WebSocket update via Redis pub/sub
func (s *GeminiService) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	s.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", userID.String()), string(data))
}

// GenerateFlashcards turns study text and/or an image of notes into exactly
// five question/answer pairs. Anything short of a clean five-pair response is
// treated as total failure; there is no partial salvage.
func (s *GeminiService) GenerateFlashcards(ctx context.Context, text string, image []byte, imageMIME string) ([]models.QAPair, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	parts := []genai.Part{genai.Text(buildFlashcardPrompt(text, len(image) > 0))}
	if len(image) > 0 {
		parts = append(parts, genai.Blob{MIMEType: imageMIME, Data: image})
	}

	resp, err := s.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	pairs, err := parseFlashcardResponse(extractText(resp))
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// GenerateDistractors returns exactly three plausible but incorrect
// multiple-choice options for the given question and answer.
func (s *GeminiService) GenerateDistractors(ctx context.Context, question, correctAnswer string) ([]string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildDistractorPrompt(question, correctAnswer)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	distractors, err := parseDistractorResponse(extractText(resp))
	if err != nil {
		return nil, err
	}
	return distractors, nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}

func buildFlashcardPrompt(text string, hasImage bool) string {
	var b strings.Builder

	b.WriteString("You are an expert flashcard creator. Create study flashcards (question and answer pairs) from the material below.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(fmt.Sprintf("Generate exactly %d flashcards. Key points only.\n", FlashcardsPerGeneration))

	if hasImage {
		b.WriteString("An image of handwritten or printed notes is attached. Read it and treat its contents as source material alongside any text.\n")
	}

	b.WriteString(`
JSON schema per card:
{"question": "the specific question based on the material", "answer": "the concise answer to the question"}
`)

	if text != "" {
		b.WriteString("\n---TEXT---\n")
		b.WriteString(text)
		b.WriteString("\n---END---\n")
	}

	return b.String()
}

func buildDistractorPrompt(question, correctAnswer string) string {
	var b strings.Builder

	b.WriteString("Given the following question and its correct answer, generate plausible but incorrect multiple-choice distractors.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array of strings. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(fmt.Sprintf("Generate exactly %d distractors. None may equal the correct answer.\n\n", DistractorsPerQuestion))
	b.WriteString("QUESTION: ")
	b.WriteString(question)
	b.WriteString("\nCORRECT ANSWER: ")
	b.WriteString(correctAnswer)
	b.WriteString("\n")

	return b.String()
}

func parseFlashcardResponse(raw string) ([]models.QAPair, error) {
	rawText := stripCodeFence(raw)

	var pairs []models.QAPair
	if err := json.Unmarshal([]byte(rawText), &pairs); err != nil {
		// Try to extract the JSON array
		start := strings.Index(rawText, "[")
		end := strings.LastIndex(rawText, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("flashcard generation failed: unparseable response")
		}
		if err := json.Unmarshal([]byte(rawText[start:end+1]), &pairs); err != nil {
			return nil, fmt.Errorf("flashcard generation failed: unparseable response")
		}
	}

	if len(pairs) != FlashcardsPerGeneration {
		return nil, fmt.Errorf("flashcard generation failed: expected %d cards, got %d", FlashcardsPerGeneration, len(pairs))
	}
	for _, p := range pairs {
		if strings.TrimSpace(p.Question) == "" || strings.TrimSpace(p.Answer) == "" {
			return nil, fmt.Errorf("flashcard generation failed: empty question or answer")
		}
	}
	return pairs, nil
}

func parseDistractorResponse(raw string) ([]string, error) {
	rawText := stripCodeFence(raw)

	var distractors []string
	if err := json.Unmarshal([]byte(rawText), &distractors); err != nil {
		start := strings.Index(rawText, "[")
		end := strings.LastIndex(rawText, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("distractor generation failed: unparseable response")
		}
		if err := json.Unmarshal([]byte(rawText[start:end+1]), &distractors); err != nil {
			return nil, fmt.Errorf("distractor generation failed: unparseable response")
		}
	}

	if len(distractors) != DistractorsPerQuestion {
		return nil, fmt.Errorf("distractor generation failed: expected %d options, got %d", DistractorsPerQuestion, len(distractors))
	}
	for _, d := range distractors {
		if strings.TrimSpace(d) == "" {
			return nil, fmt.Errorf("distractor generation failed: empty option")
		}
	}
	return distractors, nil
}
