package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"flashmind-backend/internal/middleware"
	"flashmind-backend/internal/models"
	"flashmind-backend/internal/repository"
	"flashmind-backend/internal/srs"
)

// MinGenerationTextLen matches the generation gateway contract: shorter text
// is rejected before any AI call is made.
const MinGenerationTextLen = 10

const maxSourceUploadBytes = 10 << 20 // 10 MB

type FlashcardHandler struct {
	flashRepo   *repository.FlashcardRepo
	jobRepo     *repository.JobRepo
	redis       *redis.Client
	storagePath string
}

func NewFlashcardHandler(flashRepo *repository.FlashcardRepo, jobRepo *repository.JobRepo, redisClient *redis.Client, storagePath string) *FlashcardHandler {
	return &FlashcardHandler{
		flashRepo:   flashRepo,
		jobRepo:     jobRepo,
		redis:       redisClient,
		storagePath: storagePath,
	}
}

var sourceMIMEByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".txt":  "text/plain",
	".pdf":  "application/pdf",
}

// UploadSource accepts a photo of notes or a .txt/.pdf file and stages it for
// a later generation request.
func (h *FlashcardHandler) UploadSource(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxSourceUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart form", r))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "file field is required", r))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := sourceMIMEByExt[ext]; !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unsupported file type: "+ext, r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	userDir := filepath.Join(h.storagePath, userID.String())
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store file", r))
		return
	}

	ref := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(userDir, ref))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store file", r))
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(file, maxSourceUploadBytes)); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store file", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"source_ref": ref})
}

// Generate validates the input contract (text of at least 10 characters, or
// an uploaded source) and enqueues a flashcard-generation job.
func (h *FlashcardHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateFlashcardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	userID := middleware.GetUserID(r.Context())

	config := models.GenerationConfig{Text: req.Text}

	if req.SourceRef != "" {
		sourcePath, mime, err := h.resolveSource(userID, req.SourceRef)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unknown source_ref", r))
			return
		}
		config.SourcePath = sourcePath
		config.SourceMIME = mime
	} else if len(req.Text) < MinGenerationTextLen {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Text is too short", r))
		return
	}

	configBytes, _ := json.Marshal(config)
	job := &models.Job{
		UserID:     userID,
		Type:       "flashcard-generation",
		ConfigJSON: configBytes,
	}

	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}

	jobBytes, _ := json.Marshal(job)
	h.redis.LPush(r.Context(), "queue:flashcard-generation", string(jobBytes))

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"job_id": job.ID})
}

func (h *FlashcardHandler) resolveSource(userID uuid.UUID, ref string) (path, mime string, err error) {
	// The ref is a server-issued filename; anything with a path separator
	// or an unknown extension never came from UploadSource.
	if ref != filepath.Base(ref) {
		return "", "", fmt.Errorf("invalid source ref %q", ref)
	}
	mime, ok := sourceMIMEByExt[strings.ToLower(filepath.Ext(ref))]
	if !ok {
		return "", "", fmt.Errorf("invalid source ref %q", ref)
	}

	path = filepath.Join(h.storagePath, userID.String(), ref)
	if _, err := os.Stat(path); err != nil {
		return "", "", err
	}
	return path, mime, nil
}

func (h *FlashcardHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	cards, err := h.flashRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch flashcards", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"flashcards": cards})
}

// GradeCard runs the mastery scheduler for the reviewed card. The update is
// filtered on (card, owner): a mismatch changes nothing and the response does
// not distinguish the two outcomes.
func (h *FlashcardHandler) GradeCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid card ID", r))
		return
	}

	var req models.GradeCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	grade, err := srs.ParseGrade(req.Grade)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Grade must be easy, medium or hard", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	nextReviewAt, masteryDelta := srs.Schedule(grade, time.Now())

	if _, err := h.flashRepo.ApplyReview(r.Context(), cardID, userID, masteryDelta, nextReviewAt); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update mastery", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "Card graded",
		"next_review_at": nextReviewAt,
	})
}

// ExportAnki streams the user's cards as an Anki-importable CSV.
func (h *FlashcardHandler) ExportAnki(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	cards, err := h.flashRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch flashcards", r))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="flashcards_anki.csv"`)
	w.Write(ankiCSV(cards))
}

func (h *FlashcardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	stats, err := h.flashRepo.Stats(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch stats", r))
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
