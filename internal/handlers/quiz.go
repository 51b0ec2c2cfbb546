package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"flashmind-backend/internal/middleware"
	"flashmind-backend/internal/models"
	"flashmind-backend/internal/quiz"
	"flashmind-backend/internal/repository"
)

type QuizHandler struct {
	manager   *quiz.Manager
	flashRepo *repository.FlashcardRepo
}

func NewQuizHandler(manager *quiz.Manager, flashRepo *repository.FlashcardRepo) *QuizHandler {
	return &QuizHandler{manager: manager, flashRepo: flashRepo}
}

// Start snapshots the user's cards into a fresh session. Cards created or
// graded afterwards do not affect the running quiz.
func (h *QuizHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	cards, err := h.flashRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch flashcards", r))
		return
	}

	session, err := h.manager.Start(userID, cards)
	if err != nil {
		if errors.Is(err, quiz.ErrNoCards) {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Generate some flashcards before starting a quiz", r))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to start quiz", r))
		return
	}

	writeJSON(w, http.StatusCreated, session.View())
}

func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.manager.Get(middleware.GetUserID(r.Context()))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No quiz in progress", r))
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

func (h *QuizHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	session, ok := h.manager.Get(middleware.GetUserID(r.Context()))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No quiz in progress", r))
		return
	}

	if err := session.Answer(req.Answer); err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

func (h *QuizHandler) Retry(w http.ResponseWriter, r *http.Request) {
	session, ok := h.manager.Get(middleware.GetUserID(r.Context()))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No quiz in progress", r))
		return
	}

	if err := session.Retry(); err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

func (h *QuizHandler) Skip(w http.ResponseWriter, r *http.Request) {
	session, ok := h.manager.Get(middleware.GetUserID(r.Context()))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No quiz in progress", r))
		return
	}

	if err := session.Skip(); err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

func (h *QuizHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.manager.Cancel(middleware.GetUserID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Quiz cancelled"})
}

func (h *QuizHandler) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, quiz.ErrNotRunning):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No quiz in progress", r))
	case errors.Is(err, quiz.ErrOptionsNotReady):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Answer options are still loading or failed", r))
	case errors.Is(err, quiz.ErrOptionsNotFailed):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Only a failed question can be retried or skipped", r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
