package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/docsage/docsage/internal/api"
	"github.com/go-chi/chi/v5"
)

type AskService interface {
	Answer(ctx context.Context, question, userID string) string
	ClearHistory(userID string)
}

type AskHandler struct {
	svc AskService
}

func NewAskHandler(svc AskService) *AskHandler {
	return &AskHandler{svc: svc}
}

type AskRequest struct {
	Question string `json:"question"`
	UserID   string `json:"user_id"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}

// Ask runs one question through the answer pipeline. Pipeline failures come
// back as a user-facing answer string, so this endpoint only errors on bad
// input.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	answer := h.svc.Answer(r.Context(), req.Question, req.UserID)
	api.Success(w, http.StatusOK, AskResponse{Answer: answer})
}

// ClearHistory drops the user's conversation memory.
func (h *AskHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "user id is required")
		return
	}

	h.svc.ClearHistory(userID)
	api.Success(w, http.StatusOK, map[string]string{"status": "cleared"})
}
