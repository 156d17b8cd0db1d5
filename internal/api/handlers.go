package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/georgiosbirmpakos/derbychat/internal/chat"
	"github.com/georgiosbirmpakos/derbychat/internal/conversation"
	"github.com/georgiosbirmpakos/derbychat/internal/log"
)

// Asker is the pipeline surface the chat handler needs.
// *chat.Pipeline satisfies it.
type Asker interface {
	Ask(ctx context.Context, question string) (conversation.Turn, error)
}

// maxQuestionBytes bounds the request body size.
const maxQuestionBytes = 64 << 10

type chatHandler struct {
	pipeline  Asker
	log       *conversation.Log
	exportDir string
	logger    log.Logger
}

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	Answer    string    `json:"answer"`
	Sources   []string  `json:"sources"`
	Timestamp time.Time `json:"timestamp"`
}

// send answers one question. An empty question is a 400; a pipeline failure
// is a 502 with a Greek error payload (the error turn is still recorded by
// the pipeline).
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuestionBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid JSON body", h.logger)
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "empty_question", "question cannot be empty", h.logger)
		return
	}

	turn, err := h.pipeline.Ask(r.Context(), req.Question)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:     "pipeline_failed",
			Message:   turn.Answer, // the recorded Greek Σφάλμα message
			Timestamp: turn.Timestamp,
		}, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Answer:    turn.Answer,
		Sources:   turn.Sources,
		Timestamp: turn.Timestamp,
	}, h.logger)
}

type historyResponse struct {
	History []conversation.Turn `json:"history"`
	Total   int                 `json:"total"`
}

func (h *chatHandler) history(w http.ResponseWriter, _ *http.Request) {
	turns := h.log.History()
	writeJSON(w, http.StatusOK, historyResponse{
		History: turns,
		Total:   len(turns),
	}, h.logger)
}

func (h *chatHandler) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.log.Stats(), h.logger)
}

func (h *chatHandler) clear(w http.ResponseWriter, _ *http.Request) {
	msg := h.log.Clear()
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   msg,
		"timestamp": time.Now(),
	}, h.logger)
}

func (h *chatHandler) export(w http.ResponseWriter, _ *http.Request) {
	filename, err := h.log.Export(h.exportDir)
	if err != nil {
		h.logger.Error("conversation export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "export_failed", "could not export conversation", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"filename":  filename,
		"message":   "Συνομιλία εξήχθη στο αρχείο: " + filename,
		"timestamp": time.Now(),
	}, h.logger)
}

func (h *chatHandler) sampleQuestions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sample_questions": chat.SampleQuestions,
		"total_questions":  len(chat.SampleQuestions),
	}, h.logger)
}

// index describes the API surface.
func (h *chatHandler) index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Greek Derby RAG Chatbot API",
		"endpoints": map[string]string{
			"chat":             "POST /chat - Ask questions about the Greek derby",
			"history":          "GET /history - Get conversation history",
			"stats":            "GET /stats - Get conversation statistics",
			"clear":            "POST /clear - Clear conversation memory",
			"export":           "GET /export - Export conversation to JSON",
			"sample-questions": "GET /sample-questions - Starter questions",
			"health":           "GET /health - Liveness probe",
			"ready":            "GET /ready - Readiness probe",
		},
	}, h.logger)
}
