package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	appI18n "github.com/pavelanni/examprep/internal/i18n"
	"github.com/pavelanni/examprep/internal/llm"
	"github.com/pavelanni/examprep/internal/markdown"
	"github.com/pavelanni/examprep/internal/model"
	"github.com/pavelanni/examprep/internal/parser"
	"github.com/pavelanni/examprep/internal/study"
)

// maxSuggestions bounds the assistant prompt suggestions.
const maxSuggestions = 6

// aiRequest is the body of the stateless AI endpoints.
type aiRequest struct {
	Text         string           `json:"text"`
	Provider     string           `json:"provider"`
	Model        string           `json:"model"`
	NumQuestions int              `json:"numQuestions" validate:"omitempty,min=1,max=50"`
	Difficulty   model.Difficulty `json:"difficulty" validate:"omitempty,oneof=Easy Medium Hard"`
	Topic        string           `json:"topic"`
}

// selection names the backend for a stateless call. Callers that name no
// provider get Gemini first.
func (req aiRequest) selection() model.Settings {
	provider := req.Provider
	if provider == "" {
		provider = llm.ProviderGemini
	}
	return model.Settings{Provider: provider, Model: req.Model}
}

func (h *Handler) handleParseFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, parser.Result{Error: "No file uploaded"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, parser.Result{Error: "failed to read file"})
		return
	}

	name := strings.ToLower(header.Filename)
	text, err := h.parser.Parse(r.Context(), name, data)
	switch {
	case errors.Is(err, parser.ErrNoText):
		writeJSON(w, http.StatusBadRequest, parser.Result{Error: err.Error()})
		return
	case err != nil:
		slog.Warn("parse failed", "filename", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, parser.Result{Error: err.Error()})
		return
	}

	slog.Info("parsed file", "filename", name, "bytes", len(data), "chars", utf8.RuneCountInString(text))
	writeJSON(w, http.StatusOK, parser.Result{
		Success:  true,
		Text:     text,
		Filename: name,
		Length:   utf8.RuneCountInString(text),
	})
}

func (h *Handler) handleGenerateTopics(w http.ResponseWriter, r *http.Request) {
	var req aiRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	topics, err := h.study.Topics(r.Context(), req.Text, req.selection())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "topics": topics})
}

func (h *Handler) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req aiRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	cfg := model.QuizConfig{NumQuestions: req.NumQuestions, Difficulty: req.Difficulty}
	quiz, err := h.study.Quiz(r.Context(), req.Text, cfg, req.selection())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "quiz": quiz})
}

func (h *Handler) handleExplainTopic(w http.ResponseWriter, r *http.Request) {
	var req aiRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	text, err := h.study.Explain(r.Context(), req.Topic, req.Text, req.selection())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "explanation": text})
}

func (h *Handler) handleGenerateSummary(w http.ResponseWriter, r *http.Request) {
	var req aiRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	text, err := h.study.Summary(r.Context(), req.Text, req.selection())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "summary": text})
}

func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	loaded := h.state(r).LoadedCourses()
	if len(loaded) > maxSuggestions {
		loaded = loaded[:maxSuggestions]
	}
	out := make([]string, len(loaded))
	for i, c := range loaded {
		out[i] = appI18n.Td(r.Context(), "AssistantSuggestion", map[string]any{"Course": c.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "suggestions": out})
}

type assistantRequest struct {
	Query string `json:"query" validate:"required"`
}

func (h *Handler) handleAssistant(w http.ResponseWriter, r *http.Request) {
	var req assistantRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	text, err := h.study.Explain(r.Context(), req.Query, study.AssistantContext(req.Query), h.settings(r))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"query":       req.Query,
		"explanation": text,
		"html":        markdown.Render(text),
	})
}
