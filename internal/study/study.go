// Package study implements the AI-backed study operations: topic
// extraction, quiz generation, topic explanation and summaries.
package study

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/pavelanni/examprep/internal/llm"
	"github.com/pavelanni/examprep/internal/llm/prompts"
	"github.com/pavelanni/examprep/internal/model"
)

// Quiz defaults applied when the request leaves them unset.
const (
	DefaultNumQuestions = 5
	DefaultDifficulty   = model.DifficultyMedium
)

// Input errors. Handlers map them to 400 responses.
var (
	ErrNoText       = errors.New("No text provided")
	ErrMissingTopic = errors.New("Missing context or topic name")
	ErrNoQuestions  = errors.New("AI returned no questions")
)

// Generator sends a prompt to a provider chain.
type Generator interface {
	Generate(ctx context.Context, provider, model string, req llm.Request) (*llm.Response, error)
}

// Service runs study operations against a Generator.
type Service struct {
	gen    Generator
	logger *slog.Logger
}

// New creates a Service.
func New(gen Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gen: gen, logger: logger}
}

func (s *Service) generate(ctx context.Context, endpoint, prompt string, sel model.Settings) (string, error) {
	resp, err := s.gen.Generate(ctx, sel.Provider, sel.Model, llm.Request{Prompt: prompt})
	if err != nil {
		return "", &model.AIResponseError{Endpoint: endpoint, Message: err.Error(), Err: err}
	}
	s.logger.Info("AI response", "endpoint", endpoint, "provider", resp.Provider,
		"model", resp.Model, "chars", len(resp.Text))
	return resp.Text, nil
}

// Topics extracts the most important topics from text.
func (s *Service) Topics(ctx context.Context, text string, sel model.Settings) ([]model.Topic, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}
	prompt, err := prompts.Topics(text)
	if err != nil {
		return nil, err
	}
	out, err := s.generate(ctx, "generate-topics", prompt, sel)
	if err != nil {
		return nil, err
	}
	topics, err := llm.ParseTopics(out)
	if err != nil {
		return nil, &model.AIResponseError{Endpoint: "generate-topics", Message: "malformed topics", Err: err}
	}
	return topics, nil
}

// Quiz generates a question set. Zero values in cfg take the defaults.
// An empty question list is an error.
func (s *Service) Quiz(ctx context.Context, text string, cfg model.QuizConfig, sel model.Settings) (*model.Quiz, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}
	if cfg.NumQuestions <= 0 {
		cfg.NumQuestions = DefaultNumQuestions
	}
	if cfg.Difficulty == "" {
		cfg.Difficulty = DefaultDifficulty
	}

	prompt, err := prompts.Quiz(text, cfg.NumQuestions, string(cfg.Difficulty))
	if err != nil {
		return nil, err
	}
	out, err := s.generate(ctx, "generate-quiz", prompt, sel)
	if err != nil {
		return nil, err
	}
	quiz, err := llm.ParseQuiz(out)
	if err != nil {
		return nil, &model.AIResponseError{Endpoint: "generate-quiz", Message: "malformed quiz", Err: err}
	}
	if len(quiz.Questions) == 0 {
		return nil, &model.AIResponseError{Endpoint: "generate-quiz", Message: ErrNoQuestions.Error(), Err: ErrNoQuestions}
	}
	return quiz, nil
}

// Explain explains topic in the context of text.
func (s *Service) Explain(ctx context.Context, topic, text string, sel model.Settings) (string, error) {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(topic) == "" {
		return "", ErrMissingTopic
	}
	prompt, err := prompts.Explain(topic, text)
	if err != nil {
		return "", err
	}
	return s.generate(ctx, "explain-topic", prompt, sel)
}

// Summary summarizes text in at most three paragraphs.
func (s *Service) Summary(ctx context.Context, text string, sel model.Settings) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	prompt, err := prompts.Summary(text)
	if err != nil {
		return "", err
	}
	return s.generate(ctx, "generate-summary", prompt, sel)
}

// AssistantContext is the synthesized context used for free-form questions.
func AssistantContext(query string) string {
	return "The user is asking an academic question about: " + strings.TrimSpace(query) +
		". Provide a detailed, pedagogical, and clear explanation."
}

// IsInputError reports whether err is a caller mistake rather than a
// backend failure.
func IsInputError(err error) bool {
	return errors.Is(err, ErrNoText) || errors.Is(err, ErrMissingTopic)
}
