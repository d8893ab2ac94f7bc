package model

import (
	"encoding/json"
	"fmt"
)

// QuestionShape records which payload layout a question arrived in.
type QuestionShape string

const (
	// ShapeOptions is the current layout with per-option correctness.
	ShapeOptions QuestionShape = "options"
	// ShapeLegacy is a flat option list plus a single correct string.
	ShapeLegacy QuestionShape = "legacy"
)

// AnswerOption is one selectable answer.
type AnswerOption struct {
	Text      string `json:"text"`
	Rationale string `json:"rationale,omitempty"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question is a quiz question normalized to the per-option layout.
type Question struct {
	Prompt   string         `json:"question"`
	Hint     string         `json:"hint,omitempty"`
	Category string         `json:"category,omitempty"`
	Options  []AnswerOption `json:"answerOptions"`
	Shape    QuestionShape  `json:"shape"`
}

type questionWire struct {
	Question      string          `json:"question"`
	Hint          string          `json:"hint"`
	Category      string          `json:"category"`
	AnswerOptions []AnswerOption  `json:"answerOptions"`
	Options       json.RawMessage `json:"options"`
	Correct       string          `json:"correct"`
}

// UnmarshalJSON accepts both the answerOptions layout and the legacy
// options+correct layout. Legacy correctness is text equality.
func (q *Question) UnmarshalJSON(data []byte) error {
	var w questionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*q = Question{Prompt: w.Question, Hint: w.Hint, Category: w.Category}

	if len(w.AnswerOptions) > 0 {
		q.Options = w.AnswerOptions
		q.Shape = ShapeOptions
		return nil
	}

	if len(w.Options) == 0 || string(w.Options) == "null" {
		q.Shape = ShapeOptions
		return nil
	}

	// Some backends reuse "options" for option objects.
	var objs []AnswerOption
	if err := json.Unmarshal(w.Options, &objs); err == nil {
		q.Options = objs
		q.Shape = ShapeOptions
		return nil
	}

	var texts []string
	if err := json.Unmarshal(w.Options, &texts); err != nil {
		return fmt.Errorf("question options: %w", err)
	}
	q.Shape = ShapeLegacy
	q.Options = make([]AnswerOption, len(texts))
	for i, t := range texts {
		q.Options[i] = AnswerOption{Text: t, IsCorrect: t == w.Correct}
	}
	return nil
}

// Quiz is a generated question set. It is not mutated after generation.
type Quiz struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Tier is the fixed feedback band for a quiz percentage.
type Tier string

const (
	TierPerfect   Tier = "perfect"
	TierExcellent Tier = "excellent"
	TierReview    Tier = "review"
	TierGood      Tier = "good"
)

// TierFor maps a percentage to its feedback tier.
func TierFor(percentage int) Tier {
	switch {
	case percentage == 100:
		return TierPerfect
	case percentage >= 80:
		return TierExcellent
	case percentage < 60:
		return TierReview
	default:
		return TierGood
	}
}
