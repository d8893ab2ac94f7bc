package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pavelanni/examprep/internal/model"
)

// DefaultQuizTitle names quizzes returned as a bare question list.
const DefaultQuizTitle = "Practice Quiz"

// stripFences removes a surrounding ``` block and its "json" tag.
func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		parts := strings.Split(cleaned, "```")
		if len(parts) >= 3 {
			cleaned = strings.TrimPrefix(parts[1], "json")
		}
	}
	return strings.TrimSpace(cleaned)
}

// jsonSpan returns the outermost object or array in text, whichever opens
// first, and whether it is an array.
func jsonSpan(text string) (string, bool, error) {
	obj := strings.Index(text, "{")
	arr := strings.Index(text, "[")

	if arr != -1 && (obj == -1 || arr < obj) {
		if end := strings.LastIndex(text, "]"); end > arr {
			return text[arr : end+1], true, nil
		}
	}
	if obj != -1 {
		if end := strings.LastIndex(text, "}"); end > obj {
			return text[obj : end+1], false, nil
		}
	}
	return "", false, errors.New("AI did not return valid JSON structure")
}

// ParseQuiz extracts a quiz from model output. A bare question list is
// wrapped with DefaultQuizTitle. Both option layouts are accepted.
func ParseQuiz(text string) (*model.Quiz, error) {
	span, isList, err := jsonSpan(stripFences(text))
	if err != nil {
		return nil, &ErrInvalidResponse{Content: text, Err: err}
	}
	if isList {
		span = `{"title":` + mustQuote(DefaultQuizTitle) + `,"questions":` + span + `}`
	}
	if err := validateJSON(quizSchema, span); err != nil {
		return nil, err
	}

	var quiz model.Quiz
	if err := json.Unmarshal([]byte(span), &quiz); err != nil {
		return nil, &ErrInvalidResponse{Content: text, Err: fmt.Errorf("decode quiz: %w", err)}
	}
	if quiz.Title == "" {
		quiz.Title = DefaultQuizTitle
	}
	return &quiz, nil
}

// ParseTopics extracts a topic list from model output. A single topic
// object is wrapped into a list.
func ParseTopics(text string) ([]model.Topic, error) {
	span, isList, err := jsonSpan(stripFences(text))
	if err != nil {
		return nil, &ErrInvalidResponse{Content: text, Err: err}
	}
	if !isList {
		span = "[" + span + "]"
	}
	if err := validateJSON(topicsSchema, span); err != nil {
		return nil, err
	}

	var topics []model.Topic
	if err := json.Unmarshal([]byte(span), &topics); err != nil {
		return nil, &ErrInvalidResponse{Content: text, Err: fmt.Errorf("decode topics: %w", err)}
	}
	return topics, nil
}

func mustQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
