// Package prompts renders the generation prompts from embedded templates.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var embedded embed.FS

// Input limits in runes.
const (
	MaxInputRunes   = 10000
	MaxSummaryRunes = 15000
)

// TopicCount is how many topics are requested.
const TopicCount = 5

// Kind names one prompt template.
type Kind string

const (
	KindTopics  Kind = "topics"
	KindQuiz    Kind = "quiz"
	KindExplain Kind = "explain"
	KindSummary Kind = "summary"
)

var kinds = []Kind{KindTopics, KindQuiz, KindExplain, KindSummary}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[Kind]*template.Template
)

// TopicsData holds template data for topic extraction.
type TopicsData struct {
	Count int
	Text  string
}

// QuizData holds template data for quiz generation.
type QuizData struct {
	NumQuestions int
	Difficulty   string
	Text         string
}

// ExplainData holds template data for topic explanations.
type ExplainData struct {
	Topic string
	Text  string
}

// SummaryData holds template data for summaries.
type SummaryData struct {
	Text string
}

// Load parses the prompt templates. A nil fsys uses the embedded set.
// Templates are loaded only once.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		if fsys == nil {
			fsys = embedded
		}
		templates = make(map[Kind]*template.Template, len(kinds))
		for _, k := range kinds {
			file := "templates/" + string(k) + ".txt"
			content, err := fs.ReadFile(fsys, file)
			if err != nil {
				loadErr = errors.New("failed to read prompt file " + file + ": " + err.Error())
				return
			}
			tmpl, err := template.New(string(k)).Parse(string(content))
			if err != nil {
				loadErr = errors.New("failed to parse prompt template " + file + ": " + err.Error())
				return
			}
			templates[k] = tmpl
		}
	})
	return loadErr
}

func render(k Kind, data any) (string, error) {
	if err := Load(nil); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}
	tmpl, ok := templates[k]
	if !ok {
		return "", errors.New("unknown prompt: " + string(k))
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Topics builds the topic extraction prompt.
func Topics(text string) (string, error) {
	return render(KindTopics, TopicsData{Count: TopicCount, Text: Truncate(text, MaxInputRunes)})
}

// Quiz builds the quiz generation prompt.
func Quiz(text string, numQuestions int, difficulty string) (string, error) {
	return render(KindQuiz, QuizData{
		NumQuestions: numQuestions,
		Difficulty:   difficulty,
		Text:         Truncate(text, MaxInputRunes),
	})
}

// Explain builds the topic explanation prompt.
func Explain(topic, text string) (string, error) {
	return render(KindExplain, ExplainData{
		Topic: strings.TrimSpace(topic),
		Text:  Truncate(text, MaxInputRunes),
	})
}

// Summary builds the summary prompt.
func Summary(text string) (string, error) {
	return render(KindSummary, SummaryData{Text: Truncate(text, MaxSummaryRunes)})
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
