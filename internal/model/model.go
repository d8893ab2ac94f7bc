package model

import (
	"strings"
	"time"
)

// FileKind is the document type inferred from a file title suffix.
type FileKind string

const (
	FileKindPDF  FileKind = "pdf"
	FileKindPPTX FileKind = "pptx"
)

// KindFromTitle infers a file kind from the title suffix (case-insensitive).
// It returns false for anything outside the pdf/pptx allow-list.
func KindFromTitle(title string) (FileKind, bool) {
	t := strings.ToLower(strings.TrimSpace(title))
	switch {
	case strings.HasSuffix(t, ".pdf"):
		return FileKindPDF, true
	case strings.HasSuffix(t, ".pptx"):
		return FileKindPPTX, true
	}
	return "", false
}

// Course is a classroom course visible to the signed-in user.
type Course struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Section string `json:"section"`
}

// FileRef references a Drive file attached to course material.
type FileRef struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Kind  FileKind `json:"kind,omitempty"`
}

// Material is one announcement, coursework item or coursework material:
// its free text plus the Drive files attached to it.
type Material struct {
	Text  string
	Files []FileRef
}

// CourseContent is the aggregated text and file list for one course.
type CourseContent struct {
	CourseID string    `json:"course_id"`
	Text     string    `json:"-"`
	Files    []FileRef `json:"files"`
	// Fallback is set when the synthesized study context replaced the
	// extracted text.
	Fallback bool `json:"fallback"`
	// Partial lists the branches that failed during aggregation.
	Partial *PartialDataError `json:"-"`
}

// Err returns the partial-data error for the aggregation pass, or nil.
func (c *CourseContent) Err() error {
	if c == nil || c.Partial == nil || len(c.Partial.Failures) == 0 {
		return nil
	}
	return c.Partial
}

// Difficulty is the requested quiz difficulty.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// QuizConfig holds the choices made on the quiz configuration view.
type QuizConfig struct {
	NumQuestions int        `json:"numQuestions" validate:"required,min=1,max=50"`
	Difficulty   Difficulty `json:"difficulty" validate:"required,oneof=Easy Medium Hard"`
	Timer        bool       `json:"timer"`
}

// Topic is one key concept extracted from course text.
type Topic struct {
	Topic       string `json:"topic"`
	Description string `json:"description"`
}

// Settings is the AI provider and model chosen by the user.
type Settings struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// DefaultSettings mirrors the defaults used when nothing has been saved.
func DefaultSettings() Settings {
	return Settings{Provider: "groq", Model: "llama-3.3-70b-versatile"}
}

// View names one screen of the client UI.
type View string

const (
	ViewLogin      View = "login"
	ViewCourses    View = "courses"
	ViewLoading    View = "loading"
	ViewActionMenu View = "action-menu"
	ViewQuizConfig View = "quiz-config"
	ViewTopics     View = "topics"
	ViewQuiz       View = "quiz"
	ViewSummary    View = "summary"
	ViewResults    View = "results"
)

// AuthSession represents a signed-in browser session and its OAuth token record.
type AuthSession struct {
	ID        string
	TokenJSON string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// QuizResult is a finished quiz attempt as recorded for export.
type QuizResult struct {
	AttemptID  string    `json:"attempt_id"`
	Device     string    `json:"device"`
	CourseID   string    `json:"course_id"`
	CourseName string    `json:"course_name"`
	Difficulty string    `json:"difficulty"`
	Total      int       `json:"total"`
	Correct    int       `json:"correct"`
	Incorrect  int       `json:"incorrect"`
	Percentage int       `json:"percentage"`
	Tier       string    `json:"tier"`
	Elapsed    int       `json:"elapsed_seconds"`
	FinishedAt time.Time `json:"finished_at"`
}
