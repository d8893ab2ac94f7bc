// Package quiz implements the quiz state machine: one question at a time,
// one answer per question, explicit advance, score at the end.
package quiz

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pavelanni/examprep/internal/model"
)

// State is the engine's position in the quiz flow.
type State string

const (
	StateIdle     State = "idle"
	StateLoading  State = "loading"
	StateActive   State = "active"
	StateFeedback State = "feedback"
	StateResults  State = "results"
)

var (
	ErrBusy          = errors.New("quiz is already in progress")
	ErrNotLoading    = errors.New("no quiz is being generated")
	ErrNoQuestions   = errors.New("quiz has no questions")
	ErrTooFewOptions = errors.New("question has too few answer options")
	ErrNotActive     = errors.New("no question is awaiting an answer")
	ErrNotAnswered   = errors.New("current question has not been answered")
	ErrInvalidOption = errors.New("answer option out of range")
)

// OptionView is an answer option as shown to the user. Correctness and
// rationale are revealed only once the question is answered.
type OptionView struct {
	Text      string `json:"text"`
	Rationale string `json:"rationale,omitempty"`
	IsCorrect *bool  `json:"isCorrect,omitempty"`
	Selected  bool   `json:"selected,omitempty"`
}

// QuestionView is the current question.
type QuestionView struct {
	Prompt   string       `json:"question"`
	Hint     string       `json:"hint,omitempty"`
	Category string       `json:"category,omitempty"`
	Options  []OptionView `json:"answerOptions"`
}

// Result is the summary shown on the results view.
type Result struct {
	Total      int        `json:"total"`
	Correct    int        `json:"correct"`
	Incorrect  int        `json:"incorrect"`
	Percentage int        `json:"percentage"`
	Tier       model.Tier `json:"tier"`
	Elapsed    int        `json:"elapsed_seconds"`
}

// Snapshot is a consistent copy of the engine state.
type Snapshot struct {
	State     State         `json:"state"`
	Title     string        `json:"title,omitempty"`
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Score     int           `json:"score"`
	Correct   int           `json:"correct"`
	Incorrect int           `json:"incorrect"`
	Timer     bool          `json:"timer"`
	Elapsed   int           `json:"elapsed_seconds"`
	Question  *QuestionView `json:"question,omitempty"`
	// LastCorrect reports the outcome of the answered question in Feedback.
	LastCorrect *bool   `json:"lastCorrect,omitempty"`
	Result      *Result `json:"result,omitempty"`
}

// Engine is safe for concurrent use. The zero value is not usable; call
// NewEngine.
type Engine struct {
	mu  sync.Mutex
	now func() time.Time

	state     State
	cfg       model.QuizConfig
	quiz      *model.Quiz
	index     int
	correct   int
	incorrect int
	selected  int
	answered  bool

	started time.Time
	elapsed time.Duration
	result  *Result
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine returns an idle engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, o := range opts {
		o(e)
	}
	e.resetLocked()
	return e
}

// Begin records the configuration and moves Idle or Results to Loading.
func (e *Engine) Begin(cfg model.QuizConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle && e.state != StateResults {
		return ErrBusy
	}
	e.resetLocked()
	e.cfg = cfg
	e.state = StateLoading
	return nil
}

// Load installs the generated quiz and moves Loading to Active(0).
// An empty quiz returns the engine to Idle.
func (e *Engine) Load(q *model.Quiz) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateLoading {
		return ErrNotLoading
	}
	if q == nil || len(q.Questions) == 0 {
		e.resetLocked()
		return ErrNoQuestions
	}
	for i, question := range q.Questions {
		if len(question.Options) < 2 {
			e.resetLocked()
			return fmt.Errorf("question %d: %w", i+1, ErrTooFewOptions)
		}
	}
	e.quiz = q
	e.index = 0
	e.state = StateActive
	e.started = e.now()
	return nil
}

// Fail abandons a quiz that could not be generated.
func (e *Engine) Fail() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateLoading {
		e.resetLocked()
	}
}

// Reset discards any quiz and returns to Idle.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.state = StateIdle
	e.cfg = model.QuizConfig{}
	e.quiz = nil
	e.index = 0
	e.correct = 0
	e.incorrect = 0
	e.selected = -1
	e.answered = false
	e.started = time.Time{}
	e.elapsed = 0
	e.result = nil
}

// Select answers the current question and moves Active(i) to Feedback(i).
// Selecting again on an answered question changes nothing.
func (e *Engine) Select(option int) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateFeedback && e.answered {
		return e.snapshotLocked(), nil
	}
	if e.state != StateActive {
		return e.snapshotLocked(), ErrNotActive
	}
	q := e.quiz.Questions[e.index]
	if option < 0 || option >= len(q.Options) {
		return e.snapshotLocked(), fmt.Errorf("%w: %d of %d", ErrInvalidOption, option, len(q.Options))
	}

	e.answered = true
	e.selected = option
	if q.Options[option].IsCorrect {
		e.correct++
	} else {
		e.incorrect++
	}
	e.state = StateFeedback
	return e.snapshotLocked(), nil
}

// Next moves Feedback(i) to Active(i+1), or to Results after the last
// question.
func (e *Engine) Next() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateFeedback {
		return e.snapshotLocked(), ErrNotAnswered
	}
	e.answered = false
	e.selected = -1

	if e.index+1 >= len(e.quiz.Questions) {
		e.finishLocked()
		return e.snapshotLocked(), nil
	}
	e.index++
	e.state = StateActive
	return e.snapshotLocked(), nil
}

func (e *Engine) finishLocked() {
	if e.cfg.Timer {
		e.elapsed = e.now().Sub(e.started).Truncate(time.Second)
	}
	total := len(e.quiz.Questions)
	pct := Percentage(e.correct, total)
	e.result = &Result{
		Total:      total,
		Correct:    e.correct,
		Incorrect:  e.incorrect,
		Percentage: pct,
		Tier:       model.TierFor(pct),
		Elapsed:    int(e.elapsed / time.Second),
	}
	e.state = StateResults
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Config returns the configuration of the current attempt.
func (e *Engine) Config() model.QuizConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		State:     e.state,
		Index:     e.index,
		Score:     e.correct,
		Correct:   e.correct,
		Incorrect: e.incorrect,
		Timer:     e.cfg.Timer,
	}
	if e.quiz != nil {
		s.Title = e.quiz.Title
		s.Total = len(e.quiz.Questions)
	}

	switch e.state {
	case StateActive, StateFeedback:
		if e.cfg.Timer {
			s.Elapsed = int(e.now().Sub(e.started) / time.Second)
		}
		s.Question = e.questionViewLocked()
		if e.state == StateFeedback {
			ok := e.quiz.Questions[e.index].Options[e.selected].IsCorrect
			s.LastCorrect = &ok
		}
	case StateResults:
		r := *e.result
		s.Result = &r
		s.Elapsed = r.Elapsed
	}
	return s
}

func (e *Engine) questionViewLocked() *QuestionView {
	q := e.quiz.Questions[e.index]
	v := &QuestionView{
		Prompt:   q.Prompt,
		Hint:     q.Hint,
		Category: q.Category,
		Options:  make([]OptionView, len(q.Options)),
	}
	for i, o := range q.Options {
		ov := OptionView{Text: o.Text}
		if e.answered {
			correct := o.IsCorrect
			ov.IsCorrect = &correct
			ov.Rationale = o.Rationale
			ov.Selected = i == e.selected
		}
		v.Options[i] = ov
	}
	return v
}

// Percentage returns round(score/total*100), or 0 for an empty quiz.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}
