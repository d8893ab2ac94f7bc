// Package session keeps the in-memory state of each signed-in browser
// session: the course list, aggregated course content, the selected
// course, the current view and the quiz engine.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/pavelanni/examprep/internal/model"
	"github.com/pavelanni/examprep/internal/quiz"
)

// State is the per-session working set. It is safe for concurrent use.
type State struct {
	mu sync.Mutex

	courses  []model.Course
	contents map[string]*model.CourseContent
	current  string
	view     model.View

	engine     *quiz.Engine
	attemptID  string
	engineOpts []quiz.Option
}

func newState(opts []quiz.Option) *State {
	return &State{
		contents:   make(map[string]*model.CourseContent),
		view:       model.ViewCourses,
		engine:     quiz.NewEngine(opts...),
		engineOpts: opts,
	}
}

// SetCourses replaces the course list, keeping its order.
func (s *State) SetCourses(courses []model.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses = append([]model.Course(nil), courses...)
}

// Courses returns a copy of the course list.
func (s *State) Courses() []model.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Course(nil), s.courses...)
}

// Course looks up a listed course by ID.
func (s *State) Course(id string) (model.Course, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.courses {
		if c.ID == id {
			return c, true
		}
	}
	return model.Course{}, false
}

// CourseContent returns cached aggregation output for a course.
func (s *State) CourseContent(courseID string) (*model.CourseContent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contents[courseID]
	return c, ok
}

// StoreCourseContent caches aggregation output. Entries live as long as
// the session.
func (s *State) StoreCourseContent(c *model.CourseContent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contents[c.CourseID] = c
}

// LoadedCourses returns the listed courses whose content is cached, in
// list order.
func (s *State) LoadedCourses() []model.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Course
	for _, c := range s.courses {
		if _, ok := s.contents[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Select makes courseID the current course.
func (s *State) Select(courseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = courseID
}

// Current returns the current course and its content, if loaded.
func (s *State) Current() (model.Course, *model.CourseContent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == "" {
		return model.Course{}, nil, false
	}
	content, ok := s.contents[s.current]
	if !ok {
		return model.Course{}, nil, false
	}
	for _, c := range s.courses {
		if c.ID == s.current {
			return c, content, true
		}
	}
	return model.Course{ID: s.current}, content, true
}

// SetView records the view the client should show.
func (s *State) SetView(v model.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
}

// View returns the current view.
func (s *State) View() model.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Quiz returns the engine of the current attempt.
func (s *State) Quiz() (*quiz.Engine, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine, s.attemptID
}

// NewQuiz replaces the engine with a fresh one already in Loading for cfg
// and returns it with the attempt ID. It fails with quiz.ErrBusy while
// another attempt is still being generated.
func (s *State) NewQuiz(cfg model.QuizConfig) (*quiz.Engine, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine.Snapshot().State == quiz.StateLoading {
		return nil, "", quiz.ErrBusy
	}
	eng := quiz.NewEngine(s.engineOpts...)
	if err := eng.Begin(cfg); err != nil {
		return nil, "", err
	}
	s.engine = eng
	s.attemptID = uuid.NewString()
	return s.engine, s.attemptID, nil
}

// Manager maps auth session IDs to their State.
type Manager struct {
	mu         sync.Mutex
	states     map[string]*State
	engineOpts []quiz.Option
}

// NewManager creates a Manager whose quiz engines use opts.
func NewManager(opts ...quiz.Option) *Manager {
	return &Manager{states: make(map[string]*State), engineOpts: opts}
}

// Create installs a fresh State for a new sign-in, replacing any old one.
func (m *Manager) Create(id string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := newState(m.engineOpts)
	m.states[id] = s
	return s
}

// Get returns the State for id, creating one when the session outlived
// the process that held its state.
func (m *Manager) Get(id string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[id]
	if !ok {
		s = newState(m.engineOpts)
		m.states[id] = s
	}
	return s
}

// Drop discards the State on sign-out.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}
