package session

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examprep/internal/model"
	"github.com/pavelanni/examprep/internal/quiz"
)

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	s := m.Create("sess-1")
	assert.Same(t, s, m.Get("sess-1"))
	assert.Equal(t, 1, m.Len())

	m.Drop("sess-1")
	assert.Equal(t, 0, m.Len())

	fresh := m.Get("sess-1")
	assert.NotSame(t, s, fresh, "state recreated after drop")
	assert.Equal(t, model.ViewCourses, fresh.View())
}

func TestCourseCache(t *testing.T) {
	s := NewManager().Create("x")
	s.SetCourses([]model.Course{{ID: "c1", Name: "Bio"}, {ID: "c2", Name: "Chem"}})

	_, _, ok := s.Current()
	assert.False(t, ok)

	s.StoreCourseContent(&model.CourseContent{CourseID: "c2", Text: "atoms"})
	s.Select("c2")

	course, content, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "Chem", course.Name)
	assert.Equal(t, "atoms", content.Text)
	assert.Equal(t, []model.Course{{ID: "c2", Name: "Chem"}}, s.LoadedCourses())

	cached, ok := s.CourseContent("c2")
	require.True(t, ok)
	assert.Same(t, content, cached)
}

func TestNewQuizReplacesEngine(t *testing.T) {
	s := NewManager().Create("x")
	first, _ := s.Quiz()

	second, attempt, err := s.NewQuiz(model.QuizConfig{NumQuestions: 1})
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.NotEmpty(t, attempt)
	assert.Equal(t, quiz.StateLoading, second.Snapshot().State)

	got, gotAttempt := s.Quiz()
	assert.Same(t, second, got)
	assert.Equal(t, attempt, gotAttempt)
}

func TestNewQuizWhileGenerating(t *testing.T) {
	s := NewManager().Create("x")
	cfg := model.QuizConfig{NumQuestions: 1}

	const callers = 8
	var wg sync.WaitGroup
	var started atomic.Int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := s.NewQuiz(cfg); err == nil {
				started.Add(1)
			} else {
				assert.ErrorIs(t, err, quiz.ErrBusy)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), started.Load(), "only one generation may start")

	eng, _ := s.Quiz()
	eng.Fail()
	_, _, err := s.NewQuiz(cfg)
	assert.NoError(t, err, "a failed generation frees the slot")
}
