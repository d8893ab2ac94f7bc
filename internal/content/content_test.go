package content

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examprep/internal/model"
)

type fakeClient struct {
	mu            sync.Mutex
	announcements []model.Material
	work          []model.Material
	materials     []model.Material
	listErr       map[string]error
	files         map[string][]byte
	downloadErr   map[string]error
	listCalls     int
	downloads     []string
}

func (f *fakeClient) list(op string, items []model.Material) ([]model.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if err := f.listErr[op]; err != nil {
		return nil, err
	}
	return items, nil
}

func (f *fakeClient) Announcements(_ context.Context, _ string, _ int64) ([]model.Material, error) {
	return f.list("announcements", f.announcements)
}

func (f *fakeClient) CourseWork(_ context.Context, _ string, _ int64) ([]model.Material, error) {
	return f.list("coursework", f.work)
}

func (f *fakeClient) CourseWorkMaterials(_ context.Context, _ string, _ int64) ([]model.Material, error) {
	return f.list("materials", f.materials)
}

func (f *fakeClient) Download(_ context.Context, fileID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, fileID)
	if err := f.downloadErr[fileID]; err != nil {
		return nil, err
	}
	return f.files[fileID], nil
}

// echoParser returns the file bytes as text.
type echoParser struct{}

func (echoParser) Parse(_ context.Context, _ string, data []byte) (string, error) {
	return string(data), nil
}

type memTexts struct {
	mu     sync.Mutex
	m      map[string]string
	putErr error
}

func newMemTexts() *memTexts { return &memTexts{m: map[string]string{}} }

func (c *memTexts) Get(_ context.Context, id string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.m[id]
	return t, ok, nil
}

func (c *memTexts) Put(_ context.Context, id, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.putErr != nil {
		return c.putErr
	}
	c.m[id] = text
	return nil
}

type memCourses map[string]*model.CourseContent

func (m memCourses) CourseContent(id string) (*model.CourseContent, bool) {
	c, ok := m[id]
	return c, ok
}

func (m memCourses) StoreCourseContent(c *model.CourseContent) { m[c.CourseID] = c }

var biology = model.Course{ID: "c1", Name: "Biology 101", Section: "General"}

func TestEligibleFiles(t *testing.T) {
	refs := []model.FileRef{
		{ID: "a", Title: "Cells.pdf"},
		{ID: "b", Title: "notes.docx"},
		{ID: "a", Title: "Cells copy.pdf"},
		{ID: "c", Title: "Slides.PPTX"},
		{ID: "b", Title: "notes.pdf"},
	}
	got := EligibleFiles(refs)
	require.Len(t, got, 3)
	assert.Equal(t, "Cells.pdf", got[0].Title, "first occurrence wins")
	assert.Equal(t, model.FileKindPPTX, got[1].Kind)
	assert.Equal(t, "notes.pdf", got[2].Title)

	assert.Equal(t, got, EligibleFiles(got), "dedup is idempotent")
	assert.Empty(t, EligibleFiles(nil))
}

func TestAggregateOneDownloadFails(t *testing.T) {
	c := &fakeClient{
		announcements: []model.Material{{Text: "Welcome to the course on living systems.", Files: []model.FileRef{{ID: "f1", Title: "Cells.pdf"}}}},
		work:          []model.Material{{Text: "Read chapter two.", Files: []model.FileRef{{ID: "f2", Title: "Mitosis.pptx"}}}},
		materials:     []model.Material{{Text: "Lab safety rules.", Files: []model.FileRef{{ID: "f3", Title: "Lab.pdf"}, {ID: "f1", Title: "Cells.pdf"}}}},
		files: map[string][]byte{
			"f1": []byte("Cells are the basic unit of life."),
			"f3": []byte("Always wear goggles."),
		},
		downloadErr: map[string]error{"f2": &model.DownloadError{FileID: "f2", StatusCode: 403}},
	}
	courses := memCourses{}
	a := New(echoParser{}, newMemTexts())

	got, err := a.Aggregate(context.Background(), c, courses, biology)
	require.NoError(t, err)

	assert.False(t, got.Fallback)
	assert.Len(t, got.Files, 3)
	for _, want := range []string{
		"Welcome to the course", "Read chapter two.", "Lab safety rules.",
		"Cells are the basic unit of life.", "Always wear goggles.",
	} {
		assert.Contains(t, got.Text, want)
	}
	assert.Less(t, strings.Index(got.Text, "Cells are"), strings.Index(got.Text, "Always wear"), "file text keeps file order")

	require.Error(t, got.Err())
	var dl *model.DownloadError
	assert.True(t, errors.As(got.Err(), &dl))
	assert.Equal(t, "f2", dl.FileID)

	cached, ok := courses.CourseContent("c1")
	require.True(t, ok)
	assert.Same(t, got, cached)
}

func TestAggregateFallback(t *testing.T) {
	c := &fakeClient{
		announcements: []model.Material{{Text: "Hi"}},
		listErr:       map[string]error{"coursework": errors.New("boom")},
	}
	got, err := New(echoParser{}, nil).Aggregate(context.Background(), c, memCourses{}, biology)
	require.NoError(t, err)

	assert.True(t, got.Fallback)
	assert.Contains(t, got.Text, "Biology 101")
	assert.Equal(t, FallbackText("Biology 101"), got.Text)
	require.NotNil(t, got.Partial)
	assert.Len(t, got.Partial.Failures, 1)
	assert.Equal(t, "coursework", got.Partial.Failures[0].Op)
}

func TestAggregateCachedCourseMakesNoCalls(t *testing.T) {
	cached := &model.CourseContent{CourseID: "c1", Text: "cached"}
	c := &fakeClient{}
	got, err := New(echoParser{}, nil).Aggregate(context.Background(), c, memCourses{"c1": cached}, biology)
	require.NoError(t, err)
	assert.Same(t, cached, got)
	assert.Zero(t, c.listCalls)
	assert.Empty(t, c.downloads)
}

func TestAggregateAllAuthFailures(t *testing.T) {
	authErr := errors.Join(model.ErrAuth)
	c := &fakeClient{listErr: map[string]error{
		"announcements": authErr, "coursework": authErr, "materials": authErr,
	}}
	courses := memCourses{}
	_, err := New(echoParser{}, nil).Aggregate(context.Background(), c, courses, biology)
	assert.ErrorIs(t, err, model.ErrAuth)
	assert.Empty(t, courses)
}

func TestParseFileUsesCache(t *testing.T) {
	texts := newMemTexts()
	texts.m["f1"] = "from cache"
	c := &fakeClient{}
	a := New(echoParser{}, texts)

	text, ok := a.ParseFile(context.Background(), c, "f1", "Cells.pdf")
	assert.True(t, ok)
	assert.Equal(t, "from cache", text)
	assert.Empty(t, c.downloads)
}

func TestParseFileIgnoresCacheWriteFailure(t *testing.T) {
	texts := newMemTexts()
	texts.putErr = errors.New("quota exceeded")
	c := &fakeClient{files: map[string][]byte{"f1": []byte("photosynthesis")}}

	text, ok := New(echoParser{}, texts).ParseFile(context.Background(), c, "f1", "a.pdf")
	assert.True(t, ok)
	assert.Equal(t, "photosynthesis", text)
}

func TestParseFileDownloadError(t *testing.T) {
	c := &fakeClient{downloadErr: map[string]error{"f1": &model.DownloadError{FileID: "f1", StatusCode: 404}}}
	text, ok := New(echoParser{}, newMemTexts()).ParseFile(context.Background(), c, "f1", "a.pdf")
	assert.False(t, ok)
	assert.Empty(t, text)
}
