package study

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examprep/internal/llm"
	"github.com/pavelanni/examprep/internal/model"
)

func newService(responses ...llm.MockResponse) (*Service, *llm.MockProvider) {
	mock := llm.NewMockProvider(responses...)
	r := llm.NewRouter(llm.Config{Default: llm.ProviderMock}, llm.WithProvider(llm.ProviderMock, mock))
	return New(r, nil), mock
}

var mockSel = model.Settings{Provider: llm.ProviderMock}

func TestQuizDefaults(t *testing.T) {
	s, mock := newService(llm.MockResponse{
		Text: `{"title":"Bio","questions":[{"question":"Q","answerOptions":[{"text":"a","isCorrect":true},{"text":"b"}]}]}`,
	})

	quiz, err := s.Quiz(context.Background(), "Cells divide by mitosis.", model.QuizConfig{}, mockSel)
	require.NoError(t, err)
	assert.Equal(t, "Bio", quiz.Title)

	require.Equal(t, 1, mock.CallCount())
	prompt := mock.Calls[0].Prompt
	assert.Contains(t, prompt, "Generate exactly 5 questions.")
	assert.Contains(t, prompt, "should be: Medium.")
}

func TestQuizEmptyQuestionList(t *testing.T) {
	s, _ := newService(llm.MockResponse{Text: `{"title":"Empty","questions":[]}`})

	_, err := s.Quiz(context.Background(), "text", model.QuizConfig{NumQuestions: 3, Difficulty: model.DifficultyHard}, mockSel)
	var aiErr *model.AIResponseError
	require.ErrorAs(t, err, &aiErr)
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestInputErrors(t *testing.T) {
	s, mock := newService()
	ctx := context.Background()

	_, err := s.Topics(ctx, "  ", mockSel)
	assert.ErrorIs(t, err, ErrNoText)
	_, err = s.Summary(ctx, "", mockSel)
	assert.ErrorIs(t, err, ErrNoText)
	_, err = s.Explain(ctx, "", "some text", mockSel)
	assert.ErrorIs(t, err, ErrMissingTopic)
	assert.True(t, IsInputError(err))
	assert.Zero(t, mock.CallCount(), "input errors make no AI calls")
}

func TestTopics(t *testing.T) {
	s, _ := newService(llm.MockResponse{Text: `[{"topic":"Osmosis","description":"Water."}]`})
	topics, err := s.Topics(context.Background(), "Water crosses membranes.", mockSel)
	require.NoError(t, err)
	assert.Equal(t, []model.Topic{{Topic: "Osmosis", Description: "Water."}}, topics)
}

func TestBackendFailure(t *testing.T) {
	s, _ := newService(llm.MockResponse{Err: errors.New("boom")})
	_, err := s.Summary(context.Background(), "text", mockSel)

	var aiErr *model.AIResponseError
	require.ErrorAs(t, err, &aiErr)
	assert.Equal(t, "generate-summary", aiErr.Endpoint)
	assert.False(t, IsInputError(err))
}

func TestAssistantContext(t *testing.T) {
	got := AssistantContext(" black holes ")
	assert.True(t, strings.HasPrefix(got, "The user is asking an academic question about: black holes."))
	assert.True(t, strings.HasSuffix(got, "Provide a detailed, pedagogical, and clear explanation."))
}
