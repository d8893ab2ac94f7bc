package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examprep/internal/model"
)

func TestParseQuiz(t *testing.T) {
	t.Run("fenced object", func(t *testing.T) {
		text := "```json\n{\"title\":\"Cells\",\"questions\":[{\"question\":\"Q1\",\"answerOptions\":[{\"text\":\"a\",\"isCorrect\":true},{\"text\":\"b\",\"isCorrect\":false}]}]}\n```"
		quiz, err := ParseQuiz(text)
		require.NoError(t, err)
		assert.Equal(t, "Cells", quiz.Title)
		require.Len(t, quiz.Questions, 1)
		assert.True(t, quiz.Questions[0].Options[0].IsCorrect)
	})

	t.Run("bare list with prose", func(t *testing.T) {
		text := `Here you go: [{"question":"Q1","options":["x","y"],"correct":"y"},{"question":"Q2","options":["p","q"],"correct":"p"}] Good luck!`
		quiz, err := ParseQuiz(text)
		require.NoError(t, err)
		assert.Equal(t, DefaultQuizTitle, quiz.Title)
		require.Len(t, quiz.Questions, 2)
		assert.Equal(t, model.ShapeLegacy, quiz.Questions[0].Shape)
		assert.True(t, quiz.Questions[0].Options[1].IsCorrect)
	})

	t.Run("missing title", func(t *testing.T) {
		quiz, err := ParseQuiz(`{"questions":[]}`)
		require.NoError(t, err)
		assert.Equal(t, DefaultQuizTitle, quiz.Title)
		assert.Empty(t, quiz.Questions)
	})

	t.Run("no json", func(t *testing.T) {
		_, err := ParseQuiz("I cannot help with that.")
		var inv *ErrInvalidResponse
		assert.True(t, errors.As(err, &inv))
	})

	t.Run("question without options", func(t *testing.T) {
		for _, text := range []string{
			`{"questions":[{"question":"What?"}]}`,
			`{"questions":[{"question":"What?","answerOptions":[]}]}`,
			`{"questions":[{"question":"What?","options":["only"],"correct":"only"}]}`,
		} {
			_, err := ParseQuiz(text)
			var inv *ErrInvalidResponse
			assert.True(t, errors.As(err, &inv), "accepted %s", text)
		}
	})

	t.Run("schema mismatch", func(t *testing.T) {
		_, err := ParseQuiz(`{"questions":[{"hint":"no question text"}]}`)
		var inv *ErrInvalidResponse
		assert.True(t, errors.As(err, &inv))
	})
}

func TestParseTopics(t *testing.T) {
	topics, err := ParseTopics("```\n[{\"topic\":\"Osmosis\",\"description\":\"Water movement.\"},{\"topic\":\"Diffusion\"}]\n```")
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, model.Topic{Topic: "Osmosis", Description: "Water movement."}, topics[0])

	single, err := ParseTopics(`{"topic":"Mitosis","description":"Cell division."}`)
	require.NoError(t, err)
	assert.Equal(t, []model.Topic{{Topic: "Mitosis", Description: "Cell division."}}, single)

	_, err = ParseTopics(`[{"description":"no name"}]`)
	assert.Error(t, err)
}
