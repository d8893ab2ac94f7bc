package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	appI18n "github.com/pavelanni/examprep/internal/i18n"
	"github.com/pavelanni/examprep/internal/model"
	"github.com/pavelanni/examprep/internal/quiz"
)

var tierMessages = map[model.Tier]string{
	model.TierPerfect:   "FeedbackPerfect",
	model.TierExcellent: "FeedbackExcellent",
	model.TierGood:      "FeedbackGood",
	model.TierReview:    "FeedbackReview",
}

func viewFor(s quiz.State) model.View {
	switch s {
	case quiz.StateLoading:
		return model.ViewLoading
	case quiz.StateActive, quiz.StateFeedback:
		return model.ViewQuiz
	case quiz.StateResults:
		return model.ViewResults
	}
	return model.ViewActionMenu
}

func (h *Handler) writeQuiz(w http.ResponseWriter, r *http.Request, snap quiz.Snapshot) {
	ctx := r.Context()
	resp := map[string]any{
		"success": true,
		"quiz":    snap,
		"view":    viewFor(snap.State),
	}
	if snap.Question != nil {
		resp["progress"] = appI18n.Td(ctx, "QuestionProgress", map[string]any{
			"N":     snap.Index + 1,
			"Total": snap.Total,
		})
	}
	if snap.LastCorrect != nil {
		if *snap.LastCorrect {
			resp["status"] = appI18n.T(ctx, "AnswerCorrect")
		} else {
			resp["status"] = appI18n.T(ctx, "AnswerIncorrect")
		}
	}
	if snap.Result != nil {
		resp["feedback"] = appI18n.T(ctx, tierMessages[snap.Result.Tier])
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStartQuiz generates a quiz for the current course and starts a
// new attempt. A failed generation returns the client to the action menu.
func (h *Handler) handleStartQuiz(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	course, cc, ok := st.Current()
	if !ok {
		writeError(w, http.StatusConflict, appI18n.T(r.Context(), "CourseNotLoaded"), model.ViewCourses)
		return
	}

	var cfg model.QuizConfig
	if err := h.decode(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), model.ViewQuizConfig)
		return
	}

	eng, attempt, err := st.NewQuiz(cfg)
	if errors.Is(err, quiz.ErrBusy) {
		writeError(w, http.StatusConflict, err.Error(), model.ViewLoading)
		return
	}
	if err != nil {
		writeError(w, http.StatusConflict, err.Error(), model.ViewActionMenu)
		return
	}
	st.SetView(model.ViewLoading)
	slog.Info("generating quiz", "course_id", course.ID, "attempt", attempt,
		"questions", cfg.NumQuestions, "difficulty", cfg.Difficulty)

	q, err := h.study.Quiz(r.Context(), cc.Text, cfg, h.settings(r))
	if err != nil {
		eng.Fail()
		st.SetView(model.ViewActionMenu)
		h.fail(w, r, err, model.ViewActionMenu)
		return
	}
	if err := eng.Load(q); err != nil {
		st.SetView(model.ViewActionMenu)
		writeError(w, http.StatusBadGateway, appI18n.T(r.Context(), "QuizNoQuestions"), model.ViewActionMenu)
		return
	}

	st.SetView(model.ViewQuiz)
	h.writeQuiz(w, r, eng.Snapshot())
}

func (h *Handler) handleQuizState(w http.ResponseWriter, r *http.Request) {
	eng, _ := h.state(r).Quiz()
	h.writeQuiz(w, r, eng.Snapshot())
}

type answerRequest struct {
	Option *int `json:"option" validate:"required,min=0"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	eng, _ := h.state(r).Quiz()
	snap, err := eng.Select(*req.Option)
	switch {
	case errors.Is(err, quiz.ErrInvalidOption):
		writeError(w, http.StatusBadRequest, err.Error(), model.ViewQuiz)
		return
	case err != nil:
		writeError(w, http.StatusConflict, err.Error(), viewFor(snap.State))
		return
	}
	h.writeQuiz(w, r, snap)
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	eng, attempt := st.Quiz()
	snap, err := eng.Next()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error(), viewFor(snap.State))
		return
	}
	st.SetView(viewFor(snap.State))
	if snap.Result != nil {
		h.recordResult(r, attempt, eng.Config(), snap.Result)
	}
	h.writeQuiz(w, r, snap)
}

// handleQuitQuiz abandons the current attempt and returns to the action menu.
func (h *Handler) handleQuitQuiz(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	eng, _ := st.Quiz()
	eng.Reset()
	st.SetView(model.ViewActionMenu)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"view":    model.ViewActionMenu,
	})
}

// recordResult stores a finished attempt. Failures are logged only.
func (h *Handler) recordResult(r *http.Request, attempt string, cfg model.QuizConfig, res *quiz.Result) {
	h.metrics.QuizCompleted(string(res.Tier))

	course, _, _ := h.state(r).Current()
	err := h.store.RecordQuizResult(model.QuizResult{
		AttemptID:  attempt,
		Device:     model.DeviceFromContext(r.Context()),
		CourseID:   course.ID,
		CourseName: course.Name,
		Difficulty: string(cfg.Difficulty),
		Total:      res.Total,
		Correct:    res.Correct,
		Incorrect:  res.Incorrect,
		Percentage: res.Percentage,
		Tier:       string(res.Tier),
		Elapsed:    res.Elapsed,
		FinishedAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("failed to record quiz result", "attempt", attempt, "error", err)
		return
	}
	slog.Info("quiz finished", "attempt", attempt, "course_id", course.ID,
		"percentage", res.Percentage, "tier", res.Tier)
}
