package handler

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/examprep/internal/content"
	appI18n "github.com/pavelanni/examprep/internal/i18n"
	"github.com/pavelanni/examprep/internal/markdown"
	"github.com/pavelanni/examprep/internal/model"
)

var spaceRun = regexp.MustCompile(`\s+`)

func (h *Handler) handleCourses(w http.ResponseWriter, r *http.Request) {
	client, err := h.courseClient(r)
	if err != nil {
		h.fail(w, r, err, model.ViewCourses)
		return
	}
	courses, err := client.Courses(r.Context())
	if err != nil {
		h.fail(w, r, err, model.ViewCourses)
		return
	}

	st := h.state(r)
	st.SetCourses(courses)
	st.SetView(model.ViewCourses)

	resp := map[string]any{
		"success": true,
		"courses": courses,
		"view":    model.ViewCourses,
	}
	if len(courses) == 0 {
		resp["courses"] = []model.Course{}
		resp["message"] = appI18n.T(r.Context(), "NoCourses")
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLoadCourse aggregates a course and makes it the current one.
func (h *Handler) handleLoadCourse(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	course, ok := st.Course(chi.URLParam(r, "courseID"))
	if !ok {
		writeError(w, http.StatusNotFound, "course not found", model.ViewCourses)
		return
	}

	client, err := h.courseClient(r)
	if err != nil {
		h.fail(w, r, err, model.ViewCourses)
		return
	}
	cc, err := h.agg.Aggregate(r.Context(), client, st, course)
	if err != nil {
		h.fail(w, r, err, model.ViewCourses)
		return
	}

	st.Select(course.ID)
	st.SetView(model.ViewActionMenu)

	resp := map[string]any{
		"success":  true,
		"course":   course,
		"files":    cc.Files,
		"fallback": cc.Fallback,
		"chars":    len([]rune(cc.Text)),
		"message":  appI18n.Tp(r.Context(), "DocumentsFound", len(cc.Files)),
		"view":     model.ViewActionMenu,
	}
	if cc.Fallback {
		resp["notice"] = appI18n.T(r.Context(), "FallbackNotice")
	}
	if cc.Partial != nil {
		failed := make([]string, len(cc.Partial.Failures))
		for i, f := range cc.Partial.Failures {
			failed[i] = f.Op
		}
		resp["failed"] = failed
	}
	writeJSON(w, http.StatusOK, resp)
}

// loaded returns the course named in the URL and its aggregated content,
// writing an error when the course has not been loaded in this session.
func (h *Handler) loaded(w http.ResponseWriter, r *http.Request) (model.Course, *model.CourseContent, bool) {
	st := h.state(r)
	id := chi.URLParam(r, "courseID")
	course, ok := st.Course(id)
	if !ok {
		writeError(w, http.StatusNotFound, "course not found", model.ViewCourses)
		return model.Course{}, nil, false
	}
	cc, ok := st.CourseContent(id)
	if !ok {
		writeError(w, http.StatusConflict, appI18n.T(r.Context(), "CourseNotLoaded"), model.ViewCourses)
		return model.Course{}, nil, false
	}
	st.Select(id)
	return course, cc, true
}

func (h *Handler) handleCourseTopics(w http.ResponseWriter, r *http.Request) {
	_, cc, ok := h.loaded(w, r)
	if !ok {
		return
	}
	topics, err := h.study.Topics(r.Context(), cc.Text, h.settings(r))
	if err != nil {
		h.fail(w, r, err, model.ViewActionMenu)
		return
	}
	h.state(r).SetView(model.ViewTopics)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"topics":  topics,
		"view":    model.ViewTopics,
	})
}

type explainRequest struct {
	Topic string `json:"topic" validate:"required"`
}

func (h *Handler) handleCourseExplain(w http.ResponseWriter, r *http.Request) {
	_, cc, ok := h.loaded(w, r)
	if !ok {
		return
	}
	var req explainRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), model.ViewTopics)
		return
	}
	text, err := h.study.Explain(r.Context(), req.Topic, cc.Text, h.settings(r))
	if err != nil {
		h.fail(w, r, err, model.ViewTopics)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"topic":       req.Topic,
		"explanation": text,
		"html":        markdown.Render(text),
		"view":        model.ViewTopics,
	})
}

func (h *Handler) handleCourseSummary(w http.ResponseWriter, r *http.Request) {
	_, cc, ok := h.loaded(w, r)
	if !ok {
		return
	}
	text, err := h.study.Summary(r.Context(), cc.Text, h.settings(r))
	if err != nil {
		h.fail(w, r, err, model.ViewActionMenu)
		return
	}
	h.state(r).SetView(model.ViewSummary)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"summary": text,
		"html":    markdown.Render(text),
		"view":    model.ViewSummary,
	})
}

type archiveEntry struct {
	name string
	data []byte
}

// handleMaterials bundles the course's pdf/pptx files into one zip.
// Files that fail to download are left out.
func (h *Handler) handleMaterials(w http.ResponseWriter, r *http.Request) {
	course, cc, ok := h.loaded(w, r)
	if !ok {
		return
	}
	files := content.EligibleFiles(cc.Files)
	if len(files) == 0 {
		writeError(w, http.StatusNotFound, appI18n.T(r.Context(), "NoMaterials"), model.ViewActionMenu)
		return
	}

	client, err := h.courseClient(r)
	if err != nil {
		h.fail(w, r, err, model.ViewActionMenu)
		return
	}
	entries := downloadAll(r.Context(), client, files)

	var buf bytes.Buffer
	if err := writeArchive(&buf, entries); err != nil {
		slog.Error("failed to build archive", "course_id", course.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", model.ViewActionMenu)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": archiveName(course.Name)}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("failed to send archive", "course_id", course.ID, "error", err)
	}
}

// downloadAll fetches files in parallel. The result keeps input order and
// omits failed downloads.
func downloadAll(ctx context.Context, dl content.Downloader, files []model.FileRef) []archiveEntry {
	got := make([]*archiveEntry, len(files))
	var g errgroup.Group
	g.SetLimit(content.DefaultConcurrency)
	for i, f := range files {
		g.Go(func() error {
			data, err := dl.Download(ctx, f.ID)
			if err != nil {
				slog.Warn("skipping material", "file_id", f.ID, "error", err)
				return nil
			}
			got[i] = &archiveEntry{name: f.Title, data: data}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]archiveEntry, 0, len(files))
	for _, e := range got {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out
}

func writeArchive(buf *bytes.Buffer, entries []archiveEntry) error {
	zw := zip.NewWriter(buf)
	used := make(map[string]int)
	for _, e := range entries {
		name := uniqueName(used, path.Base(strings.ReplaceAll(e.name, "\\", "/")))
		f, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("add %s: %w", name, err)
		}
		if _, err := f.Write(e.data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return zw.Close()
}

// uniqueName suffixes repeated titles: "a.pdf", "a (2).pdf".
func uniqueName(used map[string]int, name string) string {
	used[name]++
	n := used[name]
	if n == 1 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
}

func archiveName(courseName string) string {
	return spaceRun.ReplaceAllString(courseName, "_") + "_Materials.zip"
}
