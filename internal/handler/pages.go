package handler

import (
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/pavelanni/examprep/internal/model"
	"github.com/pavelanni/examprep/internal/views"
)

func (h *Handler) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("failed to render page", "path", r.URL.Path, "error", err)
	}
}

// handleIndex serves the page shell: the sign-in screen for visitors,
// otherwise the session's current view.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := views.Page{BasePath: h.config.BasePath, ClientID: h.config.ClientID}

	r, ok := h.signedIn(w, r)
	if !ok {
		h.render(w, r, views.LoginPage(page, ""))
		return
	}
	r, ok = h.setCSRFCookie(w, r)
	if !ok {
		return
	}
	page.CSRFToken = model.CSRFTokenFromContext(r.Context())

	st := h.state(r)
	shell := views.Shell{Page: page, View: st.View(), Courses: st.Courses()}
	if course, _, ok := st.Current(); ok {
		shell.Current = &course
	}
	if shell.View == model.ViewLogin {
		shell.View = model.ViewCourses
	}
	h.render(w, r, views.IndexPage(shell))
}
