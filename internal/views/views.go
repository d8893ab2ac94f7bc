// Package views renders the HTML shell that hosts the client screens.
package views

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/examprep/internal/i18n"
	"github.com/pavelanni/examprep/internal/model"
)

// Page is the data shared by every page.
type Page struct {
	BasePath  string
	ClientID  string
	CSRFToken string
}

// Shell describes the signed-in page: the screen to show and the course
// list it starts from.
type Shell struct {
	Page
	View    model.View
	Courses []model.Course
	Current *model.Course
}

// Screens lists every view the shell hosts, in display order.
var Screens = []model.View{
	model.ViewCourses,
	model.ViewLoading,
	model.ViewActionMenu,
	model.ViewQuizConfig,
	model.ViewTopics,
	model.ViewQuiz,
	model.ViewSummary,
	model.ViewResults,
}

type writer struct {
	w   io.Writer
	err error
}

func (w *writer) raw(s string) {
	if w.err == nil {
		_, w.err = io.WriteString(w.w, s)
	}
}

func (w *writer) text(s string) {
	w.raw(templ.EscapeString(s))
}

func (w *writer) rawf(format string, args ...any) {
	w.raw(fmt.Sprintf(format, args...))
}

func layout(ctx context.Context, p Page, w *writer, body func()) {
	w.raw("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\">")
	w.raw("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">")
	w.raw("<title>")
	w.text(appI18n.T(ctx, "AppTitle"))
	w.raw("</title>")
	if p.CSRFToken != "" {
		w.rawf("<meta name=\"csrf-token\" content=\"%s\">", templ.EscapeString(p.CSRFToken))
	}
	w.rawf("<meta name=\"base-path\" content=\"%s\">", templ.EscapeString(p.BasePath))
	w.raw("</head><body><main>")
	body()
	w.raw("</main></body></html>\n")
}

// LoginPage shows the sign-in link, with errMsg above it when set.
func LoginPage(p Page, errMsg string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		layout(ctx, p, w, func() {
			w.rawf("<section data-view=\"%s\"><h1>", model.ViewLogin)
			w.text(appI18n.T(ctx, "AppTitle"))
			w.raw("</h1>")
			if errMsg != "" {
				w.raw("<p class=\"error\">")
				w.text(errMsg)
				w.raw("</p>")
			}
			w.raw("<p>")
			w.text(appI18n.T(ctx, "SignInPrompt"))
			w.rawf("</p><a class=\"button\" href=\"%s\">", templ.EscapeString(p.BasePath+"/auth/login"))
			w.text(appI18n.T(ctx, "SignInWithGoogle"))
			w.raw("</a></section>")
		})
		return w.err
	})
}

// IndexPage renders one section per screen; only s.View is visible.
func IndexPage(s Shell) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		layout(ctx, s.Page, w, func() {
			w.raw("<header><h1>")
			w.text(appI18n.T(ctx, "AppTitle"))
			w.raw("</h1>")
			if s.Current != nil {
				w.rawf("<p class=\"course\" data-course-id=\"%s\">", templ.EscapeString(s.Current.ID))
				w.text(s.Current.Name)
				w.raw("</p>")
			}
			w.rawf("<form method=\"post\" action=\"%s\">", templ.EscapeString(s.BasePath+"/auth/logout"))
			w.rawf("<input type=\"hidden\" name=\"csrf_token\" value=\"%s\">", templ.EscapeString(s.CSRFToken))
			w.raw("<button type=\"submit\">")
			w.text(appI18n.T(ctx, "SignOut"))
			w.raw("</button></form></header>")

			for _, v := range Screens {
				hidden := ""
				if v != s.View {
					hidden = " hidden"
				}
				w.rawf("<section data-view=\"%s\"%s>", v, hidden)
				switch v {
				case model.ViewCourses:
					courses(ctx, w, s.Courses)
				case model.ViewLoading:
					w.raw("<p>")
					w.text(appI18n.T(ctx, "LoadingText"))
					w.raw("</p>")
				}
				w.raw("</section>")
			}
		})
		return w.err
	})
}

func courses(ctx context.Context, w *writer, list []model.Course) {
	w.raw("<h2>")
	w.text(appI18n.T(ctx, "YourCourses"))
	w.raw("</h2>")
	if len(list) == 0 {
		w.raw("<p>")
		w.text(appI18n.T(ctx, "NoCourses"))
		w.raw("</p>")
		return
	}
	w.raw("<ul>")
	for _, c := range list {
		w.rawf("<li data-course-id=\"%s\"><strong>", templ.EscapeString(c.ID))
		w.text(c.Name)
		w.raw("</strong> <span>")
		w.text(c.Section)
		w.raw("</span></li>")
	}
	w.raw("</ul>")
}
