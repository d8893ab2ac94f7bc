package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"

	"github.com/pavelanni/examprep/internal/content"
	appI18n "github.com/pavelanni/examprep/internal/i18n"
	"github.com/pavelanni/examprep/internal/metrics"
	"github.com/pavelanni/examprep/internal/model"
	"github.com/pavelanni/examprep/internal/session"
	"github.com/pavelanni/examprep/internal/store"
	"github.com/pavelanni/examprep/internal/study"
)

// maxUploadSize bounds multipart uploads to the parse endpoint.
const maxUploadSize = 50 << 20

// Config holds deployment settings for the HTTP layer.
type Config struct {
	BasePath      string
	SecureCookies bool
	ClientID      string
}

// CourseClient is the per-user view of the course and file APIs.
type CourseClient interface {
	Courses(ctx context.Context) ([]model.Course, error)
	content.Client
}

// ClientFactory builds a CourseClient authorized by ts.
type ClientFactory func(ctx context.Context, ts oauth2.TokenSource) (CourseClient, error)

// StatusReporter lists AI providers and whether each is usable.
type StatusReporter interface {
	Status() map[string]bool
}

// Pinger checks a remote dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Handler. RemoteParser and Metrics are
// optional.
type Deps struct {
	Store        *store.Store
	Sessions     *session.Manager
	Aggregator   *content.Aggregator
	Clients      ClientFactory
	Study        *study.Service
	Providers    StatusReporter
	Parser       content.Parser
	RemoteParser Pinger
	Metrics      *metrics.Metrics
	OAuth        *oauth2.Config
	Config       Config
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	sessions  *session.Manager
	agg       *content.Aggregator
	clients   ClientFactory
	study     *study.Service
	providers StatusReporter
	parser    content.Parser
	remote    Pinger
	metrics   *metrics.Metrics
	oauth     *oauth2.Config
	validate  *validator.Validate
	config    Config
}

// New creates a new Handler.
func New(d Deps) (*Handler, error) {
	switch {
	case d.Store == nil:
		return nil, errors.New("handler: store is required")
	case d.Sessions == nil:
		return nil, errors.New("handler: session manager is required")
	case d.Aggregator == nil:
		return nil, errors.New("handler: aggregator is required")
	case d.Clients == nil:
		return nil, errors.New("handler: client factory is required")
	case d.Study == nil:
		return nil, errors.New("handler: study service is required")
	case d.Parser == nil:
		return nil, errors.New("handler: parser is required")
	case d.OAuth == nil:
		return nil, errors.New("handler: oauth config is required")
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{
		store:     d.Store,
		sessions:  d.Sessions,
		agg:       d.Aggregator,
		clients:   d.Clients,
		study:     d.Study,
		providers: d.Providers,
		parser:    d.Parser,
		remote:    d.RemoteParser,
		metrics:   d.Metrics,
		oauth:     d.OAuth,
		validate:  v,
		config:    d.Config,
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/health", h.handleHealth)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}
	r.Get("/api/config", h.handleConfig)
	r.Get("/auth/login", h.handleLogin)
	r.Get("/auth/callback", h.handleCallback)

	// Stateless endpoints: parsing and the AI operations on caller text.
	r.Post("/api/parse-file", h.handleParseFile)
	r.Post("/api/generate-topics", h.handleGenerateTopics)
	r.Post("/api/generate-quiz", h.handleGenerateQuiz)
	r.Post("/api/explain-topic", h.handleExplainTopic)
	r.Post("/api/generate-summary", h.handleGenerateSummary)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(h.csrfMiddleware)

		r.Post("/auth/logout", h.handleLogout)

		r.Get("/api/state", h.handleState)
		r.Get("/api/courses", h.handleCourses)
		r.Post("/api/courses/{courseID}/load", h.handleLoadCourse)
		r.Get("/api/courses/{courseID}/materials.zip", h.handleMaterials)
		r.Post("/api/courses/{courseID}/topics", h.handleCourseTopics)
		r.Post("/api/courses/{courseID}/explain", h.handleCourseExplain)
		r.Post("/api/courses/{courseID}/summary", h.handleCourseSummary)

		r.Post("/api/quiz", h.handleStartQuiz)
		r.Get("/api/quiz", h.handleQuizState)
		r.Post("/api/quiz/answer", h.handleAnswer)
		r.Post("/api/quiz/next", h.handleNext)
		r.Delete("/api/quiz", h.handleQuitQuiz)

		r.Get("/api/settings", h.handleGetSettings)
		r.Put("/api/settings", h.handlePutSettings)
		r.Get("/api/settings/models", h.handleModels)

		r.Get("/api/assistant/suggestions", h.handleSuggestions)
		r.Post("/api/assistant", h.handleAssistant)
	})
}

// BasePathMiddleware records the deployment prefix in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "healthy",
		"service": "examprep",
	}
	if h.providers != nil {
		resp["providers"] = h.providers.Status()
	}
	if h.remote != nil {
		parser := "healthy"
		if err := h.remote.Ping(r.Context()); err != nil {
			slog.Warn("parser health check failed", "error", err)
			parser = "unreachable"
		}
		resp["parser"] = parser
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"clientId": h.config.ClientID,
		"appTitle": appI18n.T(r.Context(), "AppTitle"),
		"basePath": model.BasePathFromContext(r.Context()),
	})
}

// handleState lets a reloaded client restore its view.
func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	resp := map[string]any{
		"success":   true,
		"view":      st.View(),
		"courses":   st.Courses(),
		"loaded":    st.LoadedCourses(),
		"csrfToken": model.CSRFTokenFromContext(r.Context()),
	}
	if course, _, ok := st.Current(); ok {
		resp["current"] = course
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError writes the {success:false,error} body. A non-empty view tells
// the client which screen to fall back to.
func writeError(w http.ResponseWriter, status int, msg string, view model.View) {
	body := map[string]any{"success": false, "error": msg}
	if view != "" {
		body["view"] = view
	}
	writeJSON(w, status, body)
}

// fail maps err to a status code and writes it.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, view model.View) {
	var aiErr *model.AIResponseError
	switch {
	case errors.Is(err, model.ErrAuth):
		writeError(w, http.StatusUnauthorized, appI18n.T(r.Context(), "SignInRequired"), model.ViewLogin)
	case study.IsInputError(err):
		writeError(w, http.StatusBadRequest, err.Error(), view)
	case errors.As(err, &aiErr):
		slog.Warn("AI request failed", "endpoint", aiErr.Endpoint, "error", err)
		writeError(w, http.StatusBadGateway, aiErr.Message, model.ViewActionMenu)
	case errors.Is(err, context.Canceled):
		slog.Info("request canceled", "path", r.URL.Path)
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", view)
	}
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := h.validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, len(ve))
			for i, fe := range ve {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
			}
			return fmt.Errorf("invalid request: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}
