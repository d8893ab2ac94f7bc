package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/pavelanni/examprep/internal/cache"
	"github.com/pavelanni/examprep/internal/classroom"
	"github.com/pavelanni/examprep/internal/content"
	"github.com/pavelanni/examprep/internal/handler"
	appI18n "github.com/pavelanni/examprep/internal/i18n"
	"github.com/pavelanni/examprep/internal/llm"
	"github.com/pavelanni/examprep/internal/metrics"
	"github.com/pavelanni/examprep/internal/model"
	"github.com/pavelanni/examprep/internal/parser"
	"github.com/pavelanni/examprep/internal/session"
	"github.com/pavelanni/examprep/internal/store"
	"github.com/pavelanni/examprep/internal/study"
)

func main() {
	_ = godotenv.Load() // .env is optional
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examprep",
		Short: "Study companion for Google Classroom courses: quizzes, topics and summaries",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), parseCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "examprep.db", "SQLite database path")
	f.String("base-url", "http://localhost:8080", "Public URL of the service, used for the OAuth redirect")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /prep)")
	f.String("google-client-id", "", "Google OAuth client ID")
	f.String("google-client-secret", "", "Google OAuth client secret")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	f.StringP("lang", "l", "en", "Fallback UI language (en, ru)")
	f.String("llm-provider", llm.ProviderGroq, "Default AI provider (gemini, groq, ollama, huggingface, openai, anthropic)")
	f.String("llm-model", "", "Model for the default provider (empty = provider default)")
	f.Duration("llm-timeout", 90*time.Second, "Timeout for one provider attempt")
	f.Int("llm-retries", 3, "Attempts per provider for transient failures")
	f.String("gemini-key", "", "Gemini API key")
	f.String("groq-key", "", "Groq API key")
	f.String("anthropic-key", "", "Anthropic API key")
	f.String("openai-key", "", "OpenAI API key")
	f.String("openai-url", "", "OpenAI-compatible base URL (empty = api.openai.com)")
	f.String("hf-key", "", "Hugging Face router token")
	f.String("ollama-url", "http://localhost:11434", "Ollama server URL (empty disables Ollama)")
	f.String("parser-url", "", "Remote parse service base URL (empty = parse in-process)")
	f.String("file-cache", "sqlite", "File-text cache backend (sqlite, redis)")
	f.Int("file-cache-max", store.DefaultFileCacheEntries, "Maximum cached file texts")
	f.String("redis-url", "redis://localhost:6379/0", "Redis URL for --file-cache=redis")
	f.Int("fetch-concurrency", content.DefaultConcurrency, "Files downloaded and parsed in parallel per course")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recorded quiz results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "examprep.db", "SQLite database path")
	f.String("course", "", "Only export results for this course ID")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse FILE...",
		Short: "Extract text from PDF, PPTX or text files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runParse,
	}
	f := cmd.Flags()
	f.String("parser-url", "", "Remote parse service base URL (empty = parse in-process)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examprep")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examprep")
	v.AddConfigPath("/etc/examprep")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func normalizeBasePath(p string) string {
	p = strings.TrimRight(p, "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func llmConfig(v *viper.Viper) llm.Config {
	cfg := llm.DefaultConfig()
	cfg.Default = v.GetString("llm-provider")
	cfg.Model = v.GetString("llm-model")
	cfg.GeminiKey = v.GetString("gemini-key")
	cfg.GroqKey = v.GetString("groq-key")
	cfg.AnthropicKey = v.GetString("anthropic-key")
	cfg.OpenAIKey = v.GetString("openai-key")
	cfg.OpenAIURL = v.GetString("openai-url")
	cfg.HFKey = v.GetString("hf-key")
	cfg.OllamaURL = v.GetString("ollama-url")
	cfg.Retry.MaxAttempts = v.GetInt("llm-retries")
	cfg.Timeout = v.GetDuration("llm-timeout")
	return cfg
}

func fileTextCache(ctx context.Context, v *viper.Viper, db *store.Store) (content.TextCache, func(), error) {
	maxEntries := v.GetInt("file-cache-max")
	switch strings.ToLower(v.GetString("file-cache")) {
	case "redis":
		rdb, err := cache.Connect(ctx, v.GetString("redis-url"))
		if err != nil {
			return nil, nil, err
		}
		return cache.New(rdb, cache.DefaultPrefix, maxEntries), func() { rdb.Close() }, nil
	case "", "sqlite":
		return db.NewFileTextCache(maxEntries), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown file cache %q (want sqlite or redis)", v.GetString("file-cache"))
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := context.Background()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if mode, err := db.Pragma("journal_mode"); err == nil {
		slog.Debug("database opened", "path", v.GetString("db"), "journal_mode", mode)
	}
	if err := db.CleanupExpiredSessions(); err != nil {
		slog.Warn("failed to clean up expired sessions", "error", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	m := metrics.New()

	texts, closeCache, err := fileTextCache(ctx, v, db)
	if err != nil {
		return fmt.Errorf("file cache: %w", err)
	}
	defer closeCache()

	local := parser.New()
	var docParser content.Parser = local
	var remote handler.Pinger
	if u := v.GetString("parser-url"); u != "" {
		c := parser.NewClient(u, 0)
		docParser, remote = c, c
		slog.Info("using remote parser", "url", u)
	}
	agg := content.New(docParser, texts,
		content.WithConcurrency(v.GetInt("fetch-concurrency")),
		content.WithMetrics(m),
		content.WithLogger(slog.Default().With("component", "content")),
	)

	router := llm.NewRouter(llmConfig(v),
		llm.WithMetrics(m),
		llm.WithLogger(slog.Default().With("component", "llm")),
	)
	for p, ok := range router.Status() {
		slog.Debug("AI provider", "provider", p, "available", ok)
	}

	basePath := normalizeBasePath(v.GetString("base-path"))
	clientID := v.GetString("google-client-id")
	if clientID == "" {
		slog.Warn("google-client-id is empty; sign-in will fail")
	}
	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: v.GetString("google-client-secret"),
		RedirectURL:  strings.TrimRight(v.GetString("base-url"), "/") + basePath + "/auth/callback",
		Scopes:       classroom.Scopes,
		Endpoint:     endpoints.Google,
	}

	h, err := handler.New(handler.Deps{
		Store:      db,
		Sessions:   session.NewManager(),
		Aggregator: agg,
		Clients: func(ctx context.Context, ts oauth2.TokenSource) (handler.CourseClient, error) {
			c, err := classroom.New(ctx, ts)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		Study:        study.New(router, slog.Default()),
		Providers:    router,
		Parser:       local,
		RemoteParser: remote,
		Metrics:      m,
		OAuth:        oauthCfg,
		Config: handler.Config{
			BasePath:      basePath,
			SecureCookies: v.GetBool("secure-cookies"),
			ClientID:      clientID,
		},
	})
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware)

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"base_path", basePath,
		"lang", lang,
		"llm_provider", v.GetString("llm-provider"),
		"file_cache", v.GetString("file-cache"),
	)
	return http.ListenAndServe(addr, r)
}

// resultsExport is the JSON document written by the export command.
type resultsExport struct {
	ExportedAt time.Time          `json:"exported_at"`
	CourseID   string             `json:"course_id,omitempty"`
	Count      int                `json:"count"`
	Results    []model.QuizResult `json:"results"`
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	courseID := v.GetString("course")
	results, err := db.ListQuizResults(courseID)
	if err != nil {
		return fmt.Errorf("list quiz results: %w", err)
	}
	if results == nil {
		results = []model.QuizResult{}
	}

	data, err := json.MarshalIndent(resultsExport{
		ExportedAt: time.Now().UTC(),
		CourseID:   courseID,
		Count:      len(results),
		Results:    results,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	var p content.Parser = parser.New()
	if u := v.GetString("parser-url"); u != "" {
		p = parser.NewClient(u, 0)
	}

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		text, err := p.Parse(cmd.Context(), filepath.Base(path), data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if len(args) > 1 {
			fmt.Fprintf(cmd.OutOrStdout(), "==> %s <==\n", path)
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
	}
	return nil
}
