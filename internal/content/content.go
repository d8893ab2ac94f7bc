// Package content aggregates the text of a classroom course: posted text
// from three metadata collections plus the extracted text of attached
// PDF and PPTX files.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/examprep/internal/metrics"
	"github.com/pavelanni/examprep/internal/model"
)

// Page sizes for the three metadata collections.
const (
	AnnouncementPageSize = 5
	CourseWorkPageSize   = 10
	MaterialPageSize     = 10
)

const (
	// MinTextLength is the aggregate length below which the fallback
	// study context replaces the collected text.
	MinTextLength = 50

	// DefaultConcurrency bounds in-flight file downloads and parses.
	DefaultConcurrency = 6
)

const fallbackFormat = `Subject: %[1]s
This is a generated study context because the classroom query returned limited text.
Key concepts in %[1]s often include fundamental theories, practical applications, architecture, and core methodologies.
`

// FallbackText returns the synthesized study context for a course.
func FallbackText(courseName string) string {
	return fmt.Sprintf(fallbackFormat, courseName)
}

// Source lists the metadata collections of a course.
type Source interface {
	Announcements(ctx context.Context, courseID string, pageSize int64) ([]model.Material, error)
	CourseWork(ctx context.Context, courseID string, pageSize int64) ([]model.Material, error)
	CourseWorkMaterials(ctx context.Context, courseID string, pageSize int64) ([]model.Material, error)
}

// Downloader fetches file bytes by ID.
type Downloader interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Client is the per-user view of the course and file APIs.
type Client interface {
	Source
	Downloader
}

// Parser extracts text from document bytes.
type Parser interface {
	Parse(ctx context.Context, fileName string, data []byte) (string, error)
}

// TextCache persists extracted text by file ID across sessions.
type TextCache interface {
	Get(ctx context.Context, fileID string) (string, bool, error)
	Put(ctx context.Context, fileID, text string) error
}

// CourseCache memoizes aggregation results by course ID for one session.
type CourseCache interface {
	CourseContent(courseID string) (*model.CourseContent, bool)
	StoreCourseContent(c *model.CourseContent)
}

// Aggregator runs the aggregation pipeline. It is safe for concurrent use.
type Aggregator struct {
	parser      Parser
	texts       TextCache
	metrics     *metrics.Metrics
	logger      *slog.Logger
	concurrency int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithConcurrency bounds parallel file processing.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithMetrics records cache and failure counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// New returns an Aggregator parsing with p and caching file text in texts.
func New(p Parser, texts TextCache, opts ...Option) *Aggregator {
	a := &Aggregator{
		parser:      p,
		texts:       texts,
		logger:      slog.Default(),
		concurrency: DefaultConcurrency,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// failures collects branch errors from concurrent goroutines.
type failures struct {
	mu   sync.Mutex
	list []*model.FetchError
}

func (f *failures) add(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list = append(f.list, &model.FetchError{Op: op, Err: err})
}

// Aggregate returns the course content, from the course cache when present.
// Branch failures never fail the call; they are reported on the result's
// Partial field. The only error returned is an authentication failure,
// since every branch would fail the same way.
func (a *Aggregator) Aggregate(ctx context.Context, c Client, cache CourseCache, course model.Course) (*model.CourseContent, error) {
	if cached, ok := cache.CourseContent(course.ID); ok {
		a.metrics.CourseCacheLookup(true)
		return cached, nil
	}
	a.metrics.CourseCacheLookup(false)

	var fails failures
	var announcements, work, materials []model.Material

	// All-settled join: goroutines record failures and always return nil.
	var g errgroup.Group
	fetch := func(op string, dst *[]model.Material, list func(context.Context, string, int64) ([]model.Material, error), size int64) {
		g.Go(func() error {
			items, err := list(ctx, course.ID, size)
			if err != nil {
				fails.add(op, err)
				a.metrics.BranchFailed("metadata")
				a.logger.Warn("metadata fetch failed", "course_id", course.ID, "op", op, "error", err)
				return nil
			}
			*dst = items
			return nil
		})
	}
	fetch("announcements", &announcements, c.Announcements, AnnouncementPageSize)
	fetch("coursework", &work, c.CourseWork, CourseWorkPageSize)
	fetch("coursework materials", &materials, c.CourseWorkMaterials, MaterialPageSize)
	_ = g.Wait()

	if len(fails.list) == 3 && allAuth(fails.list) {
		return nil, fmt.Errorf("course %s: %w", course.ID, model.ErrAuth)
	}

	var text strings.Builder
	var refs []model.FileRef
	for _, group := range [][]model.Material{announcements, work, materials} {
		for _, m := range group {
			text.WriteString(m.Text)
			text.WriteByte('\n')
			refs = append(refs, m.Files...)
		}
	}

	files := EligibleFiles(refs)
	parsed := a.parseAll(ctx, c, files, &fails)
	for _, t := range parsed {
		if t != "" {
			text.WriteString(t)
			text.WriteByte('\n')
		}
	}

	result := &model.CourseContent{
		CourseID: course.ID,
		Text:     text.String(),
		Files:    files,
	}
	if utf8.RuneCountInString(result.Text) < MinTextLength {
		a.logger.Info("low course content, using fallback context", "course_id", course.ID)
		result.Text = FallbackText(course.Name)
		result.Fallback = true
	}
	if len(fails.list) > 0 {
		result.Partial = &model.PartialDataError{CourseID: course.ID, Failures: fails.list}
	}

	cache.StoreCourseContent(result)
	a.logger.Info("course aggregated", "course_id", course.ID,
		"files", len(files), "chars", len(result.Text), "failures", len(fails.list))
	return result, nil
}

func allAuth(list []*model.FetchError) bool {
	for _, f := range list {
		if !errors.Is(f.Err, model.ErrAuth) {
			return false
		}
	}
	return true
}

// parseAll parses files with bounded concurrency and returns their texts in
// input order; failed files yield "".
func (a *Aggregator) parseAll(ctx context.Context, dl Downloader, files []model.FileRef, fails *failures) []string {
	out := make([]string, len(files))
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, f := range files {
		g.Go(func() error {
			text, err := a.parseFile(ctx, dl, f.ID, f.Title)
			if err != nil {
				fails.add("file "+f.ID, err)
				a.metrics.BranchFailed("file")
				a.logger.Warn("file skipped", "file_id", f.ID, "title", f.Title, "error", err)
				return nil
			}
			out[i] = text
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// ParseFile returns the text of one Drive file through the persistent
// cache. It never fails: any error yields ("", false).
func (a *Aggregator) ParseFile(ctx context.Context, dl Downloader, fileID, fileName string) (string, bool) {
	text, err := a.parseFile(ctx, dl, fileID, fileName)
	if err != nil {
		a.logger.Warn("parse file failed", "file_id", fileID, "error", err)
		return "", false
	}
	return text, true
}

func (a *Aggregator) parseFile(ctx context.Context, dl Downloader, fileID, fileName string) (string, error) {
	if a.texts != nil {
		text, ok, err := a.texts.Get(ctx, fileID)
		if err != nil {
			a.logger.Warn("file cache read failed", "file_id", fileID, "error", err)
		}
		a.metrics.FileCacheLookup(ok)
		if ok {
			return text, nil
		}
	}

	data, err := dl.Download(ctx, fileID)
	if err != nil {
		return "", err
	}
	text, err := a.parser.Parse(ctx, fileName, data)
	if err != nil {
		return "", err
	}

	if a.texts != nil {
		if err := a.texts.Put(ctx, fileID, text); err != nil {
			qerr := &model.StorageQuotaError{Key: fileID, Err: err}
			a.logger.Warn("file cache write ignored", "error", qerr)
		}
	}
	return text, nil
}

// EligibleFiles deduplicates refs by ID (first occurrence wins, order kept)
// and keeps only PDF and PPTX titles. Applying it twice changes nothing.
func EligibleFiles(refs []model.FileRef) []model.FileRef {
	seen := make(map[string]bool, len(refs))
	out := make([]model.FileRef, 0, len(refs))
	for _, r := range refs {
		kind, ok := model.KindFromTitle(r.Title)
		if !ok || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		r.Kind = kind
		out = append(out, r)
	}
	return out
}
