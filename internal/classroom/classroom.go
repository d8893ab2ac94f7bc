// Package classroom reads course metadata from Google Classroom and file
// bytes from Google Drive on behalf of a signed-in user.
package classroom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	classroomapi "google.golang.org/api/classroom/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/pavelanni/examprep/internal/model"
)

// Scopes are the read-only OAuth scopes the client needs.
var Scopes = []string{
	"https://www.googleapis.com/auth/classroom.courses.readonly",
	"https://www.googleapis.com/auth/classroom.announcements.readonly",
	"https://www.googleapis.com/auth/classroom.coursework.students.readonly",
	"https://www.googleapis.com/auth/classroom.courseworkmaterials.readonly",
	"https://www.googleapis.com/auth/drive.readonly",
}

const (
	coursePageSize    = 12
	defaultSection    = "General"
	maxDownloadBytes  = 100 << 20
	activeCourseState = "ACTIVE"
)

// Client wraps the Classroom and Drive services for one token source.
type Client struct {
	classroom *classroomapi.Service
	drive     *drive.Service
	maxBytes  int64
}

// New builds a client whose requests are authorized by ts.
// Extra options (endpoint, HTTP client) are applied to both services.
func New(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	cs, err := classroomapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("classroom service: %w", err)
	}
	ds, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &Client{classroom: cs, drive: ds, maxBytes: maxDownloadBytes}, nil
}

// Courses lists the user's active courses.
func (c *Client) Courses(ctx context.Context) ([]model.Course, error) {
	resp, err := c.classroom.Courses.List().
		CourseStates(activeCourseState).
		PageSize(coursePageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapAPIError("list courses", err)
	}
	return convertCourses(resp.Courses), nil
}

// Announcements returns the newest announcements of a course.
func (c *Client) Announcements(ctx context.Context, courseID string, pageSize int64) ([]model.Material, error) {
	resp, err := c.classroom.Courses.Announcements.List(courseID).
		PageSize(pageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapAPIError("announcements", err)
	}
	out := make([]model.Material, 0, len(resp.Announcements))
	for _, a := range resp.Announcements {
		out = append(out, model.Material{Text: a.Text, Files: driveFiles(a.Materials)})
	}
	return out, nil
}

// CourseWork returns the newest assignments of a course.
func (c *Client) CourseWork(ctx context.Context, courseID string, pageSize int64) ([]model.Material, error) {
	resp, err := c.classroom.Courses.CourseWork.List(courseID).
		PageSize(pageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapAPIError("coursework", err)
	}
	out := make([]model.Material, 0, len(resp.CourseWork))
	for _, w := range resp.CourseWork {
		out = append(out, model.Material{Text: w.Description, Files: driveFiles(w.Materials)})
	}
	return out, nil
}

// CourseWorkMaterials returns the newest posted materials of a course.
func (c *Client) CourseWorkMaterials(ctx context.Context, courseID string, pageSize int64) ([]model.Material, error) {
	resp, err := c.classroom.Courses.CourseWorkMaterials.List(courseID).
		PageSize(pageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapAPIError("coursework materials", err)
	}
	out := make([]model.Material, 0, len(resp.CourseWorkMaterial))
	for _, m := range resp.CourseWorkMaterial {
		out = append(out, model.Material{Text: m.Description, Files: driveFiles(m.Materials)})
	}
	return out, nil
}

// Download returns the full content of a Drive file.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.drive.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return nil, &model.DownloadError{FileID: fileID, StatusCode: gerr.Code}
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &model.DownloadError{FileID: fileID, StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, &model.DownloadError{FileID: fileID, StatusCode: http.StatusRequestEntityTooLarge, Limit: c.maxBytes}
	}
	return data, nil
}

func convertCourses(in []*classroomapi.Course) []model.Course {
	out := make([]model.Course, 0, len(in))
	for _, c := range in {
		if c == nil {
			continue
		}
		section := strings.TrimSpace(c.Section)
		if section == "" {
			section = defaultSection
		}
		out = append(out, model.Course{ID: c.Id, Name: c.Name, Section: section})
	}
	return out
}

// driveFiles collects the Drive attachments of a material list. Links,
// videos and forms are skipped.
func driveFiles(materials []*classroomapi.Material) []model.FileRef {
	var out []model.FileRef
	for _, m := range materials {
		if m == nil || m.DriveFile == nil || m.DriveFile.DriveFile == nil {
			continue
		}
		f := m.DriveFile.DriveFile
		if f.Id == "" {
			continue
		}
		kind, _ := model.KindFromTitle(f.Title)
		out = append(out, model.FileRef{ID: f.Id, Title: f.Title, Kind: kind})
	}
	return out
}

// wrapAPIError maps 401 responses to model.ErrAuth so callers can force a
// new sign-in.
func wrapAPIError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", op, model.ErrAuth)
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%s: %w", op, model.ErrAuth)
	}
	return fmt.Errorf("%s: %w", op, err)
}
