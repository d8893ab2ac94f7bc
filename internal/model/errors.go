package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAuth reports a missing, invalid or expired credential.
var ErrAuth = errors.New("authentication required")

// FetchError wraps a failure of a single network branch (one metadata
// collection, one file, one AI call). It never aborts sibling branches.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DownloadError reports a non-success status from the file-storage API,
// or a file larger than Limit bytes.
type DownloadError struct {
	FileID     string
	StatusCode int
	Limit      int64
}

func (e *DownloadError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("download %s: larger than %d bytes", e.FileID, e.Limit)
	}
	return fmt.Sprintf("download %s: status %d", e.FileID, e.StatusCode)
}

// AIResponseError reports a non-2xx or malformed payload from an AI backend.
type AIResponseError struct {
	Endpoint string
	Message  string
	Err      error
}

func (e *AIResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Endpoint, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
}

func (e *AIResponseError) Unwrap() error { return e.Err }

// StorageQuotaError reports a persistent cache write that could not be stored.
type StorageQuotaError struct {
	Key string
	Err error
}

func (e *StorageQuotaError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Key, e.Err)
}

func (e *StorageQuotaError) Unwrap() error { return e.Err }

// PartialDataError collects the branch failures of one aggregation pass.
type PartialDataError struct {
	CourseID string
	Failures []*FetchError
}

func (e *PartialDataError) Error() string {
	ops := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ops[i] = f.Op
	}
	return fmt.Sprintf("course %s: partial data (%d failed: %s)", e.CourseID, len(e.Failures), strings.Join(ops, ", "))
}

// Unwrap exposes every branch failure to errors.Is / errors.As.
func (e *PartialDataError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}
