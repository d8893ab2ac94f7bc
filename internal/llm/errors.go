package llm

import (
	"fmt"
	"time"
)

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the model returned text that could not be
// turned into the expected JSON structure.
type ErrInvalidResponse struct {
	Content string
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down, unreachable or
// not configured.
type ErrProviderUnavailable struct {
	Provider string
	Err      error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider %s unavailable: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("LLM provider %s unavailable", e.Provider)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrAllFailed is returned when every provider in the fallback chain failed.
type ErrAllFailed struct {
	Tried []string
	Last  error
}

func (e *ErrAllFailed) Error() string {
	return fmt.Sprintf("All AI providers failed. Last error: %v", e.Last)
}

func (e *ErrAllFailed) Unwrap() error { return e.Last }
