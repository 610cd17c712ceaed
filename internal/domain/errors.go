package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataSource signals that the legislator roster could not be read or decoded.
	ErrDataSource = errors.New("roster data source error")
	// ErrSelection signals insufficient or invalid user input.
	ErrSelection = errors.New("invalid selection")
	// ErrUpstreamRequest signals a failed speech API call for one (speaker, keyword) pair.
	ErrUpstreamRequest = errors.New("upstream request failed")
	// ErrEmptyResult signals that no speech records remained after aggregation.
	ErrEmptyResult = errors.New("no speech records found")
	// ErrSummarizationQuota signals a rate limit or exhausted quota at the summarization provider.
	ErrSummarizationQuota = errors.New("summarization quota exceeded")
	// ErrSummarization signals any other summarization failure.
	ErrSummarization = errors.New("summarization failed")
)

// SelectionError wraps ErrSelection with a user-facing reason.
type SelectionError struct {
	Reason string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSelection.Error(), e.Reason)
}

func (e *SelectionError) Unwrap() error { return ErrSelection }

// NewSelectionError creates a selection error with the given reason.
func NewSelectionError(reason string) error {
	return &SelectionError{Reason: reason}
}

// UpstreamRequestError describes a failed speech query for a single pair.
// StatusCode is zero for transport and decoding failures.
type UpstreamRequestError struct {
	Speaker    string
	Keyword    string
	StatusCode int
	Err        error
}

func (e *UpstreamRequestError) Error() string {
	msg := fmt.Sprintf("%s: speaker=%q keyword=%q", ErrUpstreamRequest.Error(), e.Speaker, e.Keyword)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status=%d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches ErrUpstreamRequest so callers can classify without errors.As.
func (e *UpstreamRequestError) Is(target error) bool { return target == ErrUpstreamRequest }

func (e *UpstreamRequestError) Unwrap() error { return e.Err }
