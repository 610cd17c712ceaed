package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestSelectionError_Is(t *testing.T) {
	err := fmt.Errorf("resolve: %w", NewSelectionError("no speaker or party specified"))
	if !errors.Is(err, ErrSelection) {
		t.Fatalf("expected ErrSelection, got %v", err)
	}

	var se *SelectionError
	if !errors.As(err, &se) {
		t.Fatal("expected *SelectionError")
	}
	if se.Reason != "no speaker or party specified" {
		t.Errorf("unexpected reason %q", se.Reason)
	}
}

func TestUpstreamRequestError_IsAndUnwrap(t *testing.T) {
	err := &UpstreamRequestError{
		Speaker:    "山田太郎",
		Keyword:    "防衛",
		StatusCode: 500,
		Err:        context.DeadlineExceeded,
	}

	if !errors.Is(err, ErrUpstreamRequest) {
		t.Error("expected ErrUpstreamRequest")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected wrapped cause to be reachable")
	}
	if errors.Is(err, ErrSummarization) {
		t.Error("must not match unrelated sentinel")
	}

	want := `upstream request failed: speaker="山田太郎" keyword="防衛" status=500: context deadline exceeded`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestUpstreamRequestError_NoStatus(t *testing.T) {
	err := &UpstreamRequestError{Speaker: "A", Keyword: "k"}
	want := `upstream request failed: speaker="A" keyword="k"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
