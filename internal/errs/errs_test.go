package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestCategoriesMatchSentinels(t *testing.T) {
	cause := errors.New("429 Too Many Requests")
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"configuration", Configuration("GROQ_API_KEY is not set"), ErrConfiguration},
		{"transient", TransientRemote("llm", cause), ErrTransientRemote},
		{"remote", RemoteService("scraper", cause), ErrRemoteService},
		{"not found", NotFound("document", "abc"), ErrNotFound},
		{"validation", Validation("q cannot be empty"), ErrValidation},
		{"empty", EmptyResult("llm"), ErrEmptyResult},
		{"cycle", CycleDetected("a"), ErrCycleDetected},
		{"version", VersionConflict("p", 2, 2), ErrVersionConflict},
		{"in progress", RunInProgress("https://x"), ErrRunInProgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.kind) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.kind)
			}
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if !errors.Is(wrapped, tt.kind) {
				t.Errorf("wrapped error lost its category")
			}
		})
	}
}

func TestTransientKeepsCause(t *testing.T) {
	cause := errors.New("429 Too Many Requests")
	err := TransientRemote("llm", cause)
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
	if got := err.Error(); got != "llm rate limited: 429 Too Many Requests" {
		t.Errorf("Error() = %q", got)
	}
}

func TestClassifiers(t *testing.T) {
	if !IsTransient(TransientRemote("llm", nil)) {
		t.Error("IsTransient should be true")
	}
	if IsTransient(RemoteService("llm", nil)) {
		t.Error("remote service error must not be transient")
	}
	if IsTransient(nil) || IsNotFound(nil) || IsValidation(nil) || IsConfiguration(nil) {
		t.Error("nil error should not classify")
	}
	if !IsNotFound(fmt.Errorf("get: %w", NotFound("document", "x"))) {
		t.Error("IsNotFound through wrap")
	}
	if !IsValidation(Validation("bad")) || !IsConfiguration(Configuration("bad")) {
		t.Error("classification mismatch")
	}
}
