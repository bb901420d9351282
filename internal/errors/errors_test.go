package errors

import (
	"errors"
	"fmt"
	"testing"
)

type hinted struct{}

func (hinted) Error() string    { return "slot is closed" }
func (hinted) Guidance() string { return "enter the morning first" }

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "simple error", err: errors.New("something went wrong"), expected: "Error: something went wrong"},
		{name: "wrapped error", err: fmt.Errorf("commit: %w", errors.New("disk full")), expected: "Error: commit: disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.err); got != tt.expected {
				t.Errorf("Format(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}

func TestFormatf(t *testing.T) {
	got := Formatf("failed to load %s", "hotel")
	if got != "Error: failed to load hotel" {
		t.Errorf("Formatf() = %q", got)
	}
}

func TestGuidance(t *testing.T) {
	if got := Guidance(errors.New("plain")); got != "" {
		t.Errorf("Guidance(plain) = %q, want empty", got)
	}
	wrapped := fmt.Errorf("create event: %w", hinted{})
	if got := Guidance(wrapped); got != "enter the morning first" {
		t.Errorf("Guidance(wrapped) = %q", got)
	}
}
