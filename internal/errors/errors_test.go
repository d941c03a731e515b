package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "simple error",
			err:      stderrors.New("something went wrong"),
			expected: "Error: something went wrong",
		},
		{
			name:     "classified error",
			err:      Validation("create habit", "habit name cannot be empty"),
			expected: "Error: create habit: habit name cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.err)
			if result != tt.expected {
				t.Errorf("Format(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatf(t *testing.T) {
	got := Formatf("failed to load %s", "database")
	if got != "Error: failed to load database" {
		t.Errorf("Formatf() = %q", got)
	}
}

func TestKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     Kind
	}{
		{"validation", Validation("op", "bad input"), ErrValidation, KindValidation},
		{"not found", NotFound("op", "habit %d not found", 3), ErrNotFound, KindNotFound},
		{"storage", Storage("op", stderrors.New("disk full")), ErrStorage, KindStorage},
		{"wrapped validation", fmt.Errorf("outer: %w", Validation("op", "bad")), ErrValidation, KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !stderrors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false", tt.err)
			}
			if got := KindOf(tt.err); got != tt.kind {
				t.Errorf("KindOf() = %v, want %v", got, tt.kind)
			}
			for _, other := range []error{ErrValidation, ErrNotFound, ErrStorage} {
				if other != tt.sentinel && stderrors.Is(tt.err, other) {
					t.Errorf("errors.Is(%v, %v) = true, want false", tt.err, other)
				}
			}
		})
	}
}

func TestStorageKeepsClassifiedErrors(t *testing.T) {
	notFound := NotFound("add entry", "habit 9 not found")
	if got := Storage("record completion", notFound); got != notFound {
		t.Errorf("Storage() rewrapped a classified error: %v", got)
	}
	if Storage("op", nil) != nil {
		t.Error("Storage(nil) should be nil")
	}
}

func TestStorageUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Storage("list habits", cause)
	if !stderrors.Is(err, cause) {
		t.Error("storage error should unwrap to its cause")
	}
	if err.Error() != "list habits: storage error: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestMessage(t *testing.T) {
	if got := Message(Validation("create habit", "period cannot be empty")); got != "period cannot be empty" {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(stderrors.New("plain")); got != "plain" {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(nil); got != "" {
		t.Errorf("Message(nil) = %q", got)
	}
}
