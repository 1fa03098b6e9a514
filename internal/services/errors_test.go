package services_test

import (
	"errors"
	"strings"
	"testing"

	"scraibe/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcribe", "whisperx", "failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestDetailsClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      services.ErrorKind
		operation string
		message   string
	}{
		{
			name:      "validation",
			err:       services.Wrap(services.ErrValidation, "submit", "validate", "receiver missing", nil),
			kind:      services.KindValidation,
			operation: "validate",
			message:   "receiver missing",
		},
		{
			name:      "timeout",
			err:       services.Wrap(services.ErrTimeout, "admission", "acquire", "no free slot", errors.New("deadline")),
			kind:      services.KindTimeout,
			operation: "acquire",
			message:   "no free slot",
		},
		{
			name:    "plain error",
			err:     errors.New("disk full"),
			kind:    services.KindUnknown,
			message: "disk full",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			details := services.Details(tc.err)
			if details.Kind != tc.kind {
				t.Fatalf("kind = %q, want %q", details.Kind, tc.kind)
			}
			if details.Operation != tc.operation {
				t.Fatalf("operation = %q, want %q", details.Operation, tc.operation)
			}
			if details.Message != tc.message {
				t.Fatalf("message = %q, want %q", details.Message, tc.message)
			}
			if details.Hint == "" {
				t.Fatal("expected a hint")
			}
		})
	}
}
