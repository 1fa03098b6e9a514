package services_test

import (
	"context"
	"testing"

	"scraibe/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job-42")
	ctx = services.WithTask(ctx, "transcribe")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-42" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if task, ok := services.TaskFromContext(ctx); !ok || task != "transcribe" {
		t.Fatalf("unexpected task: %v %v", task, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestTaskBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTask(ctx, "")
	if _, ok := services.TaskFromContext(ctx); ok {
		t.Fatal("expected no task value")
	}
}
