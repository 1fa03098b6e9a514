package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"scraibe/internal/artifacts"
	"scraibe/internal/engine"
	"scraibe/internal/logging"
	"scraibe/internal/services"
)

// Executor runs a single request end to end against a fresh engine handle.
type Executor struct {
	factory   engine.Factory
	artifacts *artifacts.Manager
	logger    *slog.Logger
}

// NewExecutor wires an executor to its engine factory and artifact manager.
func NewExecutor(factory engine.Factory, manager *artifacts.Manager, logger *slog.Logger) *Executor {
	return &Executor{
		factory:   factory,
		artifacts: manager,
		logger:    logging.NewComponentLogger(logger, "executor"),
	}
}

// Execute processes every audio input of req in order. The first engine or
// write error stops the iteration; artifacts written up to that point are
// still reported so the caller can delete them. A panic inside the engine is
// converted into a failed Result.
func (e *Executor) Execute(ctx context.Context, req Request) (result Result) {
	start := time.Now()
	ctx = services.WithTask(services.WithJobID(ctx, req.ID), string(req.Task))
	logger := logging.WithContext(ctx, e.logger)

	defer func() {
		if r := recover(); r != nil {
			result.Err = services.Wrap(services.ErrExternalTool, "execute", req.Task.Label(),
				"engine panicked", fmt.Errorf("%v", r))
		}
		result.Duration = time.Since(start)
	}()

	if !req.Task.Valid() {
		result.Err = services.Wrap(services.ErrValidation, "execute", "dispatch",
			fmt.Sprintf("unknown task %q", req.Task), nil)
		return result
	}

	handle, err := e.factory.New(ctx)
	if err != nil {
		result.Err = executionError(req.Task, "", err)
		return result
	}
	defer func() {
		if err := handle.Close(); err != nil {
			logging.WarnWithContext(logger, "engine handle close failed", "engine_close_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.work_dir for leftover scratch directories"),
				logging.String(logging.FieldImpact, "scratch files remain until the next daemon start"),
			)
		}
	}()

	out := e.artifacts.ForJob(req.ID)
	result.Dir = out.Dir()
	for i, audio := range req.Audio {
		logger.Info("processing audio input",
			logging.String("audio", audio),
			logging.Int("index", i+1),
			logging.Int("total", len(req.Audio)),
			logging.String(logging.FieldEventType, "job_input_started"),
		)
		produced, err := e.runTask(ctx, handle, out, req, audio)
		result.Artifacts = append(result.Artifacts, produced...)
		if err != nil {
			result.Err = err
			return result
		}
	}
	return result
}

func (e *Executor) runTask(ctx context.Context, handle engine.Handle, out *artifacts.Output, req Request, audio string) ([]artifacts.Artifact, error) {
	var produced []artifacts.Artifact
	paths := out.Reserve(audio)
	switch req.Task {
	case TaskAutoTranscribe:
		res, err := handle.AutoTranscribe(ctx, audio, req.Speakers, req.Translate, req.Language)
		if err != nil {
			return nil, executionError(req.Task, audio, err)
		}
		text, err := out.WriteText(paths, res.Text)
		if err != nil {
			return nil, executionError(req.Task, audio, err)
		}
		produced = append(produced, text)
		structured, err := out.WriteStructured(paths, res.Transcript)
		if err != nil {
			return produced, executionError(req.Task, audio, err)
		}
		produced = append(produced, structured)
	case TaskTranscribe:
		transcript, err := handle.Transcribe(ctx, audio, req.Translate, req.Language)
		if err != nil {
			return nil, executionError(req.Task, audio, err)
		}
		text, err := out.WriteText(paths, transcript)
		if err != nil {
			return nil, executionError(req.Task, audio, err)
		}
		produced = append(produced, text)
	case TaskDiarize:
		diarization, err := handle.Diarize(ctx, audio, req.Speakers)
		if err != nil {
			return nil, executionError(req.Task, audio, err)
		}
		structured, err := out.WriteStructured(paths, diarization)
		if err != nil {
			return nil, executionError(req.Task, audio, err)
		}
		produced = append(produced, structured)
	}
	return produced, nil
}

// executionError keeps an existing classification and otherwise tags err as
// an external tool failure.
func executionError(task Task, audio string, err error) error {
	subject := "create engine"
	if audio != "" {
		subject = filepath.Base(audio)
	}
	if services.Details(err).Kind == services.KindUnknown {
		return services.Wrap(services.ErrExternalTool, "execute", task.Label(), subject, err)
	}
	return fmt.Errorf("%s %s: %w", task.Label(), subject, err)
}
