package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"scraibe/internal/config"
	"scraibe/internal/logging"
	"scraibe/internal/services"
	"scraibe/internal/services/whisperx"
)

// ResolveThreads maps the threads_per_model setting to a concrete count.
// Zero means every available core.
func ResolveThreads(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// WhisperXFactory builds handles backed by WhisperX.
type WhisperXFactory struct {
	cfg     whisperx.Config
	workDir string
	logger  *slog.Logger
	runner  func(ctx context.Context, name string, args ...string) error
}

// NewWhisperXFactory captures the engine settings from cfg.
func NewWhisperXFactory(cfg *config.Config, logger *slog.Logger) *WhisperXFactory {
	return &WhisperXFactory{
		cfg: whisperx.Config{
			Model:        cfg.Engine.WhisperXModel,
			CUDAEnabled:  cfg.Engine.WhisperXCUDAEnabled,
			VADMethod:    cfg.Engine.WhisperXVADMethod,
			HFToken:      cfg.Engine.WhisperXHuggingFace,
			BatchSize:    cfg.Engine.BatchSize,
			ComputeType:  cfg.Engine.ComputeType,
			Threads:      ResolveThreads(cfg.Jobs.ThreadsPerModel),
			UVXBinary:    cfg.UVXBinary(),
			FFmpegBinary: cfg.FFmpegBinary(),
		},
		workDir: cfg.Paths.WorkDir,
		logger:  logging.NewComponentLogger(logger, "engine"),
	}
}

// WithCommandRunner replaces process execution for every handle (for testing).
func (f *WhisperXFactory) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	f.runner = runner
}

// New creates a handle with a private scratch directory.
func (f *WhisperXFactory) New(ctx context.Context) (Handle, error) {
	if err := os.MkdirAll(f.workDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "ensure work dir", f.workDir, err)
	}
	scratch, err := os.MkdirTemp(f.workDir, "job-*")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "engine", "create scratch dir", f.workDir, err)
	}
	svc := whisperx.NewService(f.cfg)
	if f.runner != nil {
		svc.WithCommandRunner(f.runner)
	}
	logging.WithContext(ctx, f.logger).Debug("engine handle created",
		logging.String("scratch", scratch),
		logging.String("model", svc.Model()),
		logging.Int("threads", svc.Threads()),
		logging.Bool("cuda", svc.CUDAEnabled()),
	)
	return &whisperXHandle{svc: svc, scratch: scratch, logger: f.logger}, nil
}

type whisperXHandle struct {
	svc     *whisperx.Service
	scratch string
	logger  *slog.Logger

	calls     atomic.Int64
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func (h *whisperXHandle) AutoTranscribe(ctx context.Context, audio string, speakers int, translate bool, language string) (AutoResult, error) {
	res, err := h.run(ctx, whisperx.Request{
		Source:    audio,
		Language:  language,
		Translate: translate,
		Diarize:   true,
		Speakers:  speakers,
	})
	if err != nil {
		return AutoResult{}, err
	}
	transcript := toTranscript(res.Payload)
	return AutoResult{Raw: res.Raw, Text: transcript.String(), Transcript: transcript}, nil
}

func (h *whisperXHandle) Transcribe(ctx context.Context, audio string, translate bool, language string) (string, error) {
	res, err := h.run(ctx, whisperx.Request{
		Source:    audio,
		Language:  language,
		Translate: translate,
	})
	if err != nil {
		return "", err
	}
	return toTranscript(res.Payload).PlainText(), nil
}

func (h *whisperXHandle) Diarize(ctx context.Context, audio string, speakers int) (Diarization, error) {
	res, err := h.run(ctx, whisperx.Request{
		Source:   audio,
		Diarize:  true,
		Speakers: speakers,
	})
	if err != nil {
		return Diarization{}, err
	}
	return DiarizationFrom(toTranscript(res.Payload).Segments), nil
}

func (h *whisperXHandle) Close() error {
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		if err := os.RemoveAll(h.scratch); err != nil {
			h.closeErr = services.Wrap(services.ErrTransient, "engine", "remove scratch dir", h.scratch, err)
		}
	})
	return h.closeErr
}

func (h *whisperXHandle) run(ctx context.Context, req whisperx.Request) (whisperx.Result, error) {
	if h.closed.Load() {
		return whisperx.Result{}, ErrClosed
	}
	req.WorkDir = filepath.Join(h.scratch, fmt.Sprintf("%03d", h.calls.Add(1)))
	logging.WithContext(ctx, h.logger).Info("whisperx started",
		logging.String("audio", req.Source),
		logging.Bool("diarize", req.Diarize),
		logging.Bool("translate", req.Translate),
		logging.String(logging.FieldEventType, "engine_started"),
	)
	res, err := h.svc.Run(ctx, req)
	if err != nil {
		return res, err
	}
	logging.WithContext(ctx, h.logger).Info("whisperx finished",
		logging.String("audio", req.Source),
		logging.Int("segments", len(res.Payload.Segments)),
		logging.String("language", res.Payload.Language),
		logging.String("output", res.JSONPath),
		logging.String(logging.FieldEventType, "engine_finished"),
	)
	return res, nil
}

func toTranscript(payload whisperx.Payload) Transcript {
	t := Transcript{Language: payload.Language, Segments: make([]Segment, 0, len(payload.Segments))}
	for _, seg := range payload.Segments {
		t.Segments = append(t.Segments, Segment{
			Speaker: seg.Speaker,
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
		})
	}
	return t
}
