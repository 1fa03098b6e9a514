package whisperx

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	langpkg "scraibe/internal/language"
	"scraibe/internal/services"
)

// Service provides WhisperX transcription capabilities.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.UVXBinary == "" {
		cfg.UVXBinary = UVXCommand
	}
	if cfg.FFmpegBinary == "" {
		cfg.FFmpegBinary = FFmpegCommand
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// CUDAEnabled returns whether CUDA is enabled.
func (s *Service) CUDAEnabled() bool {
	return s.cfg.CUDAEnabled
}

// Threads returns the per-invocation thread cap.
func (s *Service) Threads() int {
	return s.cfg.Threads
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	env := os.Environ()
	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		env = append(env, "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if s.cfg.Threads > 0 {
		n := strconv.Itoa(s.cfg.Threads)
		env = append(env, "OMP_NUM_THREADS="+n, "MKL_NUM_THREADS="+n)
	}
	cmd.Env = env

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Request describes one WhisperX invocation.
type Request struct {
	// Source is the audio or video file to process.
	Source string
	// WorkDir receives the extracted WAV and WhisperX output.
	WorkDir string
	// Language is a language hint in any form ToISO2 accepts. Empty auto-detects.
	Language string
	// Translate asks WhisperX to translate the speech to English.
	Translate bool
	// Diarize assigns speaker labels to segments.
	Diarize bool
	// Speakers fixes the number of speakers when positive.
	Speakers int
}

// Result contains the parsed output of one invocation.
type Result struct {
	Payload  Payload
	Raw      []byte
	JSONPath string
}

// Run extracts audio from the source and runs WhisperX over it.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	var result Result

	if strings.TrimSpace(req.Source) == "" {
		return result, services.Wrap(services.ErrValidation, "whisperx", "run", "source path required", nil)
	}
	if _, err := os.Stat(req.Source); err != nil {
		return result, services.Wrap(services.ErrNotFound, "whisperx", "stat source", req.Source, err)
	}
	if req.WorkDir == "" {
		return result, services.Wrap(services.ErrValidation, "whisperx", "run", "work dir required", nil)
	}
	if err := os.MkdirAll(req.WorkDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrTransient, "whisperx", "ensure work dir", req.WorkDir, err)
	}
	if req.Diarize && s.cfg.HFToken == "" {
		return result, services.Wrap(services.ErrConfiguration, "whisperx", "diarize",
			"engine.whisperx_hf_token (or HF_TOKEN) is required for diarization", nil)
	}

	wav := filepath.Join(req.WorkDir, extractedAudioName)
	if err := s.run(ctx, s.cfg.FFmpegBinary, buildExtractArgs(req.Source, wav)...); err != nil {
		return result, services.Wrap(services.ErrExternalTool, "whisperx", "extract audio", req.Source, err)
	}

	if err := s.run(ctx, s.cfg.UVXBinary, s.buildArgs(wav, req)...); err != nil {
		return result, services.Wrap(services.ErrExternalTool, "whisperx", "transcribe", req.Source, err)
	}

	result.JSONPath = filepath.Join(req.WorkDir, strings.TrimSuffix(extractedAudioName, filepath.Ext(extractedAudioName))+".json")
	payload, raw, err := LoadPayload(result.JSONPath)
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "whisperx", "load output", result.JSONPath, err)
	}
	result.Payload = payload
	result.Raw = raw
	return result, nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source string, req Request) []string {
	args := make([]string, 0, 48)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	batch := s.cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", strconv.Itoa(batch),
		"--output_dir", req.WorkDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--temperature", Temperature,
	)

	task := TaskTranscribe
	if req.Translate {
		task = TaskTranslate
	}
	args = append(args, "--task", task)

	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if (vadMethod == VADMethodPyannote || req.Diarize) && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	if req.Diarize {
		args = append(args, "--diarize")
		if req.Speakers > 0 {
			n := strconv.Itoa(req.Speakers)
			args = append(args, "--min_speakers", n, "--max_speakers", n)
		}
	}

	if lang := langpkg.ToISO2(req.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	if s.cfg.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(s.cfg.Threads))
	}

	if s.cfg.CUDAEnabled {
		computeType := s.cfg.ComputeType
		if computeType == "" {
			computeType = CUDAComputeType
		}
		args = append(args, "--device", CUDADevice, "--compute_type", computeType)
	} else {
		computeType := s.cfg.ComputeType
		if computeType == "" {
			computeType = CPUComputeType
		}
		args = append(args, "--device", CPUDevice, "--compute_type", computeType)
	}

	return args
}
