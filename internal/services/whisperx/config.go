package whisperx

// Config captures runtime settings for WhisperX operations.
type Config struct {
	// Model is the WhisperX model to use (e.g., "large-v3").
	Model string
	// CUDAEnabled enables GPU acceleration.
	CUDAEnabled bool
	// VADMethod selects the voice activity detection method ("silero" or "pyannote").
	VADMethod string
	// HFToken is the Hugging Face token for pyannote VAD and diarization.
	HFToken string
	// BatchSize is the inference batch size. Zero uses DefaultBatchSize.
	BatchSize int
	// ComputeType overrides the precision passed to the model.
	ComputeType string
	// Threads caps CPU threads for one invocation. Zero leaves the choice to torch.
	Threads int
	// UVXBinary is the uvx executable. Empty uses UVXCommand.
	UVXBinary string
	// FFmpegBinary is the ffmpeg executable. Empty uses FFmpegCommand.
	FFmpegBinary string
}

// WhisperX configuration constants.
const (
	DefaultModel       = "large-v3"
	DefaultBatchSize   = 4
	CUDAIndexURL       = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL       = "https://pypi.org/simple"
	ChunkSize          = "15"
	VADOnset           = "0.08"
	VADOffset          = "0.07"
	BeamSize           = "5"
	Temperature        = "0.0"
	SegmentResolution  = "sentence"
	OutputFormat       = "json"
	CPUDevice          = "cpu"
	CUDADevice         = "cuda"
	CPUComputeType     = "float32"
	CUDAComputeType    = "float16"
	VADMethodPyannote  = "pyannote"
	VADMethodSilero    = "silero"
	TaskTranscribe     = "transcribe"
	TaskTranslate      = "translate"
	extractedAudioName = "audio.wav"
)

// Command names for external tools.
const (
	UVXCommand    = "uvx"
	FFmpegCommand = "ffmpeg"
)
