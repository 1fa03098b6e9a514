// Package whisperx runs WhisperX through uvx and parses its JSON output.
//
// This package handles:
//   - Converting uploads to mono 16kHz WAV with ffmpeg
//   - Building the WhisperX command line (task, language, threads, diarization)
//   - Loading segments, words, and speaker labels from the JSON result
//
// Configuration options (model, CUDA, VAD method, compute type) are passed via
// Config. Tests replace the command runner to avoid launching real tools.
package whisperx
