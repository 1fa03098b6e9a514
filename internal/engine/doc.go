// Package engine defines the transcription engine contract used by jobs.
//
// A Factory builds a fresh Handle for every job from shared read-only
// settings; the handle is owned by exactly one job and closed when the job
// ends. The WhisperX factory backs each handle with its own scratch
// directory under paths.work_dir so concurrent jobs never share files.
package engine
