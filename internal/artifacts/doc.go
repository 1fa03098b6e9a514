// Package artifacts writes per-job output files and removes them afterwards.
//
// Each job writes into its own directory, out-<job id> under the manager root,
// so concurrent jobs on the same audio never share a path. Within a job every
// audio input gets <base>.txt for plain transcripts and <base>.json for
// structured diarization output, where base is the sanitized file name plus a
// numeric suffix when an earlier input already took it. Files are written to a
// temp name and renamed into place. The runner hands the written set to the
// notifier and then calls Cleanup, which deletes each file independently and
// then the job directory.
package artifacts
