// Command scraibe is the CLI for the scraibe transcription daemon.
//
// Most commands talk to a running daemon over its Unix socket: start, stop,
// status, submit, job, logs and test-notify. The config, preflight and
// sanitize commands work locally without a daemon. The hidden daemon command
// is what start launches in the background.
package main
