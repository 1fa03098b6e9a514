// Package logs tails the daemon log file for the CLI and the IPC server.
//
// A negative offset returns the last N lines; a non-negative offset reads
// forward from that byte position and, in follow mode, polls until new lines
// arrive or the wait elapses. Lines can be narrowed to a single job, matching
// both the console and the JSON log formats.
package logs
