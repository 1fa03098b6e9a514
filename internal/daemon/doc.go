// Package daemon coordinates the long-running scraibe process.
//
// It wires configuration, the admission gate, the queue tracker, and the job
// runner into a single lifecycle with flock-based locking to prevent multiple
// instances. The daemon is the submission surface: requests are validated
// here before they reach the runner. It also serves the read-only HTTP status
// API and reports dependency health.
//
// Keep orchestration logic here: job execution lives in workflow and jobs
// while the daemon focuses on startup, shutdown, and high level coordination.
package daemon
