// Package jobs defines transcription job requests and executes them.
//
// A Request is validated at the submission surface with
// go-playground/validator and deep-copied before it reaches a worker, so a
// submitted job is immutable. The Executor runs one request against a fresh
// engine handle, writes artifacts for every audio input in order, and returns
// a Result that either lists the artifacts or carries the failure.
package jobs
