// Package admission bounds how many jobs may run their compute phase at once.
//
// A Gate is a counting permit pool sized from jobs.max_concurrent. Workers
// block in Acquire until a permit frees up and hold the returned Slot for the
// whole compute, notify and cleanup sequence. Slot.Release is idempotent so it
// can be deferred on every exit path.
//
// When jobs.admission_timeout is set the wait is bounded and Acquire reports
// ErrAdmissionStall instead of blocking forever.
package admission
