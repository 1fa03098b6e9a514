// Package workflow runs submitted jobs to completion.
//
// The Runner accepts requests without blocking, spawns one goroutine per job
// and drives each through the same lifecycle: wait for an admission slot,
// execute the task, notify the receiver exactly once, delete the artifacts,
// release the slot, and decrement the queue counter. Outcomes reach the
// submitter only through the notification service. Operator alerts go to the
// configured ntfy topic.
package workflow
