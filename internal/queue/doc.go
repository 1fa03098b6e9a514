// Package queue tracks submitted jobs in memory.
//
// The Tracker owns the queue counter: it is incremented once when a job is
// submitted and decremented once when the job finishes, so Depth always
// equals the number of submitted-but-not-completed jobs and never drops
// below zero. Alongside the counter it keeps a registry of active jobs and a
// short history of finished ones for the status API and CLI.
//
// Nothing here is persisted; a daemon restart forgets every job.
package queue
