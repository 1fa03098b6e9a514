// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// The server registers a single "Scraibe" service. Submit hands a job to the
// daemon and returns as soon as it is queued; every other call is read-only
// except Shutdown, which asks the hosting process to stop. Errors cross the
// wire as strings, so clients match on message text rather than markers.
package ipc
