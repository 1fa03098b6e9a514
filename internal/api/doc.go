// Package api defines wire-format types and converters shared by the HTTP
// status endpoint, the IPC server, and the CLI. It translates tracker records
// into transport-friendly DTOs so clients never depend on internal types.
//
// DTOs use camelCase JSON tags. Statuses are exposed as lowercase strings and
// timestamps as RFC3339 with milliseconds.
package api
