// Package services defines shared utilities consumed by the job executor and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, task names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures carry a
//     consistent classification into logs and notifications.
//
// Use these helpers when wiring new engine or transport adapters so
// operational behaviour (error handling, observability) stays uniform.
package services
