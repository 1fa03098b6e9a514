// Package preflight provides readiness checks for the filesystem paths,
// external binaries, and mail relay the daemon depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at start and logs every failed check as a
//     warning; jobs still run so a transient SMTP outage does not block work.
//   - The CLI "scraibe preflight" command prints the same results as a table.
package preflight
