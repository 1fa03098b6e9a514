// Package notifications delivers job outcomes to receivers and alerts to operators.
//
// Receivers get e-mail through the Service interface: SendTranscript attaches
// the artifacts of a finished job and SendErrorNotification explains why a job
// failed. The SMTP implementation uses go-mail with subjects and bodies
// rendered from text/template strings in config.toml. Without a mail host the
// service degrades to a logging no-op.
//
// Operators get short ntfy pushes through the Alerter when a job fails, when a
// receiver could not be notified, or when admission stalls.
package notifications
