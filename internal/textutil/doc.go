// Package textutil provides filename sanitization for job inputs and artifacts.
//
// Sanitized names are plain ASCII drawn from letters, digits, dot, underscore
// and hyphen so they survive mail attachments and shell tooling unchanged.
// Accented letters are decomposed first so "ó" keeps its base letter "o".
package textutil
