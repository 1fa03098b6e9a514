package textutil

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func asciiFolder() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
}

// SanitizeFileName folds a bare file name to the safe character set.
// Compatibility decomposition runs first and any remaining non-ASCII rune is
// dropped, spaces become underscores, and everything outside [A-Za-z0-9._-]
// is removed. The result is stable under repeated application.
func SanitizeFileName(name string) string {
	folded, _, err := transform.String(asciiFolder(), name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case isSafe(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizePath sanitizes only the final element of path and rejoins it with
// the untouched directory prefix.
func SanitizePath(path string) string {
	dir, file := filepath.Split(path)
	return dir + SanitizeFileName(file)
}

// BaseName returns the sanitized file name of path with its extension removed.
func BaseName(path string) string {
	name := SanitizeFileName(filepath.Base(path))
	if ext := filepath.Ext(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}
