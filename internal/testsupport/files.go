package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteAudio creates a placeholder audio file of size bytes under dir and
// returns its path. A size <= 0 writes a single byte.
func WriteAudio(t testing.TB, dir, name string, size int) string {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// AssertMissing fails the test when any of the paths still exist.
func AssertMissing(t testing.TB, paths ...string) {
	t.Helper()
	for _, path := range paths {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be removed (stat err=%v)", path, err)
		}
	}
}
