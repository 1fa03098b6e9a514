package artifacts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"scraibe/internal/logging"
	"scraibe/internal/services"
	"scraibe/internal/textutil"
)

// Kind distinguishes plain-text transcripts from structured output.
type Kind string

const (
	KindText       Kind = "text"
	KindStructured Kind = "structured"
)

const (
	textExt       = ".txt"
	structuredExt = ".json"
	fallbackBase  = "transcript"
	jobDirPrefix  = "out-"
)

// JobDirPattern matches the per-job output directories under the manager root.
const JobDirPattern = jobDirPrefix + "*"

// Artifact is a file produced for one job.
type Artifact struct {
	Path   string `json:"path"`
	Kind   Kind   `json:"kind"`
	Source string `json:"source"`
}

// Paths holds the output locations for one audio input.
type Paths struct {
	Source     string
	Base       string
	Text       string
	Structured string
}

// baseFor returns the sanitized file name of audio without its extension.
// Names that sanitize to nothing or to a dot file use a fixed base.
func baseFor(audio string) string {
	base := textutil.BaseName(audio)
	if base == "" || strings.HasPrefix(base, ".") {
		return fallbackBase
	}
	return base
}

func pathsWithBase(dir, audio, base string) Paths {
	return Paths{
		Source:     audio,
		Base:       base,
		Text:       filepath.Join(dir, base+textExt),
		Structured: filepath.Join(dir, base+structuredExt),
	}
}

// Manager writes artifacts into per-job directories under root and deletes them.
type Manager struct {
	root   string
	logger *slog.Logger
}

// NewManager returns a manager rooted at root. An empty root uses a scraibe
// directory under the system temp dir.
func NewManager(root string, logger *slog.Logger) *Manager {
	if strings.TrimSpace(root) == "" {
		root = filepath.Join(os.TempDir(), "scraibe")
	}
	return &Manager{root: root, logger: logging.NewComponentLogger(logger, "artifacts")}
}

// Root returns the directory holding the per-job output directories.
func (m *Manager) Root() string { return m.root }

// Output is the artifact namespace of one job. It belongs to a single worker
// and is not safe for concurrent use.
type Output struct {
	manager *Manager
	dir     string
	used    map[string]struct{}
}

// ForJob returns the output namespace for jobID. Distinct job IDs never share
// a directory; an empty ID gets a random one.
func (m *Manager) ForJob(jobID string) *Output {
	name := textutil.SanitizeFileName(strings.TrimSpace(jobID))
	if strings.Trim(name, ".") == "" {
		name = uuid.NewString()
	}
	return &Output{
		manager: m,
		dir:     filepath.Join(m.root, jobDirPrefix+name),
		used:    make(map[string]struct{}),
	}
}

// Dir returns the job's output directory. It exists once something was written.
func (o *Output) Dir() string { return o.dir }

// Reserve returns the paths for the next audio input of the job. Inputs whose
// sanitized base name is already taken get a numeric suffix, so every input
// keeps its own files.
func (o *Output) Reserve(audio string) Paths {
	base := baseFor(audio)
	candidate := base
	for n := 2; ; n++ {
		if _, taken := o.used[candidate]; !taken {
			break
		}
		candidate = base + "_" + strconv.Itoa(n)
	}
	o.used[candidate] = struct{}{}
	return pathsWithBase(o.dir, audio, candidate)
}

// WriteText writes a plain UTF-8 transcript to p.Text.
func (o *Output) WriteText(p Paths, content string) (Artifact, error) {
	if err := writeFile(p.Text, []byte(content)); err != nil {
		return Artifact{}, services.Wrap(services.ErrTransient, "artifacts", "write text",
			fmt.Sprintf("write %s", p.Text), err)
	}
	o.manager.logger.Debug("artifact written",
		logging.String("path", p.Text),
		logging.String("kind", string(KindText)),
		logging.String(logging.FieldEventType, "artifact_written"),
	)
	return Artifact{Path: p.Text, Kind: KindText, Source: p.Source}, nil
}

// WriteStructured marshals value as indented UTF-8 JSON to p.Structured.
// Non-ASCII text is written verbatim rather than escaped.
func (o *Output) WriteStructured(p Paths, value any) (Artifact, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return Artifact{}, services.Wrap(services.ErrValidation, "artifacts", "encode structured",
			"structured output is not serializable", err)
	}
	if err := writeFile(p.Structured, buf.Bytes()); err != nil {
		return Artifact{}, services.Wrap(services.ErrTransient, "artifacts", "write structured",
			fmt.Sprintf("write %s", p.Structured), err)
	}
	o.manager.logger.Debug("artifact written",
		logging.String("path", p.Structured),
		logging.String("kind", string(KindStructured)),
		logging.String(logging.FieldEventType, "artifact_written"),
	)
	return Artifact{Path: p.Structured, Kind: KindStructured, Source: p.Source}, nil
}

// CleanupResult contains the outcome of removing a job's artifacts.
type CleanupResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs an artifact path with its removal error.
type CleanupError struct {
	Path  string
	Error error
}

// Err joins every removal error, or returns nil when all files are gone.
func (r CleanupResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, fmt.Errorf("remove %s: %w", e.Path, e.Error))
	}
	return errors.Join(errs...)
}

// Cleanup removes every artifact path and then the job directory dir when it
// is given. Each removal is attempted regardless of earlier failures; files
// that are already gone count as removed. A job directory under the manager
// root is removed with anything left in it.
func (m *Manager) Cleanup(dir string, items []Artifact) CleanupResult {
	result := CleanupResult{}
	for _, path := range UniquePaths(items) {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(m.logger, "artifact removal failed", "artifact_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on paths.work_dir"),
				logging.String(logging.FieldImpact, "transcript file remains on disk"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
	}
	if dir = strings.TrimSpace(dir); dir != "" {
		remove := os.Remove
		if m.ownsDir(dir) {
			remove = os.RemoveAll
		}
		if err := remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
	}
	return result
}

func (m *Manager) ownsDir(dir string) bool {
	if filepath.Dir(filepath.Clean(dir)) != filepath.Clean(m.root) {
		return false
	}
	ok, _ := filepath.Match(JobDirPattern, filepath.Base(dir))
	return ok
}

// UniquePaths returns the artifact paths in order with duplicates dropped.
func UniquePaths(items []Artifact) []string {
	seen := make(map[string]struct{}, len(items))
	paths := make([]string, 0, len(items))
	for _, item := range items {
		path := strings.TrimSpace(item.Path)
		if path == "" {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
	}
	return paths
}

var writeData = func(f *os.File, data []byte) error {
	_, err := f.Write(data)
	return err
}

// writeFile writes data through a temp file in the same directory and renames
// it into place, so a failed write never leaves a partial file at path.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if err := writeData(tmp, data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
