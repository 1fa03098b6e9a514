package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"scraibe/internal/artifacts"
	"scraibe/internal/engine"
	"scraibe/internal/logging"
	"scraibe/internal/services"
)

func TestParseTask(t *testing.T) {
	cases := map[string]Task{
		"Auto Transcribe": TaskAutoTranscribe,
		"auto_transcribe": TaskAutoTranscribe,
		"Transcribe":      TaskTranscribe,
		"Diarisation":     TaskDiarize,
		"Diarization":     TaskDiarize,
		"diarize":         TaskDiarize,
	}
	for input, want := range cases {
		got, err := ParseTask(input)
		if err != nil || got != want {
			t.Errorf("ParseTask(%q) = %q, %v", input, got, err)
		}
	}
	_, err := ParseTask("summarize")
	if err == nil {
		t.Fatal("expected error for unknown task")
	}
	for _, task := range AllTasks() {
		if !strings.Contains(err.Error(), string(task)) {
			t.Errorf("error %q does not list %s", err, task)
		}
	}
	if TaskDiarize.Label() != "Diarisation" {
		t.Errorf("Label = %q", TaskDiarize.Label())
	}
}

func TestRequestValidate(t *testing.T) {
	valid := Request{Audio: []string{"/a.wav"}, Receiver: "ana@example.org", Task: TaskTranscribe}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Request)
		field  string
	}{
		{"no audio", func(r *Request) { r.Audio = nil }, "audio"},
		{"blank audio", func(r *Request) { r.Audio = []string{""} }, "audio"},
		{"bad receiver", func(r *Request) { r.Receiver = "not-an-email" }, "receiver"},
		{"bad task", func(r *Request) { r.Task = "summarize" }, "task"},
		{"too many speakers", func(r *Request) { r.Speakers = 33 }, "speakers"},
		{"negative speakers", func(r *Request) { r.Speakers = -1 }, "speakers"},
		{"unknown language", func(r *Request) { r.Language = "klingonese" }, "klingonese"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid.Clone()
			tc.mutate(&req)
			err := req.Validate()
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Fatalf("error %q does not name %q", err, tc.field)
			}
		})
	}
}

func TestRequestAcceptsLanguageForms(t *testing.T) {
	for _, lang := range []string{"", "auto", "German", "de", "pt-BR", "spa"} {
		req := Request{Audio: []string{"/a.wav"}, Receiver: "ana@example.org", Task: TaskTranscribe, Language: lang}
		if err := req.Validate(); err != nil {
			t.Errorf("language %q rejected: %v", lang, err)
		}
	}
}

func TestRequestCloneIsDeep(t *testing.T) {
	orig := Request{
		Audio: []string{"a.wav"},
		SuccessOptions: map[string]any{
			"k":    "v",
			"meta": map[string]any{"room": "B2"},
			"tags": []any{"weekly"},
		},
	}
	clone := orig.Clone()
	orig.Audio[0] = "changed.wav"
	orig.SuccessOptions["k"] = "changed"
	orig.SuccessOptions["meta"].(map[string]any)["room"] = "C1"
	orig.SuccessOptions["tags"].([]any)[0] = "monthly"
	if clone.Audio[0] != "a.wav" || clone.SuccessOptions["k"] != "v" {
		t.Fatalf("clone shares state: %+v", clone)
	}
	if clone.SuccessOptions["meta"].(map[string]any)["room"] != "B2" || clone.SuccessOptions["tags"].([]any)[0] != "weekly" {
		t.Fatalf("nested options shared: %+v", clone.SuccessOptions)
	}
}

type fakeHandle struct {
	failOn  string
	panicOn string
	calls   []string
	closed  atomic.Bool
}

func (h *fakeHandle) record(task, audio string) error {
	h.calls = append(h.calls, task+":"+filepath.Base(audio))
	if h.panicOn != "" && strings.HasSuffix(audio, h.panicOn) {
		panic("model exploded")
	}
	if h.failOn != "" && strings.HasSuffix(audio, h.failOn) {
		return errors.New("decoder failure")
	}
	return nil
}

func (h *fakeHandle) AutoTranscribe(_ context.Context, audio string, speakers int, _ bool, _ string) (engine.AutoResult, error) {
	if err := h.record("auto", audio); err != nil {
		return engine.AutoResult{}, err
	}
	tr := engine.Transcript{Segments: []engine.Segment{{Speaker: "SPEAKER_00", Text: "hola"}}}
	return engine.AutoResult{Text: tr.String(), Transcript: tr}, nil
}

func (h *fakeHandle) Transcribe(_ context.Context, audio string, _ bool, _ string) (string, error) {
	if err := h.record("transcribe", audio); err != nil {
		return "", err
	}
	return "hola\n", nil
}

func (h *fakeHandle) Diarize(_ context.Context, audio string, _ int) (engine.Diarization, error) {
	if err := h.record("diarize", audio); err != nil {
		return engine.Diarization{}, err
	}
	return engine.Diarization{Speakers: []string{"A"}, Turns: []engine.Turn{{Speaker: "A", End: 1}}}, nil
}

func (h *fakeHandle) Close() error {
	h.closed.Store(true)
	return nil
}

func newExecutor(t *testing.T, h *fakeHandle) *Executor {
	t.Helper()
	factory := engine.FactoryFunc(func(context.Context) (engine.Handle, error) { return h, nil })
	return NewExecutor(factory, artifacts.NewManager(t.TempDir(), logging.NewNop()), logging.NewNop())
}

func audioFiles(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return paths
}

func TestExecuteDispatchesEachTask(t *testing.T) {
	tests := []struct {
		task  Task
		kinds []artifacts.Kind
	}{
		{TaskAutoTranscribe, []artifacts.Kind{artifacts.KindText, artifacts.KindStructured}},
		{TaskTranscribe, []artifacts.Kind{artifacts.KindText}},
		{TaskDiarize, []artifacts.Kind{artifacts.KindStructured}},
	}
	for _, tt := range tests {
		t.Run(string(tt.task), func(t *testing.T) {
			h := &fakeHandle{}
			audio := audioFiles(t, "Reunión 1.wav")
			res := newExecutor(t, h).Execute(context.Background(), Request{ID: "j", Audio: audio, Task: tt.task})
			if !res.Succeeded() {
				t.Fatalf("Execute failed: %v", res.Err)
			}
			if len(res.Artifacts) != len(tt.kinds) {
				t.Fatalf("artifacts = %+v", res.Artifacts)
			}
			for i, kind := range tt.kinds {
				if res.Artifacts[i].Kind != kind {
					t.Fatalf("artifact %d kind = %s, want %s", i, res.Artifacts[i].Kind, kind)
				}
				if !strings.HasPrefix(filepath.Base(res.Artifacts[i].Path), "Reunion_1.") {
					t.Fatalf("artifact path not sanitized: %s", res.Artifacts[i].Path)
				}
				if _, err := os.Stat(res.Artifacts[i].Path); err != nil {
					t.Fatalf("artifact missing: %v", err)
				}
			}
			if !h.closed.Load() {
				t.Fatal("handle not closed")
			}
			if filepath.Base(res.Dir) != "out-j" || filepath.Dir(res.Artifacts[0].Path) != res.Dir {
				t.Fatalf("artifacts not in the job directory: dir=%s artifacts=%+v", res.Dir, res.Artifacts)
			}
		})
	}
}

func TestExecuteProcessesListInOrder(t *testing.T) {
	h := &fakeHandle{}
	audio := audioFiles(t, "one.wav", "two.wav", "three.wav")
	res := newExecutor(t, h).Execute(context.Background(), Request{Audio: audio, Task: TaskTranscribe})
	if !res.Succeeded() {
		t.Fatalf("Execute failed: %v", res.Err)
	}
	want := []string{"transcribe:one.wav", "transcribe:two.wav", "transcribe:three.wav"}
	if strings.Join(h.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v", h.calls)
	}
	if len(res.Paths()) != 3 {
		t.Fatalf("paths = %v", res.Paths())
	}
}

func TestExecuteStopsAtFirstFailureAndKeepsWrittenArtifacts(t *testing.T) {
	h := &fakeHandle{failOn: "two.wav"}
	audio := audioFiles(t, "one.wav", "two.wav", "three.wav")
	res := newExecutor(t, h).Execute(context.Background(), Request{Audio: audio, Task: TaskAutoTranscribe})
	if res.Succeeded() {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", res.Err)
	}
	if len(h.calls) != 2 {
		t.Fatalf("iteration did not stop: %v", h.calls)
	}
	if len(res.Artifacts) != 2 {
		t.Fatalf("expected artifacts of the first input, got %+v", res.Artifacts)
	}
	if !h.closed.Load() {
		t.Fatal("handle not closed after failure")
	}
}

func TestExecuteRecoversEnginePanic(t *testing.T) {
	h := &fakeHandle{panicOn: "one.wav"}
	res := newExecutor(t, h).Execute(context.Background(), Request{Audio: audioFiles(t, "one.wav"), Task: TaskDiarize})
	if res.Succeeded() || !strings.Contains(res.Err.Error(), "model exploded") {
		t.Fatalf("expected panic to surface as failure, got %v", res.Err)
	}
	if !h.closed.Load() {
		t.Fatal("handle not closed after panic")
	}
}

func TestExecuteFactoryFailure(t *testing.T) {
	factory := engine.FactoryFunc(func(context.Context) (engine.Handle, error) {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "new", "no work dir", nil)
	})
	exec := NewExecutor(factory, artifacts.NewManager(t.TempDir(), logging.NewNop()), logging.NewNop())
	res := exec.Execute(context.Background(), Request{Audio: []string{"a.wav"}, Task: TaskTranscribe})
	if !errors.Is(res.Err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", res.Err)
	}
	if len(res.Artifacts) != 0 {
		t.Fatalf("unexpected artifacts %+v", res.Artifacts)
	}
}

func TestExecuteRejectsUnknownTask(t *testing.T) {
	h := &fakeHandle{}
	res := newExecutor(t, h).Execute(context.Background(), Request{Audio: []string{"a.wav"}, Task: "summarize"})
	if !errors.Is(res.Err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", res.Err)
	}
	if len(h.calls) != 0 {
		t.Fatal("engine must not run for unknown task")
	}
}
