package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"scraibe/internal/logging"
	"scraibe/internal/testsupport"
)

const diarizedPayload = `{"language":"es","segments":[
{"text":"Hola","start":0,"end":1.2,"speaker":"SPEAKER_00"},
{"text":"¿qué tal?","start":1.2,"end":2.5,"speaker":"SPEAKER_00"},
{"text":"Bien","start":3,"end":65.4,"speaker":"SPEAKER_01"}]}`

func newTestFactory(t *testing.T, payload string) (*WhisperXFactory, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Engine.WhisperXHuggingFace = "hf"
	factory := NewWhisperXFactory(cfg, logging.NewNop())
	factory.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		if name != "uvx" {
			return nil
		}
		for i, arg := range args {
			if arg == "--output_dir" {
				return os.WriteFile(filepath.Join(args[i+1], "audio.json"), []byte(payload), 0o644)
			}
		}
		return errors.New("missing --output_dir")
	})
	audio := testsupport.WriteAudio(t, t.TempDir(), "entrevista.wav", 16)
	return factory, audio
}

func TestTranscriptString(t *testing.T) {
	tr := Transcript{Segments: []Segment{
		{Speaker: "SPEAKER_00", Start: 0, End: 5.9, Text: " Hello "},
		{Start: 3661, End: 3662, Text: "late"},
		{Speaker: "SPEAKER_01", Text: "   "},
	}}
	want := "SPEAKER_00 (00:00:00 ; 00:00:05):\tHello\nUNKNOWN (01:01:01 ; 01:01:02):\tlate\n"
	if got := tr.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	if got := tr.PlainText(); got != "Hello\nlate\n" {
		t.Fatalf("PlainText() = %q", got)
	}
}

func TestDiarizationFromMergesTurns(t *testing.T) {
	d := DiarizationFrom([]Segment{
		{Speaker: "A", Start: 0, End: 1},
		{Speaker: "A", Start: 1, End: 2},
		{Speaker: "", Start: 2, End: 3},
		{Speaker: "B", Start: 3, End: 4},
		{Speaker: "A", Start: 4, End: 5},
	})
	if len(d.Speakers) != 2 || d.Speakers[0] != "A" || d.Speakers[1] != "B" {
		t.Fatalf("speakers = %v", d.Speakers)
	}
	if len(d.Turns) != 3 || d.Turns[0].End != 2 {
		t.Fatalf("turns = %+v", d.Turns)
	}
}

func TestWhisperXHandleTasks(t *testing.T) {
	factory, audio := newTestFactory(t, diarizedPayload)
	handle, err := factory.New(context.Background())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer handle.Close()

	auto, err := handle.AutoTranscribe(context.Background(), audio, 2, false, "es")
	if err != nil {
		t.Fatalf("AutoTranscribe: %v", err)
	}
	if auto.Transcript.Language != "es" || len(auto.Transcript.Segments) != 3 {
		t.Fatalf("unexpected transcript %+v", auto.Transcript)
	}
	if !strings.Contains(auto.Text, "SPEAKER_01 (00:00:03 ; 00:01:05):\tBien") {
		t.Fatalf("unexpected text %q", auto.Text)
	}
	if len(auto.Raw) == 0 {
		t.Fatal("expected raw output")
	}

	text, err := handle.Transcribe(context.Background(), audio, true, "")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "Hola\n¿qué tal?\nBien\n" {
		t.Fatalf("Transcribe = %q", text)
	}

	d, err := handle.Diarize(context.Background(), audio, 0)
	if err != nil {
		t.Fatalf("Diarize: %v", err)
	}
	if len(d.Turns) != 2 {
		t.Fatalf("turns = %+v", d.Turns)
	}
}

func TestWhisperXHandleCloseRemovesScratch(t *testing.T) {
	factory, audio := newTestFactory(t, diarizedPayload)
	handle, err := factory.New(context.Background())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	scratch := handle.(*whisperXHandle).scratch
	if _, err := handle.Transcribe(context.Background(), audio, false, ""); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if err := handle.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := handle.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	testsupport.AssertMissing(t, scratch)
	if _, err := handle.Transcribe(context.Background(), audio, false, ""); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestHandlesGetDistinctScratchDirs(t *testing.T) {
	factory, _ := newTestFactory(t, diarizedPayload)
	a, err := factory.New(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := factory.New(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if a.(*whisperXHandle).scratch == b.(*whisperXHandle).scratch {
		t.Fatal("handles must not share scratch directories")
	}
}

func TestResolveThreads(t *testing.T) {
	if ResolveThreads(0) != runtime.NumCPU() {
		t.Fatalf("ResolveThreads(0) = %d", ResolveThreads(0))
	}
	if ResolveThreads(3) != 3 {
		t.Fatalf("ResolveThreads(3) = %d", ResolveThreads(3))
	}
}
