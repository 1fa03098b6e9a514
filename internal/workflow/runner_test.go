package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"scraibe/internal/admission"
	"scraibe/internal/artifacts"
	"scraibe/internal/engine"
	"scraibe/internal/jobs"
	"scraibe/internal/logging"
	"scraibe/internal/queue"
)

type fakeEngine struct {
	delay   time.Duration
	failOn  string
	panicOn string

	current atomic.Int32
	peak    atomic.Int32
	closed  atomic.Int32
}

func (e *fakeEngine) New(context.Context) (engine.Handle, error) {
	return &fakeHandle{engine: e}, nil
}

type fakeHandle struct {
	engine *fakeEngine
}

func (h *fakeHandle) enter(audio string) error {
	e := h.engine
	n := e.current.Add(1)
	defer e.current.Add(-1)
	for {
		peak := e.peak.Load()
		if n <= peak || e.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if e.panicOn != "" && strings.HasSuffix(audio, e.panicOn) {
		panic("model weights corrupt")
	}
	if e.failOn != "" && strings.HasSuffix(audio, e.failOn) {
		return errors.New("decoder failure")
	}
	return nil
}

func (h *fakeHandle) AutoTranscribe(_ context.Context, audio string, _ int, _ bool, _ string) (engine.AutoResult, error) {
	if err := h.enter(audio); err != nil {
		return engine.AutoResult{}, err
	}
	tr := engine.Transcript{Segments: []engine.Segment{{Speaker: "SPEAKER_00", End: 1.5, Text: "hola"}}}
	return engine.AutoResult{Text: tr.String(), Transcript: tr}, nil
}

func (h *fakeHandle) Transcribe(_ context.Context, audio string, _ bool, language string) (string, error) {
	if err := h.enter(audio); err != nil {
		return "", err
	}
	if language != "" {
		return "transcript for " + language + "\n", nil
	}
	return "hola " + filepath.Base(audio) + "\n", nil
}

func (h *fakeHandle) Diarize(_ context.Context, audio string, _ int) (engine.Diarization, error) {
	if err := h.enter(audio); err != nil {
		return engine.Diarization{}, err
	}
	return engine.Diarization{Speakers: []string{"SPEAKER_00"}, Turns: []engine.Turn{{Speaker: "SPEAKER_00", End: 2}}}, nil
}

func (h *fakeHandle) Close() error {
	h.engine.closed.Add(1)
	return nil
}

type delivery struct {
	receiver string
	paths    []string
	existed  []bool
	contents []string
	message  string
	options  map[string]any
}

type recordingNotifier struct {
	mu          sync.Mutex
	transcripts []delivery
	errors      []delivery
	fail        error
}

func (n *recordingNotifier) SendTranscript(_ context.Context, receiver string, paths []string, opts map[string]any) error {
	d := delivery{receiver: receiver, paths: append([]string(nil), paths...), options: opts}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		d.existed = append(d.existed, err == nil)
		d.contents = append(d.contents, string(data))
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transcripts = append(n.transcripts, d)
	return n.fail
}

func (n *recordingNotifier) SendErrorNotification(_ context.Context, receiver, message string, opts map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, delivery{receiver: receiver, message: message, options: opts})
	return n.fail
}

func (n *recordingNotifier) snapshot() ([]delivery, []delivery) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]delivery(nil), n.transcripts...), append([]delivery(nil), n.errors...)
}

type recordingAlerter struct {
	mu     sync.Mutex
	events []string
}

func (a *recordingAlerter) record(event string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *recordingAlerter) JobFailed(context.Context, string, string, error) error {
	return a.record("job_failed")
}

func (a *recordingAlerter) NotificationFailed(context.Context, string, string, error) error {
	return a.record("notification_failed")
}

func (a *recordingAlerter) AdmissionStalled(context.Context, string, time.Duration) error {
	return a.record("admission_stalled")
}

func (a *recordingAlerter) TestNotification(context.Context) error { return a.record("test") }

func (a *recordingAlerter) list() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.events...)
}

type harness struct {
	root     string
	runner   *Runner
	gate     *admission.Gate
	tracker  *queue.Tracker
	engine   *fakeEngine
	notifier *recordingNotifier
	alerter  *recordingAlerter
}

func newHarness(t *testing.T, capacity int, timeout time.Duration, eng *fakeEngine) *harness {
	t.Helper()
	gate, err := admission.New(capacity, timeout)
	if err != nil {
		t.Fatalf("admission.New: %v", err)
	}
	logger := logging.NewNop()
	root := t.TempDir()
	manager := artifacts.NewManager(root, logger)
	h := &harness{
		root:     root,
		gate:     gate,
		tracker:  queue.NewTracker(0),
		engine:   eng,
		notifier: &recordingNotifier{},
		alerter:  &recordingAlerter{},
	}
	executor := jobs.NewExecutor(eng, manager, logger)
	h.runner = NewRunner(gate, h.tracker, executor, h.notifier, h.alerter, manager, logger)
	return h
}

func audioFiles(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("RIFF"), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return paths
}

func (h *harness) submit(t *testing.T, task jobs.Task, audio ...string) string {
	t.Helper()
	id, err := h.runner.Submit(context.Background(), jobs.Request{
		Audio:    audio,
		Receiver: "ana@example.org",
		Task:     task,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return id
}

func assertGone(t *testing.T, paths []string) {
	t.Helper()
	for _, p := range paths {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected %s to be deleted, stat err = %v", p, err)
		}
	}
}

// assertNoArtifacts checks that no job output directory survived.
func (h *harness) assertNoArtifacts(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.root)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("artifacts left on disk: %v", names)
	}
}

func TestRunnerNeverExceedsCapacity(t *testing.T) {
	for _, capacity := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("capacity_%d", capacity), func(t *testing.T) {
			eng := &fakeEngine{delay: 15 * time.Millisecond}
			h := newHarness(t, capacity, 0, eng)
			audio := audioFiles(t, "a.wav")

			for i := 0; i < capacity*4+1; i++ {
				h.submit(t, jobs.TaskDiarize, audio...)
			}
			h.runner.Wait()

			if peak := eng.peak.Load(); peak > int32(capacity) {
				t.Fatalf("peak concurrency %d exceeds capacity %d", peak, capacity)
			}
			if h.gate.InUse() != 0 {
				t.Fatalf("slots still held: %d", h.gate.InUse())
			}
		})
	}
}

func TestTranscribeDeliversSingleTextArtifact(t *testing.T) {
	h := newHarness(t, 1, 0, &fakeEngine{})
	audio := audioFiles(t, "Reunión 24 de agosto.mp4")
	h.submit(t, jobs.TaskTranscribe, audio...)
	h.runner.Wait()

	transcripts, failures := h.notifier.snapshot()
	if len(failures) != 0 || len(transcripts) != 1 {
		t.Fatalf("transcripts=%d errors=%d", len(transcripts), len(failures))
	}
	got := transcripts[0]
	if len(got.paths) != 1 || filepath.Base(got.paths[0]) != "Reunion_24_de_agosto.txt" {
		t.Fatalf("unexpected paths %v", got.paths)
	}
	if !got.existed[0] {
		t.Fatal("artifact did not exist at delivery time")
	}
	assertGone(t, got.paths)
	h.assertNoArtifacts(t)
}

func TestDiarizeDeliversSingleStructuredArtifact(t *testing.T) {
	h := newHarness(t, 1, 0, &fakeEngine{})
	audio := audioFiles(t, "meeting.wav")
	h.submit(t, jobs.TaskDiarize, audio...)
	h.runner.Wait()

	transcripts, _ := h.notifier.snapshot()
	if len(transcripts) != 1 || len(transcripts[0].paths) != 1 {
		t.Fatalf("unexpected deliveries %+v", transcripts)
	}
	if filepath.Ext(transcripts[0].paths[0]) != ".json" || !transcripts[0].existed[0] {
		t.Fatalf("expected existing structured artifact, got %+v", transcripts[0])
	}
	assertGone(t, transcripts[0].paths)
	h.assertNoArtifacts(t)
}

func TestAutoTranscribeDeliversTextAndStructured(t *testing.T) {
	h := newHarness(t, 1, 0, &fakeEngine{})
	audio := audioFiles(t, "meeting.wav")
	h.submit(t, jobs.TaskAutoTranscribe, audio...)
	h.runner.Wait()

	transcripts, _ := h.notifier.snapshot()
	if len(transcripts) != 1 {
		t.Fatalf("expected one delivery, got %d", len(transcripts))
	}
	paths := transcripts[0].paths
	if len(paths) != 2 || filepath.Ext(paths[0]) != ".txt" || filepath.Ext(paths[1]) != ".json" {
		t.Fatalf("unexpected paths %v", paths)
	}
	for i, ok := range transcripts[0].existed {
		if !ok {
			t.Fatalf("artifact %s missing at delivery", paths[i])
		}
	}
	assertGone(t, paths)
	h.assertNoArtifacts(t)
}

func TestBatchTranscribeKeepsInputOrder(t *testing.T) {
	h := newHarness(t, 1, 0, &fakeEngine{})
	audio := audioFiles(t, "c.wav", "a.wav", "b.wav")
	h.submit(t, jobs.TaskTranscribe, audio...)
	h.runner.Wait()

	transcripts, _ := h.notifier.snapshot()
	if len(transcripts) != 1 {
		t.Fatalf("expected one delivery, got %d", len(transcripts))
	}
	var names []string
	for _, p := range transcripts[0].paths {
		names = append(names, filepath.Base(p))
	}
	if strings.Join(names, ",") != "c.txt,a.txt,b.txt" {
		t.Fatalf("order = %v", names)
	}
	assertGone(t, transcripts[0].paths)
	h.assertNoArtifacts(t)
}

func TestEnginePanicSendsSingleErrorNotification(t *testing.T) {
	eng := &fakeEngine{panicOn: "two.wav"}
	h := newHarness(t, 1, 0, eng)
	audio := audioFiles(t, "one.wav", "two.wav")
	h.submit(t, jobs.TaskAutoTranscribe, audio...)
	h.runner.Wait()

	transcripts, failures := h.notifier.snapshot()
	if len(transcripts) != 0 {
		t.Fatalf("transcript sent for failed job: %+v", transcripts)
	}
	if len(failures) != 1 {
		t.Fatalf("expected exactly one error notification, got %d", len(failures))
	}
	if failures[0].receiver != "ana@example.org" || strings.TrimSpace(failures[0].message) == "" {
		t.Fatalf("unexpected error notification %+v", failures[0])
	}
	h.assertNoArtifacts(t)
	if eng.closed.Load() != 1 {
		t.Fatalf("engine handle closed %d times", eng.closed.Load())
	}
	if got := h.alerter.list(); len(got) != 1 || got[0] != "job_failed" {
		t.Fatalf("alerts = %v", got)
	}
}

func TestEngineErrorSendsErrorNotification(t *testing.T) {
	h := newHarness(t, 1, 0, &fakeEngine{failOn: "bad.wav"})
	audio := audioFiles(t, "good.wav", "bad.wav")
	h.submit(t, jobs.TaskTranscribe, audio...)
	h.runner.Wait()

	transcripts, failures := h.notifier.snapshot()
	if len(transcripts) != 0 {
		t.Fatalf("transcript sent for failed job: %+v", transcripts)
	}
	if len(failures) != 1 || !strings.Contains(failures[0].message, "decoder failure") {
		t.Fatalf("unexpected failures %+v", failures)
	}
	h.assertNoArtifacts(t)
	recent := h.tracker.Recent()
	if len(recent) != 1 || recent[0].Status != queue.StatusFailed {
		t.Fatalf("expected failed job in history, got %+v", recent)
	}
}

func TestQueueDepthReturnsToBaselineUnderLoad(t *testing.T) {
	h := newHarness(t, 4, 0, &fakeEngine{failOn: "bad.wav"})
	good := audioFiles(t, "good.wav")
	bad := audioFiles(t, "bad.wav")

	const total = 100
	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			audio := good
			if i%3 == 0 {
				audio = bad
			}
			req := jobs.Request{Audio: audio, Receiver: "ana@example.org", Task: jobs.TaskTranscribe}
			if _, err := h.runner.Submit(context.Background(), req); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	h.runner.Wait()

	if depth := h.tracker.Depth(); depth != 0 {
		t.Fatalf("depth = %d after all jobs finished", depth)
	}
	stats := h.tracker.Stats()
	if stats.Submitted != total || stats.Completed+stats.Failed != total {
		t.Fatalf("unexpected stats %+v", stats)
	}
	transcripts, failures := h.notifier.snapshot()
	if len(transcripts)+len(failures) != total {
		t.Fatalf("notifications = %d, want %d", len(transcripts)+len(failures), total)
	}
}

func TestNotificationFailureStillCleansUp(t *testing.T) {
	h := newHarness(t, 1, 0, &fakeEngine{})
	h.notifier.fail = errors.New("smtp: connection refused")
	audio := audioFiles(t, "meeting.wav")
	h.submit(t, jobs.TaskAutoTranscribe, audio...)
	h.runner.Wait()

	transcripts, failures := h.notifier.snapshot()
	if len(transcripts) != 1 || len(failures) != 0 {
		t.Fatalf("notification must not be retried: transcripts=%d errors=%d", len(transcripts), len(failures))
	}
	assertGone(t, transcripts[0].paths)
	h.assertNoArtifacts(t)
	if h.gate.InUse() != 0 || h.tracker.Depth() != 0 {
		t.Fatalf("slot or counter leaked: in_use=%d depth=%d", h.gate.InUse(), h.tracker.Depth())
	}
	if got := h.alerter.list(); len(got) != 1 || got[0] != "notification_failed" {
		t.Fatalf("alerts = %v", got)
	}
}

func TestAdmissionStallNotifiesReceiver(t *testing.T) {
	h := newHarness(t, 1, 30*time.Millisecond, &fakeEngine{})
	held, ok := h.gate.TryAcquire()
	if !ok {
		t.Fatal("expected free slot")
	}
	defer held.Release()

	audio := audioFiles(t, "meeting.wav")
	h.submit(t, jobs.TaskTranscribe, audio...)
	h.runner.Wait()

	transcripts, failures := h.notifier.snapshot()
	if len(transcripts) != 0 || len(failures) != 1 {
		t.Fatalf("transcripts=%d errors=%d", len(transcripts), len(failures))
	}
	if !strings.Contains(failures[0].message, "not run") {
		t.Fatalf("message = %q", failures[0].message)
	}
	if h.engine.closed.Load() != 0 {
		t.Fatal("engine must not be created for a stalled job")
	}
	if h.tracker.Depth() != 0 {
		t.Fatalf("depth = %d", h.tracker.Depth())
	}
	if got := h.alerter.list(); len(got) != 1 || got[0] != "admission_stalled" {
		t.Fatalf("alerts = %v", got)
	}
}

func TestSubmitDoesNotBlockWhenSaturated(t *testing.T) {
	h := newHarness(t, 1, 0, &fakeEngine{})
	held, ok := h.gate.TryAcquire()
	if !ok {
		t.Fatal("expected free slot")
	}
	audio := audioFiles(t, "meeting.wav")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			req := jobs.Request{Audio: audio, Receiver: "ana@example.org", Task: jobs.TaskTranscribe}
			if _, err := h.runner.Submit(context.Background(), req); err != nil {
				t.Error(err)
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked while the gate was saturated")
	}
	if depth := h.tracker.Depth(); depth != 5 {
		t.Fatalf("depth = %d, want 5", depth)
	}
	held.Release()
	h.runner.Wait()
	if h.tracker.Depth() != 0 {
		t.Fatalf("depth = %d after drain", h.tracker.Depth())
	}
}

func TestSubmitIgnoresCallerCancellation(t *testing.T) {
	h := newHarness(t, 1, 0, &fakeEngine{delay: 10 * time.Millisecond})
	audio := audioFiles(t, "meeting.wav")
	ctx, cancel := context.WithCancel(context.Background())
	if _, err := h.runner.Submit(ctx, jobs.Request{Audio: audio, Receiver: "ana@example.org", Task: jobs.TaskTranscribe}); err != nil {
		t.Fatal(err)
	}
	cancel()
	h.runner.Wait()

	transcripts, failures := h.notifier.snapshot()
	if len(transcripts) != 1 || len(failures) != 0 {
		t.Fatalf("transcripts=%d errors=%d", len(transcripts), len(failures))
	}
}

func TestSubmitCopiesRequest(t *testing.T) {
	h := newHarness(t, 1, 0, &fakeEngine{})
	held, _ := h.gate.TryAcquire()
	audio := audioFiles(t, "a.wav", "b.wav")
	req := jobs.Request{Audio: audio, Receiver: "ana@example.org", Task: jobs.TaskTranscribe}
	if _, err := h.runner.Submit(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	req.Audio[1] = req.Audio[0]
	held.Release()
	h.runner.Wait()

	transcripts, _ := h.notifier.snapshot()
	if len(transcripts) != 1 || len(transcripts[0].paths) != 2 {
		t.Fatalf("request was mutated after submit: %+v", transcripts)
	}
}

func TestCloseRejectsNewSubmissions(t *testing.T) {
	h := newHarness(t, 1, 0, &fakeEngine{delay: 20 * time.Millisecond})
	audio := audioFiles(t, "meeting.wav")
	h.submit(t, jobs.TaskTranscribe, audio...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.runner.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if h.tracker.Depth() != 0 {
		t.Fatal("Close returned before in-flight job finished")
	}
	_, err := h.runner.Submit(context.Background(), jobs.Request{Audio: audio, Receiver: "ana@example.org", Task: jobs.TaskTranscribe})
	if !errors.Is(err, ErrRunnerClosed) {
		t.Fatalf("expected ErrRunnerClosed, got %v", err)
	}
}

func TestConcurrentJobsOnSameAudioKeepTheirOwnArtifacts(t *testing.T) {
	h := newHarness(t, 2, 0, &fakeEngine{delay: 20 * time.Millisecond})
	audio := audioFiles(t, "meeting.mp3")

	for _, lang := range []string{"en", "de"} {
		_, err := h.runner.Submit(context.Background(), jobs.Request{
			Audio:          audio,
			Receiver:       "ana@example.org",
			Task:           jobs.TaskTranscribe,
			Language:       lang,
			SuccessOptions: map[string]any{"lang": lang},
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	h.runner.Wait()

	transcripts, failures := h.notifier.snapshot()
	if len(transcripts) != 2 || len(failures) != 0 {
		t.Fatalf("transcripts=%d errors=%d", len(transcripts), len(failures))
	}
	if transcripts[0].paths[0] == transcripts[1].paths[0] {
		t.Fatalf("both jobs delivered %s", transcripts[0].paths[0])
	}
	for _, d := range transcripts {
		lang := d.options["lang"]
		if len(d.paths) != 1 || !d.existed[0] {
			t.Fatalf("job %v: artifact missing at delivery: %+v", lang, d)
		}
		if want := fmt.Sprintf("transcript for %v\n", lang); d.contents[0] != want {
			t.Fatalf("job %v delivered %q, want %q", lang, d.contents[0], want)
		}
	}
	h.assertNoArtifacts(t)
}

func TestBatchInputsSharingBaseNameKeepSeparateArtifacts(t *testing.T) {
	h := newHarness(t, 1, 0, &fakeEngine{})
	first := audioFiles(t, "Reunión.mp3")
	second := audioFiles(t, "Reunion.wav")
	h.submit(t, jobs.TaskTranscribe, first[0], second[0])
	h.runner.Wait()

	transcripts, _ := h.notifier.snapshot()
	if len(transcripts) != 1 || len(transcripts[0].paths) != 2 {
		t.Fatalf("unexpected deliveries %+v", transcripts)
	}
	d := transcripts[0]
	if filepath.Base(d.paths[0]) != "Reunion.txt" || filepath.Base(d.paths[1]) != "Reunion_2.txt" {
		t.Fatalf("paths = %v", d.paths)
	}
	if d.contents[0] != "hola Reunión.mp3\n" || d.contents[1] != "hola Reunion.wav\n" {
		t.Fatalf("contents = %q", d.contents)
	}
	h.assertNoArtifacts(t)
}
