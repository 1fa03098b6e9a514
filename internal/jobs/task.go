package jobs

import (
	"fmt"
	"strings"
)

// Task selects what the engine produces for a job.
type Task string

const (
	// TaskAutoTranscribe produces a speaker-labelled transcript and its JSON form.
	TaskAutoTranscribe Task = "auto_transcribe"
	// TaskTranscribe produces a plain transcript.
	TaskTranscribe Task = "transcribe"
	// TaskDiarize produces speaker turns as JSON.
	TaskDiarize Task = "diarize"
)

var taskLabels = map[Task]string{
	TaskAutoTranscribe: "Auto Transcribe",
	TaskTranscribe:     "Transcribe",
	TaskDiarize:        "Diarisation",
}

// AllTasks returns every task in display order.
func AllTasks() []Task {
	return []Task{TaskAutoTranscribe, TaskTranscribe, TaskDiarize}
}

// ParseTask accepts canonical names as well as the web form labels
// ("Auto Transcribe", "Diarisation", "Diarization").
func ParseTask(value string) (Task, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	switch normalized {
	case "auto_transcribe", "autotranscribe", "auto":
		return TaskAutoTranscribe, nil
	case "transcribe", "transcription":
		return TaskTranscribe, nil
	case "diarize", "diarise", "diarisation", "diarization":
		return TaskDiarize, nil
	}
	names := make([]string, 0, len(taskLabels))
	for _, t := range AllTasks() {
		names = append(names, string(t))
	}
	return "", fmt.Errorf("unknown task %q (want one of %s)", value, strings.Join(names, ", "))
}

// Label returns the human-readable task name.
func (t Task) Label() string {
	if label, ok := taskLabels[t]; ok {
		return label
	}
	return string(t)
}

// Valid reports whether t is one of the known tasks.
func (t Task) Valid() bool {
	_, ok := taskLabels[t]
	return ok
}

func (t Task) String() string { return string(t) }
