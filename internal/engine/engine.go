package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrClosed is returned by handle methods after Close.
var ErrClosed = errors.New("engine handle closed")

// Handle runs transcription tasks for a single job.
type Handle interface {
	// AutoTranscribe transcribes and diarizes audio in one pass.
	AutoTranscribe(ctx context.Context, audio string, speakers int, translate bool, language string) (AutoResult, error)
	// Transcribe returns the plain transcript of audio.
	Transcribe(ctx context.Context, audio string, translate bool, language string) (string, error)
	// Diarize returns who spoke when, without text.
	Diarize(ctx context.Context, audio string, speakers int) (Diarization, error)
	// Close releases the handle's resources. Safe to call more than once.
	Close() error
}

// Factory constructs engine handles.
type Factory interface {
	New(ctx context.Context) (Handle, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context) (Handle, error)

// New calls f(ctx).
func (f FactoryFunc) New(ctx context.Context) (Handle, error) { return f(ctx) }

// Segment is one timed utterance.
type Segment struct {
	Speaker string  `json:"speaker,omitempty"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// Transcript is the structured result of a transcription.
type Transcript struct {
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

// String renders one line per segment: "SPEAKER (HH:MM:SS ; HH:MM:SS):<tab>text".
func (t Transcript) String() string {
	var b strings.Builder
	for _, seg := range t.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		speaker := seg.Speaker
		if speaker == "" {
			speaker = "UNKNOWN"
		}
		fmt.Fprintf(&b, "%s (%s ; %s):\t%s\n", speaker, formatTimestamp(seg.Start), formatTimestamp(seg.End), text)
	}
	return b.String()
}

// PlainText returns the segment texts one per line without speaker labels.
func (t Transcript) PlainText() string {
	var b strings.Builder
	for _, seg := range t.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			b.WriteString(text)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Turn is a contiguous span attributed to one speaker.
type Turn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Diarization lists the detected speakers and their turns in time order.
type Diarization struct {
	Speakers []string `json:"speakers"`
	Turns    []Turn   `json:"segments"`
}

// AutoResult is the outcome of AutoTranscribe.
type AutoResult struct {
	// Raw is the unmodified engine output.
	Raw []byte
	// Text is the rendered transcript with speaker labels.
	Text string
	// Transcript is the structured form written as JSON.
	Transcript Transcript
}

// DiarizationFrom merges consecutive segments of the same speaker into turns.
// Segments without a speaker label are skipped.
func DiarizationFrom(segments []Segment) Diarization {
	d := Diarization{Speakers: []string{}, Turns: []Turn{}}
	seen := make(map[string]struct{})
	for _, seg := range segments {
		if seg.Speaker == "" {
			continue
		}
		if _, ok := seen[seg.Speaker]; !ok {
			seen[seg.Speaker] = struct{}{}
			d.Speakers = append(d.Speakers, seg.Speaker)
		}
		if n := len(d.Turns); n > 0 && d.Turns[n-1].Speaker == seg.Speaker {
			d.Turns[n-1].End = math.Max(d.Turns[n-1].End, seg.End)
			continue
		}
		d.Turns = append(d.Turns, Turn{Speaker: seg.Speaker, Start: seg.Start, End: seg.End})
	}
	return d
}

func formatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
