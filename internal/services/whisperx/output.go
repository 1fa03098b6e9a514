package whisperx

import (
	"encoding/json"
	"fmt"
	"os"
)

// Word represents a single word with timing from WhisperX output.
type Word struct {
	Word    string  `json:"word"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
}

// Segment represents a transcribed segment from WhisperX JSON output.
// Speaker is set only when diarization ran.
type Segment struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
	Words   []Word  `json:"words,omitempty"`
}

// Payload is the JSON structure WhisperX writes.
type Payload struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language,omitempty"`
}

// LoadPayload reads and parses a WhisperX JSON file. The raw bytes are
// returned alongside the parsed form.
func LoadPayload(jsonPath string) (Payload, []byte, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return Payload{}, nil, err
	}
	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Payload{}, data, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload, data, nil
}
