package whisperx

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Segment is one timed span of WhisperX output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type payload struct {
	Segments []Segment `json:"segments"`
}

// LoadSegments reads a WhisperX JSON file and returns its segments ordered
// by start time.
func LoadSegments(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	sort.SliceStable(p.Segments, func(i, j int) bool {
		return p.Segments[i].Start < p.Segments[j].Start
	})
	return p.Segments, nil
}

// JoinSegments concatenates non-empty segment text with single spaces.
func JoinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.Join(strings.Fields(seg.Text), " "); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
