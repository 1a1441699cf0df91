package whisperx

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"captionsync/internal/captions"
)

// Word is a single aligned word from WhisperX output. Alignment can fail for
// numerals and symbols, in which case timing and score are absent.
type Word struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start,omitempty"`
	End   *float64 `json:"end,omitempty"`
	Score *float64 `json:"score,omitempty"`
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

// Payload is the JSON document WhisperX writes per input file.
type Payload struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// LoadPayload reads a WhisperX JSON file.
func LoadPayload(jsonPath string) (*Payload, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	return &payload, nil
}

// Tokens flattens segments into word tokens in output order. Token text
// carries a leading space so concatenating tokens reproduces spoken text.
// A word without timing starts where the previous token in its segment ended,
// or at the segment start when it opens the segment. A segment without word
// alignment becomes a single token spanning the segment.
func Tokens(segments []Segment) []captions.Token {
	tokens := make([]captions.Token, 0, len(segments)*8)
	var prevEnd float64
	for _, seg := range segments {
		if len(seg.Words) == 0 {
			text := strings.TrimSpace(seg.Text)
			if text == "" {
				continue
			}
			tokens = append(tokens, captions.Token{
				Text:           " " + text,
				StartInSeconds: seg.Start,
				EndInSeconds:   seg.End,
				Confidence:     1,
			})
			prevEnd = seg.End
			continue
		}
		prevEnd = max(prevEnd, seg.Start)
		for _, w := range seg.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" {
				continue
			}
			start := prevEnd
			if w.Start != nil {
				start = *w.Start
			}
			end := start
			if w.End != nil {
				end = max(*w.End, start)
			}
			confidence := 0.0
			if w.Score != nil {
				confidence = *w.Score
			}
			tokens = append(tokens, captions.Token{
				Text:           " " + text,
				StartInSeconds: start,
				EndInSeconds:   end,
				Confidence:     confidence,
			})
			prevEnd = end
		}
	}
	return tokens
}
