package captions

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultMergeThresholdMS is the silence gap at which a new caption starts.
const DefaultMergeThresholdMS = 200

// ErrTokensOutOfOrder reports a token that starts before its predecessor.
var ErrTokensOutOfOrder = errors.New("tokens out of order")

// Merge walks tokens in order and accumulates them into captions. A new
// caption starts when the gap between the previous token's end and the next
// token's start meets or exceeds thresholdMS. Gaps are compared in whole
// milliseconds so float noise cannot move a token across the threshold.
//
// Token text is concatenated as-is; transcribers mark word boundaries with a
// leading space, which is trimmed from the finished caption. Tokens whose text
// is blank neither extend nor split a caption.
func Merge(tokens []Token, thresholdMS int) ([]Caption, error) {
	if thresholdMS <= 0 {
		return nil, fmt.Errorf("merge captions: threshold must be positive, got %d", thresholdMS)
	}
	captions := make([]Caption, 0, len(tokens)/2+1)

	var (
		current  strings.Builder
		start    float64
		prevEnd  int64
		prevFrom = int64(math.MinInt64)
		open     bool
	)
	flush := func() {
		if !open {
			return
		}
		if text := cleanText(current.String()); text != "" {
			captions = append(captions, Caption{StartInSeconds: start, Text: text})
		}
		current.Reset()
		open = false
	}

	for i, tok := range tokens {
		from := toMillis(tok.StartInSeconds)
		if from < prevFrom {
			return nil, fmt.Errorf("%w: token %d starts at %.3fs before previous token", ErrTokensOutOfOrder, i, tok.StartInSeconds)
		}
		prevFrom = from
		if strings.TrimSpace(tok.Text) == "" {
			continue
		}
		if open && from-prevEnd >= int64(thresholdMS) {
			flush()
		}
		if !open {
			start = tok.StartInSeconds
			open = true
		}
		current.WriteString(tok.Text)
		// A token ending before it starts is treated as instantaneous.
		prevEnd = max(toMillis(tok.EndInSeconds), from)
	}
	flush()
	return captions, nil
}

// FullTranscript joins every token's text with single spaces, ignoring
// caption boundaries.
func FullTranscript(tokens []Token) string {
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if text := cleanText(tok.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func toMillis(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}

func cleanText(text string) string {
	return strings.Join(strings.Fields(norm.NFC.String(text)), " ")
}
