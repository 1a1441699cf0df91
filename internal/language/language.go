package language

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// AlignedLanguages lists the ISO 639-1 codes WhisperX ships word-level
// alignment models for.
var AlignedLanguages = []string{
	"en", "fr", "de", "es", "it", "ja", "zh", "nl", "uk", "pt", "ar", "cs",
	"ru", "pl", "hu", "fi", "fa", "el", "tr", "da", "he", "vi", "ko", "ur",
	"te", "hi", "ca", "ml", "no", "nn", "sk", "sl", "hr", "ro", "eu", "gl",
	"ka", "lv", "tl", "sv",
}

// ISO 639-2/B codes that x/text does not map to a base language.
var bibliographic = map[string]string{
	"fre": "fr",
	"ger": "de",
	"chi": "zh",
	"dut": "nl",
	"per": "fa",
	"gre": "el",
	"cze": "cs",
	"rum": "ro",
	"baq": "eu",
	"geo": "ka",
	"slo": "sk",
}

// byName indexes the English names of the aligned languages ("english" -> "en").
var byName = sync.OnceValue(func() map[string]string {
	namer := display.English.Languages()
	index := make(map[string]string, len(AlignedLanguages))
	for _, code := range AlignedLanguages {
		name := strings.ToLower(namer.Name(xlanguage.MustParseBase(code)))
		if name != "" {
			index[name] = code
		}
	}
	return index
})

// Normalize converts a user-supplied language hint (ISO 639-1/2 code, English
// name, or BCP 47 tag such as "pt-BR") to its base language code. Languages
// without a 2-letter code keep their 3-letter code. Returns empty string for
// input that cannot be parsed.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if c, ok := bibliographic[code]; ok {
		return c
	}
	if c, ok := byName()[code]; ok {
		return c
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return ""
	}
	return base.String()
}

// ErrUnsupported marks a language hint that names no known language.
var ErrUnsupported = errors.New("unsupported language")

// Resolve returns the code WhisperX expects for hint: the ISO 639-1 code when
// the language has one, otherwise its 3-letter code ("haw", "yue"). An empty
// hint resolves to "". Hints that name no known language return
// ErrUnsupported.
func Resolve(hint string) (string, error) {
	trimmed := strings.TrimSpace(hint)
	if trimmed == "" {
		return "", nil
	}
	if code := Normalize(trimmed); code != "" {
		return code, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupported, trimmed)
}

// Aligned reports whether WhisperX can produce word-level timestamps for code.
func Aligned(code string) bool {
	return slices.Contains(AlignedLanguages, Normalize(code))
}

// DisplayName returns the English name for a language code. Returns "Unknown"
// for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if n := Normalize(code); n != "" {
		if base, err := xlanguage.ParseBase(n); err == nil {
			if name := display.English.Languages().Name(base); name != "" {
				return name
			}
		}
	}
	return strings.ToUpper(strings.TrimSpace(code))
}
