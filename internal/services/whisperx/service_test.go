package whisperx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	langpkg "captionsync/internal/language"
)

const samplePayload = `{
  "language": "en",
  "segments": [
    {"text": " Hi there.", "start": 0.0, "end": 1.2, "words": [
      {"word": "Hi", "start": 0.0, "end": 0.3, "score": 0.98},
      {"word": "there.", "start": 0.9, "end": 1.2, "score": 0.91}
    ]},
    {"text": " It is 2024.", "start": 1.5, "end": 2.4, "words": [
      {"word": "It", "start": 1.5, "end": 1.6, "score": 0.9},
      {"word": "is", "start": 1.65, "end": 1.8, "score": 0.88},
      {"word": "2024."}
    ]}
  ]
}`

func argValue(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

func TestNormalizeUsesMonoSixteenKilohertz(t *testing.T) {
	svc := NewService(Config{}, "/opt/ffmpeg")
	var gotName string
	var gotArgs []string
	svc.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	})

	if err := svc.Normalize(context.Background(), "/media/talk.mp4", "/tmp/talk.wav"); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if gotName != "/opt/ffmpeg" {
		t.Fatalf("expected configured ffmpeg binary, got %q", gotName)
	}
	if argValue(gotArgs, "-ac") != "1" || argValue(gotArgs, "-ar") != "16000" {
		t.Fatalf("expected mono 16k output, got %v", gotArgs)
	}
	if argValue(gotArgs, "-i") != "/media/talk.mp4" || gotArgs[len(gotArgs)-1] != "/tmp/talk.wav" {
		t.Fatalf("unexpected input/output: %v", gotArgs)
	}
}

func TestNormalizePropagatesFailure(t *testing.T) {
	svc := NewService(Config{}, "")
	svc.WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("no audio stream")
	})
	if err := svc.Normalize(context.Background(), "a.mp4", "a.wav"); err == nil {
		t.Fatal("expected normalization error")
	}
}

func TestTranscribeParsesWordTokens(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "talk.wav")
	out := filepath.Join(dir, "out")

	svc := NewService(Config{Model: "small", ModelDir: "/models"}, "")
	var gotArgs []string
	svc.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		if name != UVXCommand {
			t.Fatalf("unexpected command %q", name)
		}
		gotArgs = args
		return os.WriteFile(filepath.Join(argValue(args, "--output_dir"), "talk.json"), []byte(samplePayload), 0o644)
	})

	result, err := svc.Transcribe(context.Background(), Request{
		WaveformPath:    wav,
		OutputDir:       out,
		Language:        "English",
		TokenTimestamps: true,
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if argValue(gotArgs, "--model") != "small" || argValue(gotArgs, "--model_dir") != "/models" {
		t.Fatalf("model flags missing: %v", gotArgs)
	}
	if argValue(gotArgs, "--language") != "en" || argValue(gotArgs, "--task") != TaskTranscribe {
		t.Fatalf("language/task flags wrong: %v", gotArgs)
	}
	if slices.Contains(gotArgs, "--no_align") {
		t.Fatal("word alignment must stay enabled when token timestamps are requested")
	}

	if result.Language != "en" || result.Model != "small" {
		t.Fatalf("unexpected metadata: %+v", result)
	}
	if len(result.Tokens) != 5 {
		t.Fatalf("expected 5 tokens, got %d", len(result.Tokens))
	}
	if result.Tokens[0].Text != " Hi" || result.Tokens[0].Confidence != 0.98 {
		t.Fatalf("unexpected first token: %+v", result.Tokens[0])
	}
	last := result.Tokens[4]
	if last.StartInSeconds != 1.8 || last.EndInSeconds != 1.8 {
		t.Fatalf("untimed word should inherit previous end, got %+v", last)
	}
}

func TestTranscribeFailureAndMissingOutput(t *testing.T) {
	svc := NewService(Config{}, "")
	svc.WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("unsupported language")
	})
	_, err := svc.Transcribe(context.Background(), Request{WaveformPath: filepath.Join(t.TempDir(), "a.wav")})
	if err == nil || !strings.Contains(err.Error(), "unsupported language") {
		t.Fatalf("expected runner error, got %v", err)
	}

	svc.WithCommandRunner(func(context.Context, string, ...string) error { return nil })
	if _, err := svc.Transcribe(context.Background(), Request{WaveformPath: filepath.Join(t.TempDir(), "a.wav")}); err == nil {
		t.Fatal("expected error when whisperx wrote no output")
	}

	if _, err := svc.Transcribe(context.Background(), Request{}); err == nil {
		t.Fatal("expected error for empty waveform path")
	}
}

func TestTranscribePassesThreeLetterLanguageCodes(t *testing.T) {
	for _, hint := range []string{"haw", "yue"} {
		dir := t.TempDir()
		svc := NewService(Config{}, "")
		var gotArgs []string
		svc.WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
			gotArgs = args
			return os.WriteFile(filepath.Join(argValue(args, "--output_dir"), "a.json"), []byte(`{"segments":[]}`), 0o644)
		})
		result, err := svc.Transcribe(context.Background(), Request{WaveformPath: filepath.Join(dir, "a.wav"), Language: hint})
		if err != nil {
			t.Fatalf("Transcribe(%s): %v", hint, err)
		}
		if argValue(gotArgs, "--language") != hint {
			t.Fatalf("expected --language %s, got %v", hint, gotArgs)
		}
		if result.Language != hint {
			t.Fatalf("expected result language %s, got %q", hint, result.Language)
		}
	}
}

func TestTranscribeRejectsUnknownLanguage(t *testing.T) {
	svc := NewService(Config{}, "")
	ran := false
	svc.WithCommandRunner(func(context.Context, string, ...string) error {
		ran = true
		return nil
	})
	_, err := svc.Transcribe(context.Background(), Request{WaveformPath: filepath.Join(t.TempDir(), "a.wav"), Language: "klingon"})
	if !errors.Is(err, langpkg.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if ran {
		t.Fatal("whisperx must not run without the requested language")
	}
}

func TestBuildArgsDeviceAndVAD(t *testing.T) {
	svc := NewService(Config{CUDAEnabled: true, VADMethod: VADMethodPyannote, HFToken: "hf_x"}, "")
	args := svc.buildArgs(Request{WaveformPath: "a.wav", TranslateToEnglish: true}, "/out")
	if argValue(args, "--device") != CUDADevice || argValue(args, "--index-url") != CUDAIndexURL {
		t.Fatalf("expected CUDA flags: %v", args)
	}
	if argValue(args, "--vad_method") != VADMethodPyannote || argValue(args, "--hf_token") != "hf_x" {
		t.Fatalf("expected pyannote flags: %v", args)
	}
	if argValue(args, "--task") != TaskTranslate || !slices.Contains(args, "--no_align") {
		t.Fatalf("expected translate task without alignment: %v", args)
	}
	if slices.Contains(args, "--language") {
		t.Fatal("empty language must not be passed")
	}

	cpu := NewService(Config{}, "").buildArgs(Request{WaveformPath: "a.wav"}, "/out")
	if argValue(cpu, "--compute_type") != CPUComputeType || argValue(cpu, "--vad_method") != VADMethodSilero {
		t.Fatalf("expected CPU defaults: %v", cpu)
	}
}

func TestTokensSegmentWithoutWords(t *testing.T) {
	tokens := Tokens([]Segment{
		{Text: "  ", Start: 0, End: 1},
		{Text: " Hello world ", Start: 2, End: 3},
	})
	if len(tokens) != 1 || tokens[0].Text != " Hello world" || tokens[0].StartInSeconds != 2 {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}
}
