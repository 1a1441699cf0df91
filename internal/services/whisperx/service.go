package whisperx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"captionsync/internal/captions"
	langpkg "captionsync/internal/language"
)

// Service provides audio normalization and WhisperX transcription.
type Service struct {
	cfg           Config
	ffmpegBinary  string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config, ffmpegBinary string) *Service {
	if ffmpegBinary == "" {
		ffmpegBinary = FFmpegCommand
	}
	return &Service{
		cfg:          cfg,
		ffmpegBinary: ffmpegBinary,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Normalize writes a mono 16kHz waveform of source to dest.
func (s *Service) Normalize(ctx context.Context, source, dest string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, s.ffmpegBinary, buildNormalizeArgs(source, dest)...)
	}
	return ExtractFullAudio(ctx, s.ffmpegBinary, source, dest)
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Request describes one transcription of a normalized waveform.
type Request struct {
	// WaveformPath is a mono 16kHz WAV produced by Normalize.
	WaveformPath string
	// OutputDir receives WhisperX output files. Defaults to the waveform's directory.
	OutputDir string
	// Language is an ISO 639 code or language name; empty lets the model
	// decide. A hint that names no known language fails the request.
	Language string
	// TokenTimestamps requests word-level alignment.
	TokenTimestamps bool
	// TranslateToEnglish switches WhisperX to its translate task.
	TranslateToEnglish bool
}

// Result is the structured transcription of one waveform.
type Result struct {
	Tokens   []captions.Token
	Language string
	Model    string
	JSONPath string
}

// Transcribe runs WhisperX on a normalized waveform and returns its tokens in
// time order.
func (s *Service) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.WaveformPath) == "" {
		return nil, errors.New("transcribe: waveform path required")
	}
	code, err := langpkg.Resolve(req.Language)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	req.Language = code
	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = filepath.Dir(req.WaveformPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	args := s.buildArgs(req, outputDir)
	if err := s.run(ctx, UVXCommand, args...); err != nil {
		return nil, fmt.Errorf("whisperx: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(req.WaveformPath), filepath.Ext(req.WaveformPath))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	payload, err := LoadPayload(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("whisperx output: %w", err)
	}

	language := payload.Language
	if language == "" {
		language = req.Language
	}
	return &Result{
		Tokens:   Tokens(payload.Segments),
		Language: language,
		Model:    s.Model(),
		JSONPath: jsonPath,
	}, nil
}

// buildArgs constructs the uvx command arguments for WhisperX. req.Language
// must already be resolved to a WhisperX language code.
func (s *Service) buildArgs(req Request, outputDir string) []string {
	args := make([]string, 0, 40)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	task := TaskTranscribe
	if req.TranslateToEnglish {
		task = TaskTranslate
	}

	args = append(args,
		"whisperx",
		req.WaveformPath,
		"--model", s.Model(),
		"--task", task,
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--temperature", Temperature,
	)
	if s.cfg.ModelDir != "" {
		args = append(args, "--model_dir", s.cfg.ModelDir)
	}
	if !req.TokenTimestamps {
		args = append(args, "--no_align")
	}

	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	if req.Language != "" {
		args = append(args, "--language", req.Language)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}
