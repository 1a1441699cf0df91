package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"captionsync/internal/artifact"
	"captionsync/internal/captions"
	"captionsync/internal/language"
	"captionsync/internal/ledger"
	"captionsync/internal/logging"
	"captionsync/internal/media/ffprobe"
	"captionsync/internal/scan"
	"captionsync/internal/services"
	"captionsync/internal/services/whisperx"
	"captionsync/internal/workspace"
)

// Normalizer converts a media asset to a mono 16kHz waveform.
type Normalizer interface {
	Normalize(ctx context.Context, source, dest string) error
}

// Transcriber turns a normalized waveform into time-ordered tokens.
type Transcriber interface {
	Transcribe(ctx context.Context, req whisperx.Request) (*whisperx.Result, error)
}

// Prober inspects a media asset's streams before it is normalized.
type Prober interface {
	Inspect(ctx context.Context, ref string) (ffprobe.Result, error)
}

// Recorder persists run history. The ledger store satisfies it.
type Recorder interface {
	BeginRun(ctx context.Context, run ledger.Run) error
	RecordAsset(ctx context.Context, rec ledger.AssetRecord) error
	FinishRun(ctx context.Context, runID string, status ledger.RunStatus, summary ledger.Summary, runErr error) error
}

// Options configures a pipeline.
type Options struct {
	TempDir          string
	Language         string
	MergeThresholdMS int
}

// Pipeline processes assets sequentially.
type Pipeline struct {
	normalizer  Normalizer
	transcriber Transcriber
	prober      Prober
	store       *artifact.Store
	recorder    Recorder
	logger      *slog.Logger
	opts        Options
	newRunID    func() string
}

// New builds a pipeline. recorder may be nil.
func New(normalizer Normalizer, transcriber Transcriber, store *artifact.Store, recorder Recorder, logger *slog.Logger, opts Options) *Pipeline {
	if opts.MergeThresholdMS <= 0 {
		opts.MergeThresholdMS = captions.DefaultMergeThresholdMS
	}
	return &Pipeline{
		normalizer:  normalizer,
		transcriber: transcriber,
		store:       store,
		recorder:    recorder,
		logger:      logging.NewComponentLogger(logger, "ingest"),
		opts:        opts,
		newRunID:    uuid.NewString,
	}
}

// WithProber rejects assets without an audio stream before normalization.
func (p *Pipeline) WithProber(prober Prober) {
	p.prober = prober
}

// Report summarizes a run.
type Report struct {
	RunID     string
	Processed []string
	Skipped   []string
	Failures  []*AssetError
}

// Summary returns outcome counts for the run.
func (r *Report) Summary() ledger.Summary {
	return ledger.Summary{
		Processed: len(r.Processed),
		Skipped:   len(r.Skipped),
		Failed:    len(r.Failures),
	}
}

// Run processes every target path. Directories are walked recursively; files
// are processed directly when their extension is supported. The returned
// report is always non-nil.
func (p *Pipeline) Run(ctx context.Context, targets []string) (*Report, error) {
	report := &Report{RunID: p.newRunID()}
	ctx = services.WithStage(ctx, services.StageIngest)
	ctx = services.WithRequestID(ctx, report.RunID)
	logger := logging.WithContext(ctx, p.logger)

	logger.Info("transcription run started",
		logging.Int("targets", len(targets)),
		logging.String("language", p.opts.Language),
		logging.String(logging.FieldEventType, "run_started"),
	)
	if p.opts.Language != "" && !language.Aligned(p.opts.Language) {
		logging.WarnWithContext(logger, "no word alignment model for language; captions follow segment timing", "alignment_unavailable",
			logging.String("language", language.DisplayName(p.opts.Language)),
			logging.String(logging.FieldErrorHint, "use a language with a WhisperX alignment model for word-level captions"),
		)
	}
	p.beginRun(ctx, logger, report.RunID, targets)

	runErr := p.runTargets(ctx, logger, report, targets)

	status := ledger.RunCompleted
	switch {
	case runErr != nil:
		status = ledger.RunAborted
	case len(report.Failures) > 0:
		status = ledger.RunFailed
		runErr = fmt.Errorf("%w: %d of %d assets", ErrAssetsFailed, len(report.Failures), report.Summary().Total())
	}
	p.finishRun(ctx, logger, report, status, runErr)

	logger.Info("transcription run finished",
		logging.Int("processed", len(report.Processed)),
		logging.Int("skipped", len(report.Skipped)),
		logging.Int("failed", len(report.Failures)),
		logging.String("status", string(status)),
		logging.String(logging.FieldEventType, "run_finished"),
	)
	return report, runErr
}

func (p *Pipeline) runTargets(ctx context.Context, logger *slog.Logger, report *Report, targets []string) error {
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := os.Stat(target)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				err = services.Wrap(services.ErrNotFound, services.StageIngest, "scan", "", err)
			}
			p.fail(ctx, logger, report, &AssetError{Path: target, Stage: StageScan, Err: err}, "")
			continue
		}
		if !info.IsDir() {
			asset, ok, err := scan.Inspect(target)
			if err != nil {
				p.fail(ctx, logger, report, &AssetError{Path: target, Stage: StageScan, Err: err}, "")
				continue
			}
			if !ok {
				logger.Info("skipping unsupported file",
					logging.String(logging.FieldAsset, target),
					logging.String(logging.FieldEventType, "asset_unsupported"),
				)
				continue
			}
			if err := p.process(ctx, logger, report, asset); err != nil {
				return err
			}
			continue
		}

		for asset, err := range scan.Walk(target) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				path := target
				var dirErr *scan.DirError
				if errors.As(err, &dirErr) {
					path = dirErr.Path
				}
				p.fail(ctx, logger, report, &AssetError{Path: path, Stage: StageScan, Err: err}, "")
				continue
			}
			if err := p.process(ctx, logger, report, asset); err != nil {
				return err
			}
		}
	}
	return nil
}

// process handles one asset. Only fatal errors are returned.
func (p *Pipeline) process(ctx context.Context, logger *slog.Logger, report *Report, asset scan.Asset) error {
	assetLogger := logger.With(
		logging.String(logging.FieldAsset, asset.Path),
		logging.String(logging.FieldArtifact, asset.ArtifactPath),
	)
	if asset.Transcribed {
		p.skip(ctx, assetLogger, report, asset)
		return nil
	}

	claim, err := p.store.Claim(ctx, asset.ArtifactPath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		p.fail(ctx, assetLogger, report, &AssetError{Path: asset.Path, Stage: StageClaim, Err: err}, asset.ArtifactPath)
		return nil
	}
	defer func() {
		if err := claim.Release(); err != nil {
			logging.WarnWithContext(assetLogger, "failed to release artifact lock", "lock_release_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state_dir/locks permissions"),
				logging.String(logging.FieldImpact, "other runs may wait on this artifact"),
			)
		}
	}()
	if claim.Done {
		p.skip(ctx, assetLogger, report, asset)
		return nil
	}

	assetLogger.Info("processing file",
		logging.String("kind", string(asset.Kind)),
		logging.String(logging.FieldEventType, "asset_started"),
	)
	started := time.Now()
	result, assetErr, fatal := p.transcribe(ctx, assetLogger, asset)
	if fatal != nil {
		logging.ErrorWithContext(assetLogger, "artifact write failed; aborting run", "artifact_write_failed",
			logging.Error(fatal),
			logging.String(logging.FieldErrorHint, "check free space and permissions next to the asset"),
		)
		p.record(ctx, assetLogger, ledger.AssetRecord{
			RunID:     report.RunID,
			Path:      asset.Path,
			Status:    ledger.AssetFailed,
			Stage:     StageWrite,
			ErrorKind: services.Kind(fatal),
			Error:     fatal.Error(),
		})
		report.Failures = append(report.Failures, &AssetError{Path: asset.Path, Stage: StageWrite, Err: fatal})
		return fatal
	}
	if assetErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		p.fail(ctx, assetLogger, report, assetErr, asset.ArtifactPath)
		return nil
	}

	elapsed := time.Since(started)
	report.Processed = append(report.Processed, asset.Path)
	assetLogger.Info("transcription written",
		logging.Int("tokens", len(result.RawTokens)),
		logging.Int("captions", len(result.Transcription)),
		logging.Duration("elapsed", elapsed),
		logging.String(logging.FieldEventType, "asset_processed"),
	)
	p.record(ctx, assetLogger, ledger.AssetRecord{
		RunID:        report.RunID,
		Path:         asset.Path,
		ArtifactPath: asset.ArtifactPath,
		Status:       ledger.AssetProcessed,
		Tokens:       len(result.RawTokens),
		Captions:     len(result.Transcription),
		Duration:     elapsed,
	})
	return nil
}

// transcribe runs normalize, transcribe, merge and write for one asset inside
// a scratch workspace. Scratch files are removed before it returns.
func (p *Pipeline) transcribe(ctx context.Context, logger *slog.Logger, asset scan.Asset) (*artifact.Artifact, *AssetError, *FatalError) {
	fail := func(stage string, err error) (*artifact.Artifact, *AssetError, *FatalError) {
		return nil, &AssetError{Path: asset.Path, Stage: stage, Err: err}, nil
	}

	if p.prober != nil {
		probe, err := p.prober.Inspect(ctx, asset.Path)
		if err != nil {
			return fail(StageNormalize, services.Wrap(services.ErrExternalTool, services.StageIngest, "inspect media", "", err))
		}
		if probe.AudioStreamCount() == 0 {
			return fail(StageNormalize, services.Wrap(services.ErrValidation, services.StageIngest, "inspect media", "no audio stream", nil))
		}
	}

	ws, err := workspace.Acquire(p.opts.TempDir, logger)
	if err != nil {
		return fail(StageNormalize, services.Wrap(services.ErrConfiguration, services.StageIngest, "workspace", "", err))
	}
	defer func() { _ = ws.Release() }()

	base := strings.TrimSuffix(filepath.Base(asset.Path), filepath.Ext(asset.Path))
	scratch := base + "." + scratchSuffix(asset.Path)
	wav := ws.File(scratch + ".wav")
	outDir := ws.File(scratch + ".whisperx")
	defer func() {
		_ = ws.Remove(outDir)
		_ = ws.Remove(wav)
	}()

	if err := p.normalizer.Normalize(ctx, asset.Path, wav); err != nil {
		return fail(StageNormalize, services.Wrap(services.ErrExternalTool, services.StageIngest, "normalize audio", "", err))
	}

	result, err := p.transcriber.Transcribe(ctx, whisperx.Request{
		WaveformPath:       wav,
		OutputDir:          outDir,
		Language:           p.opts.Language,
		TokenTimestamps:    p.opts.Language == "" || language.Aligned(p.opts.Language),
		TranslateToEnglish: false,
	})
	if err != nil {
		marker := services.ErrExternalTool
		if errors.Is(err, language.ErrUnsupported) {
			marker = services.ErrValidation
		}
		return fail(StageTranscribe, services.Wrap(marker, services.StageIngest, "transcribe", "", err))
	}

	merged, err := captions.Merge(result.Tokens, p.opts.MergeThresholdMS)
	if err != nil {
		return fail(StageMerge, services.Wrap(services.ErrValidation, services.StageIngest, "merge captions", "", err))
	}

	out := &artifact.Artifact{
		Transcription:     merged,
		FullTranscription: captions.FullTranscript(result.Tokens),
		Language:          result.Language,
		Model:             result.Model,
		RawTokens:         result.Tokens,
	}
	if err := p.store.Write(asset.ArtifactPath, out); err != nil {
		return nil, nil, &FatalError{Path: asset.ArtifactPath, Err: err}
	}
	return out, nil, nil
}

// scratchSuffix keeps scratch names unique for assets sharing a base name.
func scratchSuffix(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+abs)).String()[:8]
}

func (p *Pipeline) skip(ctx context.Context, logger *slog.Logger, report *Report, asset scan.Asset) {
	report.Skipped = append(report.Skipped, asset.Path)
	logger.Debug("artifact exists; skipping",
		logging.String(logging.FieldEventType, "asset_skipped"),
	)
	p.record(ctx, logger, ledger.AssetRecord{
		RunID:        report.RunID,
		Path:         asset.Path,
		ArtifactPath: asset.ArtifactPath,
		Status:       ledger.AssetSkipped,
	})
}

func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, report *Report, assetErr *AssetError, artifactPath string) {
	report.Failures = append(report.Failures, assetErr)
	logging.WarnWithContext(logger, "asset failed", "asset_failed",
		logging.String("path", assetErr.Path),
		logging.String("failed_stage", assetErr.Stage),
		logging.Error(assetErr.Err),
		logging.String(logging.FieldErrorHint, hintFor(assetErr)),
		logging.String(logging.FieldImpact, "no caption artifact for this asset; rerun to retry"),
	)
	p.record(ctx, logger, ledger.AssetRecord{
		RunID:        report.RunID,
		Path:         assetErr.Path,
		ArtifactPath: artifactPath,
		Status:       ledger.AssetFailed,
		Stage:        assetErr.Stage,
		ErrorKind:    services.Kind(assetErr.Err),
		Error:        assetErr.Err.Error(),
	})
}

func hintFor(err *AssetError) string {
	switch err.Stage {
	case StageScan:
		if errors.Is(err.Err, fs.ErrPermission) {
			return "grant read access to the directory"
		}
		return "check that the path exists and is readable"
	case StageNormalize:
		return "verify the file has an audio stream and ffmpeg is installed"
	case StageTranscribe:
		if errors.Is(err.Err, language.ErrUnsupported) {
			return "use an ISO 639 code or English language name"
		}
		return "check the language code and WhisperX installation"
	case StageMerge:
		return "transcriber returned tokens out of time order"
	default:
		return "check logs for details"
	}
}

func (p *Pipeline) beginRun(ctx context.Context, logger *slog.Logger, runID string, targets []string) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.BeginRun(ctx, ledger.Run{ID: runID, Language: p.opts.Language, Roots: targets}); err != nil {
		logging.WarnWithContext(logger, "failed to record run start", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history incomplete"),
		)
	}
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, rec ledger.AssetRecord) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.RecordAsset(context.WithoutCancel(ctx), rec); err != nil {
		logging.WarnWithContext(logger, "failed to record asset outcome", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history incomplete"),
		)
	}
}

func (p *Pipeline) finishRun(ctx context.Context, logger *slog.Logger, report *Report, status ledger.RunStatus, runErr error) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.FinishRun(context.WithoutCancel(ctx), report.RunID, status, report.Summary(), runErr); err != nil {
		logging.WarnWithContext(logger, "failed to record run finish", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history incomplete"),
		)
	}
}
