package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"captionsync/internal/artifact"
	"captionsync/internal/config"
	"captionsync/internal/deps"
	"captionsync/internal/ingest"
	langpkg "captionsync/internal/language"
	"captionsync/internal/ledger"
	"captionsync/internal/media/ffprobe"
	"captionsync/internal/preflight"
	"captionsync/internal/services"
	"captionsync/internal/services/whisperx"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "transcribe [path...]",
		Short: "Transcribe audio and video assets into caption artifacts",
		Long: "Transcribe every supported file under the given paths. Directories are walked\n" +
			"recursively; with no paths the configured assets directory is processed.\n" +
			"Assets that already have a caption artifact are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lang, err := transcribeLanguage(cfg, language)
			if err != nil {
				return err
			}
			if err := transcribePreflight(cfg, len(args) > 0); err != nil {
				return err
			}
			targets, err := transcribeTargets(cfg, args)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			store, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			svc := whisperx.NewService(whisperx.Config{
				Model:       cfg.Transcription.Model,
				ModelDir:    cfg.Transcription.ModelDir,
				CUDAEnabled: cfg.Transcription.CUDAEnabled,
				VADMethod:   cfg.Transcription.VADMethod,
				HFToken:     cfg.Transcription.HFToken,
			}, deps.ResolveFFmpegPath(cfg.FFmpegBinary()))

			pipeline := ingest.New(svc, svc, artifact.NewStore(cfg.LockDir()), store, logger, ingest.Options{
				TempDir:          cfg.Paths.TempDir,
				Language:         lang,
				MergeThresholdMS: cfg.Transcription.MergeThresholdMS,
			})
			pipeline.WithProber(ffprobe.NewResolver(deps.ResolveFFprobePath(cfg.FFprobeBinary(), cfg.FFmpegBinary())))
			report, runErr := pipeline.Run(cmd.Context(), targets)
			if printErr := printReport(cmd.OutOrStdout(), report); printErr != nil {
				return errors.Join(runErr, printErr)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&language, "lang", "", "Transcription language code (defaults to transcription.language)")
	return cmd
}

// transcribeLanguage resolves the --lang flag, falling back to the configured
// language. Hints that name no known language are rejected before any work.
func transcribeLanguage(cfg *config.Config, flag string) (string, error) {
	hint := strings.TrimSpace(flag)
	if hint == "" {
		return cfg.Transcription.Language, nil
	}
	code, err := langpkg.Resolve(hint)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, services.StageIngest, "--lang", "", err)
	}
	return code, nil
}

// transcribePreflight refuses to start when the state directory, scratch
// space or a required binary is unusable. The assets directory is only
// required when no explicit paths were given.
func transcribePreflight(cfg *config.Config, explicitTargets bool) error {
	results := preflight.RunAll(cfg)
	if explicitTargets {
		results = slices.DeleteFunc(results, func(r preflight.Result) bool {
			return r.Name == preflight.NameAssetsDir
		})
	}
	var problems []string
	for _, r := range preflight.Failed(results) {
		problems = append(problems, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	for _, status := range preflight.CheckSystemDeps(cfg) {
		if status.Available || status.Optional {
			continue
		}
		problems = append(problems, fmt.Sprintf("%s: %s", status.Name, status.Detail))
	}
	if len(problems) > 0 {
		return services.Wrap(services.ErrConfiguration, services.StageIngest, "preflight", strings.Join(problems, "; "), nil)
	}
	return nil
}

func transcribeTargets(cfg *config.Config, args []string) ([]string, error) {
	if len(args) == 0 {
		return []string{cfg.Paths.AssetsDir}, nil
	}
	targets := make([]string, 0, len(args))
	for _, arg := range args {
		path, err := config.ExpandPath(strings.TrimSpace(arg))
		if err != nil {
			return nil, err
		}
		targets = append(targets, path)
	}
	return targets, nil
}

func printReport(out io.Writer, report *ingest.Report) error {
	if report == nil {
		return nil
	}
	summary := report.Summary()
	fmt.Fprintf(out, "Run %s: %d processed, %d skipped, %d failed\n", report.RunID, summary.Processed, summary.Skipped, summary.Failed)
	if len(report.Failures) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(report.Failures))
	for _, failure := range report.Failures {
		rows = append(rows, []string{failure.Path, failure.Stage, services.Kind(failure.Err), failure.Err.Error()})
	}
	return writeTable(out, []string{"Asset", "Stage", "Kind", "Error"}, rows, nil)
}
