package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"captionsync/internal/language"
	"captionsync/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transcription runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if id := strings.TrimSpace(runID); id != "" {
				run, err := store.Run(cmd.Context(), id)
				if err != nil {
					return err
				}
				assets, err := store.Assets(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printRunDetail(out, run, assets)
			}

			runs, err := store.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					run.StartedAt.Local().Format(time.DateTime),
					string(run.Status),
					strconv.Itoa(run.Processed),
					strconv.Itoa(run.Skipped),
					strconv.Itoa(run.Failed),
				})
			}
			return writeTable(out, []string{"Run", "Started", "Status", "Processed", "Skipped", "Failed"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show the assets recorded for one run")
	return cmd
}

func printRunDetail(out io.Writer, run ledger.Run, assets []ledger.AssetRecord) error {
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Status:   %s\n", run.Status)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.FinishedAt != nil {
		fmt.Fprintf(out, "Finished: %s\n", run.FinishedAt.Local().Format(time.DateTime))
	}
	if run.Language != "" {
		fmt.Fprintf(out, "Language: %s (%s)\n", language.DisplayName(run.Language), run.Language)
	}
	if len(run.Roots) > 0 {
		fmt.Fprintf(out, "Roots:    %s\n", strings.Join(run.Roots, ", "))
	}
	if run.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", run.Error)
	}
	if len(assets) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(assets))
	for _, a := range assets {
		detail := a.Error
		if a.Status == ledger.AssetProcessed {
			detail = fmt.Sprintf("%d tokens, %d captions", a.Tokens, a.Captions)
		}
		rows = append(rows, []string{a.Path, string(a.Status), a.Stage, a.Duration.Round(time.Millisecond).String(), detail})
	}
	return writeTable(out, []string{"Asset", "Status", "Stage", "Elapsed", "Detail"}, rows, nil)
}
