package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"captionsync/internal/deps"
	"captionsync/internal/preflight"
)

var errChecksFailed = errors.New("one or more checks failed")

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check external binaries, directories and scratch space",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := preflight.CheckSystemDeps(cfg)
			failed := len(deps.Missing(statuses)) > 0
			rows := [][]string{}
			for _, status := range statuses {
				state, command, detail := "ok", status.Path, status.Description
				if !status.Available {
					state, command, detail = "missing", status.Command, status.Detail
				}
				rows = append(rows, []string{status.Name, state, command, detail})
			}
			for _, result := range preflight.RunAll(cfg) {
				state := "ok"
				if !result.Passed {
					state = "failed"
					failed = true
				}
				rows = append(rows, []string{result.Name, state, "", result.Detail})
			}

			out := cmd.OutOrStdout()
			if ctx.configPath != "" {
				fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
			}
			if err := writeTable(out, []string{"Check", "State", "Command", "Detail"}, rows, nil); err != nil {
				return err
			}
			if failed {
				return errChecksFailed
			}
			return nil
		},
	}
}
