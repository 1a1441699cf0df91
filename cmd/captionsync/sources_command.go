package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"captionsync/internal/config"
	"captionsync/internal/render"
)

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sources [dir]",
		Short: "List selectable audio tracks and whether they have captions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root := cfg.Paths.AssetsDir
			if len(args) == 1 {
				root, err = config.ExpandPath(args[0])
				if err != nil {
					return err
				}
			}

			sources, walkErr := render.AudioSources(root)
			out := cmd.OutOrStdout()
			if len(sources) == 0 {
				fmt.Fprintf(out, "No audio tracks under %s\n", root)
				return walkErr
			}
			rows := make([][]string, 0, len(sources))
			for _, src := range sources {
				rows = append(rows, []string{src.Name, yesNo(src.HasCaptions), src.Path})
			}
			if err := writeTable(out, []string{"Track", "Captions", "Path"}, rows, nil); err != nil {
				return err
			}
			return walkErr
		},
	}
}
