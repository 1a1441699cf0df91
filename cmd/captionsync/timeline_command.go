package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/spf13/cobra"

	"captionsync/internal/render"
	"captionsync/internal/timeline"
)

type timelineJSON struct {
	Audio           string           `json:"audio"`
	Artifact        string           `json:"artifact"`
	FPS             int              `json:"fps"`
	DurationSeconds float64          `json:"durationInSeconds"`
	TotalFrames     int              `json:"totalFrames"`
	Placeholder     bool             `json:"placeholder"`
	Entries         []timeline.Entry `json:"entries"`
}

func newTimelineCommand(ctx *commandContext) *cobra.Command {
	var fps int
	var asJSON bool
	var frame int

	cmd := &cobra.Command{
		Use:   "timeline <audio>",
		Short: "Resolve the caption timeline for an audio track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := resolveRef(args[0])
			if err != nil {
				return err
			}
			renderer, err := ctx.newRenderer(fps)
			if err != nil {
				return err
			}
			tl, err := renderer.Resolve(cmd.Context(), ref)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("frame") {
				return printFrame(cmd.OutOrStdout(), tl, frame)
			}
			if asJSON {
				return encodeTimeline(cmd.OutOrStdout(), tl)
			}
			return printTimeline(cmd.OutOrStdout(), tl)
		},
	}

	cmd.Flags().IntVar(&fps, "fps", 0, "Frame rate (defaults to render.fps)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the timeline as JSON")
	cmd.Flags().IntVar(&frame, "frame", 0, "Print only the caption visible at this frame")
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var fps int
	var videoRef string

	cmd := &cobra.Command{
		Use:   "watch <audio>",
		Short: "Keep a timeline open and re-print it when the caption artifact changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := resolveRef(args[0])
			if err != nil {
				return err
			}
			renderer, err := ctx.newRenderer(fps)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var (
				mu     sync.Mutex
				passes int
			)
			onUpdate := func(s *render.Session, tl *render.Timeline, passErr error) {
				mu.Lock()
				defer mu.Unlock()
				passes++
				fmt.Fprintf(out, "== pass %d ==\n", passes)
				if video := s.VideoRef(); video != "" {
					fmt.Fprintf(out, "Video:    %s\n", video)
				}
				if passErr != nil {
					fmt.Fprintf(out, "render cancelled: %v\n", passErr)
					return
				}
				_ = printTimeline(out, tl)
			}

			session, err := renderer.Open(cmd.Context(), ref, videoRef, onUpdate)
			if err != nil {
				return err
			}
			<-cmd.Context().Done()
			return session.Close()
		},
	}

	cmd.Flags().IntVar(&fps, "fps", 0, "Frame rate (defaults to render.fps)")
	cmd.Flags().StringVar(&videoRef, "video", "", "Video reference carried with the session")
	return cmd
}

func toTimelineJSON(tl *render.Timeline) timelineJSON {
	entries := tl.Entries
	if entries == nil {
		entries = []timeline.Entry{}
	}
	return timelineJSON{
		Audio:           tl.AudioRef,
		Artifact:        tl.ArtifactRef,
		FPS:             tl.FPS,
		DurationSeconds: tl.DurationSeconds,
		TotalFrames:     tl.TotalFrames,
		Placeholder:     tl.Placeholder,
		Entries:         entries,
	}
}

// encodeTimeline writes tl as indented JSON. Entries is always an array.
func encodeTimeline(out io.Writer, tl *render.Timeline) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(toTimelineJSON(tl))
}

func printTimeline(out io.Writer, tl *render.Timeline) error {
	fmt.Fprintf(out, "Audio:    %s\n", tl.AudioRef)
	fmt.Fprintf(out, "Artifact: %s\n", tl.ArtifactRef)
	fmt.Fprintf(out, "Duration: %.3fs (%d frames @ %d fps)\n", tl.DurationSeconds, tl.TotalFrames, tl.FPS)
	if tl.Placeholder {
		fmt.Fprintln(out, render.PlaceholderText)
		return nil
	}
	rows := make([][]string, 0, len(tl.Entries))
	for _, e := range tl.Entries {
		rows = append(rows, []string{
			strconv.Itoa(e.StartFrame),
			strconv.Itoa(e.DurationFrames),
			strconv.Itoa(e.EndFrame()),
			e.Caption.Text,
		})
	}
	return writeTable(out, []string{"Start", "Frames", "End", "Caption"}, rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft})
}

func printFrame(out io.Writer, tl *render.Timeline, frame int) error {
	if tl.Placeholder {
		_, err := fmt.Fprintln(out, render.PlaceholderText)
		return err
	}
	entry, ok := tl.At(frame)
	if !ok {
		_, err := fmt.Fprintf(out, "frame %d: no caption\n", frame)
		return err
	}
	_, err := fmt.Fprintf(out, "frame %d: %s\n", frame, entry.Caption.Text)
	return err
}
