package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/video-stream/clipper/internal/deps"
	"github.com/video-stream/clipper/internal/engine"
	"github.com/video-stream/clipper/internal/ffmpeg"
	xlog "github.com/video-stream/clipper/internal/log"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check that yt-dlp, ffmpeg and ffprobe are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.Tools(cfg.YtDlpPath, cfg.FFmpegPath, cfg.FFprobePath))

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TOOL\tSTATUS\tDETAIL")
			for _, st := range statuses {
				state, detail := "ok", st.Path
				if !st.Available {
					state, detail = "missing", st.Detail
					if st.Optional {
						state = "missing (optional)"
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", st.Name, state, detail)
			}

			runner := &engine.ExecRunner{Logger: xlog.WithComponent("deps")}
			probeCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if caps, err := ffmpeg.DetectCapabilities(probeCtx, cfg.FFmpegPath, runner); err == nil {
				burn := "ok"
				if !caps.CanBurnIn() {
					burn = "unavailable"
				}
				fmt.Fprintf(tw, "subtitle burn-in\t%s\tsubtitles filter=%t encoder=%s\n", burn, caps.Subtitles, caps.VideoEncoder)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if missing := deps.Missing(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required tool(s) missing", len(missing))
			}
			return nil
		},
	}
}
