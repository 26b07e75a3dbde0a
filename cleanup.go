package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/video-stream/clipper/internal/pipeline"
	"github.com/video-stream/clipper/internal/storage"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete every artifact in the workspace",
		Long:  "Purges the workspace while no server owns it. Fails if a running server holds the workspace lock; use POST /cleanup in that case.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ws := storage.NewWorkspace(cfg.WorkspaceDir, cfg.LockPath())
			if err := ws.EnsureReady(); err != nil {
				return err
			}
			if err := ws.TryLock(); err != nil {
				return err
			}
			defer ws.Unlock()

			svc := pipeline.New(ws, nil, nil)
			report, purgeErr := svc.Purge(cmd.Context())

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report.Deleted); err != nil {
					return err
				}
			} else {
				for _, name := range report.Deleted {
					fmt.Fprintf(out, "deleted %s\n", name)
				}
				fmt.Fprintf(out, "%d file(s) deleted\n", len(report.Deleted))
			}
			for name, ferr := range report.Failed {
				fmt.Fprintf(os.Stderr, "failed %s: %v\n", name, ferr)
			}
			return purgeErr
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the deleted names as JSON")
	return cmd
}
