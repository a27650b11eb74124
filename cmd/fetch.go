package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccspace/archivist/internal/mirror"
	"github.com/ccspace/archivist/internal/report"
)

// newFetchCmd creates and configures the 'fetch' subcommand.
func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Mirrors the snapshot into the local archive tree",
		Long: `Crawls the configured Wayback Machine capture, rewrites its links for
local browsing, downloads the referenced assets, and writes the result
under archive_dir together with a fetch report.`,

		RunE: runFetchCommand,
	}
	return cmd
}

func runFetchCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	rep, err := runFetchStage(cmd.Context(), appInstance, uuid.NewString())
	if err != nil {
		return err
	}

	appInstance.GetLogger().Info("Fetch stage finished",
		zap.String("run_id", rep.RunID),
		zap.Int("pages", rep.PagesFetched),
		zap.Int("assets", rep.AssetsFetched),
		zap.Int("failures", rep.FetchFailures),
		zap.Int("dangling_links", len(rep.DanglingLinks)),
	)
	return nil
}

// runFetchStage builds and runs the mirror stage. The run command reuses
// it so all three stages share one run ID.
func runFetchStage(ctx context.Context, appInstance App, runID string) (report.FetchReport, error) {
	cfg := appInstance.GetConfig()
	m := mirror.New(mirror.Config{
		Domain:            cfg.Fetch.Domain,
		SnapshotTimestamp: cfg.Fetch.SnapshotTimestamp,
		SnapshotURL:       cfg.Fetch.SnapshotURL,
		OutputDir:         cfg.ArchiveDir,
		MaxPages:          cfg.Fetch.MaxPages,
	}, appInstance.GetWayback(), appInstance.GetCDX(), appInstance.GetLogger())

	rep, err := m.Run(ctx, runID)
	if err != nil {
		return rep, fmt.Errorf("fetch stage: %w", err)
	}
	return rep, nil
}
