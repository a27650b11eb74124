package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccspace/archivist/internal/editor"
	"github.com/ccspace/archivist/internal/report"
)

// newEditCmd creates and configures the 'edit' subcommand.
func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Rewrites the archive into the memorial publish tree",
		Long: `Copies archive_dir to publish_dir and applies the closure edits: removes
the donation and ordering links, moves the site to past tense, adds the
responsive layer, migrates the last show into past events, and marks the
pages that accept injected content.`,

		RunE: runEditCommand,
	}
	return cmd
}

func runEditCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	rep, err := runEditStage(appInstance, uuid.NewString())
	if err != nil {
		return err
	}

	appInstance.GetLogger().Info("Edit stage finished",
		zap.String("run_id", rep.RunID),
		zap.Int("files_modified", rep.FilesModified),
		zap.Bool("last_show_moved", rep.LastShowMoved),
	)
	return nil
}

func runEditStage(appInstance App, runID string) (report.EditReport, error) {
	cfg := appInstance.GetConfig()
	e := editor.New(editor.Config{
		ArchiveDir: cfg.ArchiveDir,
		PublishDir: cfg.PublishDir,
	}, appInstance.GetLogger())

	rep, err := e.Run(runID)
	if err != nil {
		return rep, fmt.Errorf("edit stage: %w", err)
	}
	return rep, nil
}
