package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccspace/archivist/internal/content"
	"github.com/ccspace/archivist/internal/report"
)

// newInjectCmd creates and configures the 'inject' subcommand.
func newInjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Folds new markdown content into the publish tree",
		Long: `Reads the markdown files under new_content_dir, converts their blocks to
HTML, and splices each block into the publish-tree page and element its
frontmatter names. Images next to the markdown are copied into the
publish tree's images directory.`,

		RunE: runInjectCommand,
	}
	return cmd
}

func runInjectCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	rep, err := runInjectStage(appInstance, uuid.NewString())
	if err != nil {
		return err
	}

	appInstance.GetLogger().Info("Inject stage finished",
		zap.String("run_id", rep.RunID),
		zap.Int("files_processed", rep.FilesProcessed),
		zap.Int("files_skipped", rep.FilesSkipped),
		zap.Int("blocks_injected", rep.BlocksInjected),
		zap.Int("images_copied", rep.ImagesCopied),
	)
	return nil
}

func runInjectStage(appInstance App, runID string) (report.InjectReport, error) {
	cfg := appInstance.GetConfig()
	j := content.New(content.Config{
		ContentDir: cfg.NewContentDir,
		PublishDir: cfg.PublishDir,
	}, appInstance.GetLogger())

	rep, err := j.Run(runID)
	if err != nil {
		return rep, fmt.Errorf("inject stage: %w", err)
	}
	return rep, nil
}
