package cmd

import (
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newRunCmd creates and configures the 'run' subcommand, which executes
// the whole pipeline in order.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Runs fetch, edit, and inject as one pipeline",
		Long: `Executes the three stages in order under a single run ID. A stage
failure stops the pipeline. The inject stage is skipped when there is no
new content directory, since a mirror without new content is complete.`,

		RunE: runRunCommand,
	}
	return cmd
}

func runRunCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.GetLogger()

	runID := uuid.NewString()
	logger.Info("Pipeline started", zap.String("run_id", runID))

	fetchRep, err := runFetchStage(cmd.Context(), appInstance, runID)
	if err != nil {
		return err
	}
	editRep, err := runEditStage(appInstance, runID)
	if err != nil {
		return err
	}

	injected := 0
	if skip, reason := skipInject(appInstance.GetConfig().NewContentDir); skip {
		logger.Info("Inject stage skipped", zap.String("reason", reason))
	} else {
		injectRep, err := runInjectStage(appInstance, runID)
		if err != nil {
			return err
		}
		injected = injectRep.BlocksInjected
	}

	logger.Info("Pipeline finished",
		zap.String("run_id", runID),
		zap.Int("pages_fetched", fetchRep.PagesFetched),
		zap.Int("files_modified", editRep.FilesModified),
		zap.Int("blocks_injected", injected),
	)
	return nil
}

// skipInject reports whether the pipeline should bypass the inject stage.
// Standalone 'archivist inject' treats a missing content directory as an
// error instead, so a typo in the config does not pass silently.
func skipInject(contentDir string) (bool, string) {
	if contentDir == "" {
		return true, "new_content_dir not configured"
	}
	if _, err := os.Stat(contentDir); err != nil {
		return true, "new content directory missing"
	}
	return false, ""
}
