package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ccspace/archivist/internal/preview"
)

// newServeCmd creates and configures the 'serve' subcommand.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the publish tree for local preview",
		Long: `Starts an HTTP server over publish_dir with health, readiness, metrics,
and report endpoints alongside the static site. The server runs until
interrupted and then shuts down gracefully.`,

		RunE: runServeCommand,
	}
	return cmd
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.GetConfig()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := preview.NewServer(cfg.PublishDir, appInstance.GetLogger())
	if err := srv.Listen(ctx, cfg.Serve.Port); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
