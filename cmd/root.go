// Package cmd defines and implements the CLI commands for the archivist executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccspace/archivist/internal/app"
	"github.com/ccspace/archivist/internal/config"
	"github.com/ccspace/archivist/internal/logging"
	"github.com/ccspace/archivist/internal/wayback"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application surface that commands use.
// This allows us to inject a mock app during tests.
type App interface {
	Close()
	GetConfig() config.Config
	GetLogger() *zap.Logger
	GetWayback() *wayback.Client
	GetCDX() *wayback.CDXClient
}

// newApp is the application factory. It's a variable so we can
// replace it with a mock factory in our tests.
var newApp = func() (App, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return app.NewApp(path)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archivist",
		Short: "Rebuilds ccspace.org from its Wayback Machine snapshot.",
		Long: `archivist turns the archived Charm City Art Space site into a static
memorial. It mirrors the capture into a local archive tree, rewrites the
pages for the closed venue, folds in new markdown content, and serves the
result for preview.`,

		// This hook runs BEFORE the subcommand's RunE and is the place
		// to build and inject the application services.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp()
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}

			// Store the app instance in the context for subcommands to use.
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// This hook ensures services are shut down gracefully.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./config.yaml when present)")

	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newEditCmd())
	cmd.AddCommand(newInjectCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// resolveApp pulls the injected application services out of the command
// context.
func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Must(true).Fatal("Command execution failed", zap.Error(err))
	}
}
