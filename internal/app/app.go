// Package app initializes and holds the services shared by every archivist
// command, acting as a dependency injection container.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ccspace/archivist/internal/config"
	"github.com/ccspace/archivist/internal/logging"
	"github.com/ccspace/archivist/internal/wayback"
)

// App holds the shared, long-lived services for the pipeline commands.
// It is initialized once at startup and handed to the subcommands through
// the command context.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	capture *wayback.Client
	listing *wayback.CDXClient
}

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetWayback returns the raw capture client.
func (a *App) GetWayback() *wayback.Client {
	return a.capture
}

// GetCDX returns the snapshot listing client.
func (a *App) GetCDX() *wayback.CDXClient {
	return a.listing
}

// NewApp loads configuration, builds the logger, and wires the archive
// service clients. It fails fast if any critical service cannot be
// initialized.
func NewApp(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	clientCfg := wayback.ClientConfig{
		UserAgent:      cfg.Fetch.UserAgent,
		RequestTimeout: cfg.Fetch.RequestTimeout,
	}
	capture, err := wayback.NewClient(clientCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build archive client: %w", err)
	}

	logger.Info("Application services initialized",
		zap.String("domain", cfg.Fetch.Domain),
		zap.String("snapshot", cfg.Fetch.SnapshotTimestamp))

	return &App{
		cfg:     cfg,
		logger:  logger,
		capture: capture,
		listing: wayback.NewCDXClient(clientCfg, logger),
	}, nil
}

// Close flushes buffered log entries. It is called by a Cobra hook after
// the command finishes execution.
func (a *App) Close() {
	if err := a.logger.Sync(); err != nil {
		a.logger.Warn("Error syncing logger on shutdown", zap.Error(err))
	}
}
