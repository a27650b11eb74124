// Package app_test contains unit tests for the app package.
package app_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccspace/archivist/internal/app"
)

func TestNewApp_Defaults(t *testing.T) {
	a, err := app.NewApp("")
	require.NoError(t, err)
	require.NotNil(t, a)
	defer a.Close()

	assert.NotNil(t, a.GetLogger())
	assert.NotNil(t, a.GetWayback())
	assert.NotNil(t, a.GetCDX())
	assert.Equal(t, "ccspace.org", a.GetConfig().Fetch.Domain)
	assert.Equal(t, "docs", a.GetConfig().PublishDir)
}

func TestNewApp_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := "archive_dir: out/archive\nserve:\n  port: 9999\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	a, err := app.NewApp(path)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "out/archive", a.GetConfig().ArchiveDir)
	assert.Equal(t, 9999, a.GetConfig().Serve.Port)
	// Keys the file does not mention keep their defaults.
	assert.Equal(t, "ccspace.org", a.GetConfig().Fetch.Domain)
}

func TestNewApp_ConfigErrors(t *testing.T) {
	testCases := []struct {
		name          string
		config        string
		expectedError string
	}{
		{
			name:          "negative max pages",
			config:        "fetch:\n  max_pages: -5\n",
			expectedError: "fetch.max_pages must be > 0",
		},
		{
			name:          "zero request timeout",
			config:        "fetch:\n  request_timeout: 0s\n",
			expectedError: "fetch.request_timeout must be > 0",
		},
		{
			name:          "malformed snapshot timestamp",
			config:        "fetch:\n  snapshot_timestamp: \"2017-05-09\"\n",
			expectedError: "fetch.snapshot_timestamp must be numeric",
		},
		{
			name:          "invalid port",
			config:        "serve:\n  port: 0\n",
			expectedError: "serve.port must be > 0",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.config), 0o600))

			_, err := app.NewApp(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectedError)
		})
	}
}

func TestNewApp_MissingConfigFile(t *testing.T) {
	_, err := app.NewApp(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
