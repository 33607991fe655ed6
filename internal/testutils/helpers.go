package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepwise/internal/config"
)

// WriteSurvey writes a definition into a temporary directory and returns its path.
// It fails the test immediately on error.
func WriteSurvey(t *testing.T, name, doc string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644), "Failed to write survey")
	return path
}

// TestConfig returns a valid configuration for the given store, with its data
// directory inside t.TempDir().
func TestConfig(t *testing.T, store string) *config.Config {
	t.Helper()

	cfg := &config.Config{
		LogLevel:     "error",
		Store:        store,
		DataDir:      filepath.Join(t.TempDir(), ".stepwise"),
		Port:         8080,
		MaxInputSize: 4096,
		LockTTL:      30 * time.Second,
	}
	require.NoError(t, cfg.Validate())
	return cfg
}
