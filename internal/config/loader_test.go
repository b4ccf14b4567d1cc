package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// clearSisterEnvVars clears every SISTER_ environment variable so tests
// don't bleed state into each other via the process environment.
func clearSisterEnvVars() {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, EnvPrefix+"_") {
			if parts := strings.SplitN(env, "=", 2); len(parts) > 0 {
				_ = os.Unsetenv(parts[0])
			}
		}
	}
}

func freshLoader() *Loader {
	viper.Reset()
	return NewLoader()
}

func TestNewLoader(t *testing.T) {
	loader := freshLoader()
	require.NotNil(t, loader)
	require.NotNil(t, loader.v)
}

func TestLoadWithNoConfigFile(t *testing.T) {
	clearSisterEnvVars()

	tmpDir := t.TempDir()
	originalWd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(originalWd) }()
	require.NoError(t, os.Chdir(tmpDir))

	loader := freshLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.Equal(t, DefaultConfig().Catalog.IconDir, cfg.Catalog.IconDir)
}

func TestLoadWithFileReadsYAML(t *testing.T) {
	clearSisterEnvVars()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sister.yaml")
	contents := "catalog:\n  icon_dir: /custom/icons\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(configPath, []byte(contents), 0o644))

	loader := freshLoader()
	cfg, err := loader.LoadWithFile(configPath)
	require.NoError(t, err)
	require.Equal(t, "/custom/icons", cfg.Catalog.IconDir)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadWithFileRejectsMissingFile(t *testing.T) {
	loader := freshLoader()
	_, err := loader.LoadWithFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadValidatesResult(t *testing.T) {
	clearSisterEnvVars()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sister.yaml")
	contents := "log_level: not-a-level\n"
	require.NoError(t, os.WriteFile(configPath, []byte(contents), 0o644))

	loader := freshLoader()
	_, err := loader.LoadWithFile(configPath)
	require.Error(t, err)
}

func TestEnvironmentVariableOverridesDefault(t *testing.T) {
	clearSisterEnvVars()
	require.NoError(t, os.Setenv("SISTER_LOG_LEVEL", "debug"))
	defer func() { _ = os.Unsetenv("SISTER_LOG_LEVEL") }()

	tmpDir := t.TempDir()
	originalWd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(originalWd) }()
	require.NoError(t, os.Chdir(tmpDir))

	loader := freshLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestGetConfigSearchPaths(t *testing.T) {
	paths := GetConfigSearchPaths()
	require.Contains(t, paths, ".")
	require.Contains(t, paths, "/etc/sister")
}
