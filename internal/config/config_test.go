package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, infoLevel, cfg.LogLevel)
	assert.False(t, cfg.Verbose)

	assert.Equal(t, "catalog/icons", cfg.Catalog.IconDir)
	assert.Equal(t, "catalog/overlays", cfg.Catalog.OverlayDir)

	assert.Equal(t, jsonFormat, cfg.Output.Format)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)

	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.False(t, cfg.GPU.Enabled)
	assert.Equal(t, autoValue, cfg.GPU.MemoryLimit)

	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadOutputFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.IconMatch.ScoreThreshold = 1.5
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveWorkerCounts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.Parallel.Workers = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Batch.Workers = -1
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadServerPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadGPUMemoryLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GPU.MemoryLimit = "lots"
	assert.Error(t, cfg.Validate())

	cfg.GPU.MemoryLimit = "512MB"
	assert.NoError(t, cfg.Validate())
}

func TestToPrefilterConfigRoundTrips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.Prefilter.PHashRadius = 22

	pre := cfg.ToPrefilterConfig()
	assert.Equal(t, 22, pre.PHashRadius)
	assert.Equal(t, cfg.Pipeline.Prefilter.DHashRadius, pre.DHashRadius)
}

func TestToIconMatchConfigRoundTrips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.IconMatch.ScoreThreshold = 0.8

	match := cfg.ToIconMatchConfig()
	assert.InDelta(t, 0.8, match.ScoreThreshold, 0.0001)
}

func TestToOverlayDetectConfigKeepsUnexposedDefaults(t *testing.T) {
	cfg := DefaultConfig()
	overlay := cfg.ToOverlayDetectConfig()

	assert.Equal(t, cfg.Pipeline.OverlayDetect.SSIMThreshold, overlay.SSIMThreshold)
	assert.NotZero(t, overlay.Barcode)
}
